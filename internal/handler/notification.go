package handler

import (
	"net/http"
	"time"
)

type notificationDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r, 50, 200)
	msgs, err := h.inbox.ListByUser(r.Context(), a.UserID, limit, offset)
	if err != nil {
		respondError(r, w, err)
		return
	}

	dtos := make([]notificationDTO, 0, len(msgs))
	for _, m := range msgs {
		dtos = append(dtos, notificationDTO{
			ID:        m.ID,
			Title:     m.Title,
			Message:   m.Body,
			Type:      string(m.Type),
			Read:      m.Read,
			CreatedAt: m.CreatedAt,
		})
	}
	respondData(w, http.StatusOK, dtos)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	if err := h.inbox.MarkRead(r.Context(), a.UserID, r.PathValue("id")); err != nil {
		respondError(r, w, err)
		return
	}
	respondMessage(w, http.StatusOK, "notification marked read")
}
