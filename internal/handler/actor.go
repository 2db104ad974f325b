package handler

import (
	"net/http"

	"github.com/marzouqa/souq-backend/internal/domain/order"
)

// Identity headers asserted by the upstream gateway.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// actor resolves the acting identity from the gateway headers. When no
// user ID is present it writes a 401 envelope and reports false.
func actor(w http.ResponseWriter, r *http.Request) (order.Actor, bool) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		respond(w, http.StatusUnauthorized, envelope{Success: false, Message: "missing user identity"})
		return order.Actor{}, false
	}

	role := order.Role(r.Header.Get(headerUserRole))
	if role != order.RoleAdmin {
		role = order.RoleUser
	}
	return order.Actor{UserID: userID, Role: role}, true
}

// requireAdmin resolves the actor and writes a 403 envelope when the
// actor is not an admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) (order.Actor, bool) {
	a, ok := actor(w, r)
	if !ok {
		return order.Actor{}, false
	}
	if !a.Admin() {
		respond(w, http.StatusForbidden, envelope{Success: false, Message: "admin role required"})
		return order.Actor{}, false
	}
	return a, true
}
