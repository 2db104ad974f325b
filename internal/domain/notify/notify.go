// Package notify defines the fire-and-forget notification sink. Delivery
// transport (push, email) is an external concern; this service only hands
// messages to the sink and never lets a sink failure affect the
// operation that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Type classifies a notification for client-side rendering.
type Type string

const (
	TypeOrderCreated    Type = "order_created"
	TypeOrderStatus     Type = "order_status"
	TypeOrderDelivered  Type = "order_delivered"
	TypeOrderCancelled  Type = "order_cancelled"
	TypePaymentReceived Type = "payment_received"
	TypeWallet          Type = "wallet"
)

// Message is a stored notification as shown in the user's inbox.
type Message struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Type      Type
	Read      bool
	CreatedAt time.Time
}

// Inbox reads back stored notifications.
type Inbox interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Message, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Notifier delivers one notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string, t Type) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, userID, title, message string, t Type) error

func (f Func) Notify(ctx context.Context, userID, title, message string, t Type) error {
	return f(ctx, userID, title, message, t)
}

// BestEffort sends through the notifier and swallows any failure after
// logging it. Core operations call this so notification problems never
// propagate to their callers.
func BestEffort(ctx context.Context, n Notifier, userID, title, message string, t Type) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, title, message, t); err != nil {
		zctx.From(ctx).Warn("notification dropped",
			zap.String("user_id", userID),
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
}
