package notify

import (
	"context"
	"time"

	"Gin_postgres_redis_lendshare/models"
)

// JSONPublisher is satisfied by *mq.Publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Event 是发到 exchange 上的消息体，routing key = "notification.<type>"
type Event struct {
	ID             string                     `json:"id"`
	UserID         string                     `json:"user_id"`
	Type           string                     `json:"type"`
	Title          string                     `json:"title"`
	Message        string                     `json:"message"`
	RelatedItem    *string                    `json:"related_item,omitempty"`
	RelatedRequest *string                    `json:"related_request,omitempty"`
	Metadata       models.NotificationPayload `json:"metadata"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func RoutingKey(typ string) string { return "notification." + typ }

type AMQPDispatcher struct {
	Pub JSONPublisher
}

func NewAMQPDispatcher(p JSONPublisher) *AMQPDispatcher { return &AMQPDispatcher{Pub: p} }

func (d *AMQPDispatcher) Dispatch(ctx context.Context, n *models.Notification) error {
	return d.Pub.PublishJSON(ctx, RoutingKey(n.Type), EventOf(n))
}

func EventOf(n *models.Notification) Event {
	return Event{
		ID:             n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		RelatedItem:    n.ItemID,
		RelatedRequest: n.RequestID,
		Metadata:       n.Payload(),
		CreatedAt:      n.CreatedAt,
	}
}
