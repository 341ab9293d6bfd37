package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
)

// DefaultNotificationStream は通知を流すストリーム名
const DefaultNotificationStream = "event-registration:notifications"

// NotificationPublisher は通知を Redis Streams に書き込む
type NotificationPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewNotificationPublisher は NotificationPublisher を作成する
func NewNotificationPublisher(client *redis.Client, stream string, maxLen int64) *NotificationPublisher {
	if stream == "" {
		stream = DefaultNotificationStream
	}
	return &NotificationPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish は通知をストリームに追加する。メッセージIDで重複排除できるよう id を含める
func (p *NotificationPublisher) Publish(ctx context.Context, msg *outbox.Message) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]interface{}{
			"id":              msg.ID,
			"topic":           string(msg.Topic),
			"event_id":        msg.EventID,
			"registration_id": msg.RegistrationID,
			"participant_id":  msg.ParticipantID,
			"ticket_id":       msg.TicketID,
			"team_id":         msg.TeamID,
			"decision":        msg.Decision,
			"created_at":      msg.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("通知の送信に失敗: %w", err)
	}
	return nil
}

var _ outbox.Publisher = (*NotificationPublisher)(nil)
