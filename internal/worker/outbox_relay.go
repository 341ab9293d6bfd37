package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
)

// OutboxRelay は未配信の通知を定期的に配信するワーカー
type OutboxRelay struct {
	outbox    outbox.Repository
	publisher outbox.Publisher
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewOutboxRelay は新しいリレーを作成
func NewOutboxRelay(
	repo outbox.Repository,
	publisher outbox.Publisher,
	interval time.Duration,
	batchSize int,
) *OutboxRelay {
	return &OutboxRelay{
		outbox:    repo,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はリレーを開始
func (r *OutboxRelay) Start(ctx context.Context) {
	logger.Info("通知リレー開始",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("通知リレー停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("通知リレー停止（シグナル受信）")
			return
		case <-ticker.C:
			r.relay(ctx)
		}
	}
}

// Stop はリレーを停止
func (r *OutboxRelay) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *OutboxRelay) relay(ctx context.Context) {
	log := logger.Get()
	delivered, err := r.RelayOnce(ctx)
	if err != nil {
		log.Error("通知の配信に失敗", zap.Int("delivered", delivered), zap.Error(err))
		return
	}
	if delivered > 0 {
		log.Info("通知を配信", zap.Int("count", delivered))
	} else {
		log.Debug("未配信の通知なし")
	}
}

// RelayOnce は未配信の通知を古い順に1バッチ配信し、配信した件数を返す。
// 配信に失敗した時点でバッチを打ち切り、以降の通知は次回に回す。
// 失敗が outbox.MaxAttempts 回に達した通知は断念し、後続の配信を続ける
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	msgs, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("未配信通知の取得に失敗: %w", err)
	}

	delivered := 0
	for _, msg := range msgs {
		if err := r.publisher.Publish(ctx, msg); err != nil {
			metrics.Get().RecordNotification(string(msg.Topic), "failed")
			if markErr := r.outbox.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				logger.Warn("配信失敗の記録に失敗", zap.String("message_id", msg.ID), zap.Error(markErr))
				return delivered, fmt.Errorf("通知 %s の配信に失敗: %w", msg.ID, err)
			}
			if msg.Attempts+1 >= outbox.MaxAttempts {
				metrics.Get().RecordNotification(string(msg.Topic), "dead")
				logger.Error("通知の配信を断念",
					zap.String("message_id", msg.ID),
					zap.String("topic", string(msg.Topic)),
					zap.Int("attempts", msg.Attempts+1),
					zap.Error(err),
				)
				continue
			}
			return delivered, fmt.Errorf("通知 %s の配信に失敗: %w", msg.ID, err)
		}
		if err := r.outbox.MarkDelivered(ctx, msg.ID); err != nil {
			return delivered, fmt.Errorf("通知 %s の配信済み記録に失敗: %w", msg.ID, err)
		}
		metrics.Get().RecordNotification(string(msg.Topic), "delivered")
		delivered++
	}
	return delivered, nil
}

// LogPublisher は通知をログに出力する。Redis を使わない構成で使う
type LogPublisher struct{}

// Publish は通知をログに出力する
func (LogPublisher) Publish(ctx context.Context, msg *outbox.Message) error {
	logger.Info("通知",
		zap.String("message_id", msg.ID),
		zap.String("topic", string(msg.Topic)),
		zap.String("event_id", msg.EventID),
		zap.String("registration_id", msg.RegistrationID),
		zap.String("participant_id", msg.ParticipantID),
		zap.String("ticket_id", msg.TicketID),
		zap.String("team_id", msg.TeamID),
		zap.String("decision", msg.Decision),
	)
	return nil
}

var _ outbox.Publisher = LogPublisher{}
