// Package outbox は状態変更と同じトランザクションで記録する通知を扱う
//
// 通知はコミット後にリレーワーカーが外部の通知先へ配信する。
// ロールバックされた操作の通知は記録されないため、未確定の状態が通知されることはない。
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Topic は通知の種類
type Topic string

const (
	TopicTicketIssued          Topic = "ticket_issued"
	TopicOrderPlaced           Topic = "order_placed"
	TopicPaymentDecided        Topic = "payment_decided"
	TopicRegistrationCancelled Topic = "registration_cancelled"
)

// MaxAttempts を超えて配信に失敗した通知は配信対象から外す
const MaxAttempts = 5

// Message は未配信の通知
type Message struct {
	ID             string
	Topic          Topic
	EventID        string
	RegistrationID string
	ParticipantID  string
	TicketID       string
	TeamID         string
	Decision       string
	Attempts       int
	LastError      string
	CreatedAt      time.Time
	DeliveredAt    *time.Time
}

// NewMessage は新しい通知を作成する
func NewMessage(topic Topic, eventID, registrationID, participantID, ticketID string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		Topic:          topic,
		EventID:        eventID,
		RegistrationID: registrationID,
		ParticipantID:  participantID,
		TicketID:       ticketID,
		CreatedAt:      time.Now(),
	}
}

// IsDead は配信を断念した通知かを返す
func (m *Message) IsDead() bool {
	return !m.IsDelivered() && m.Attempts >= MaxAttempts
}

// IsDelivered は配信済みかを返す
func (m *Message) IsDelivered() bool {
	return m.DeliveredAt != nil
}
