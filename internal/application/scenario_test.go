package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
)

// TestScenario_LastSeatRace は定員1のイベントに2人が同時に登録するシナリオ
func TestScenario_LastSeatRace(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	d := baseDetails()
	d.SeatLimit = 1
	ev := env.publish(t, d)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.registrationService.Register(ctx, member(i), RegisterInput{EventID: ev.ID})
		}(i)
	}
	wg.Wait()

	var success, full int
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, event.ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success, "1人だけが登録できる")
	assert.Equal(t, 1, full)
	assert.Equal(t, 1, env.occupied(t, ev.ID))

	stored := env.event(t, ev.ID)
	assert.Equal(t, event.StatusClosed, stored.Status)
	assert.Equal(t, event.ClosedReasonCapacity, stored.ClosedReason)
}

// TestScenario_NoOversell は多数の同時登録でも定員を超えないことを確認する
func TestScenario_NoOversell(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	d := baseDetails()
	d.SeatLimit = 5
	ev := env.publish(t, d)

	const numUsers = 50
	var successCount, fullCount, otherCount int32
	var wg sync.WaitGroup
	for i := 0; i < numUsers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.registrationService.Register(ctx, member(n), RegisterInput{EventID: ev.ID})
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, event.ErrEventFull):
				atomic.AddInt32(&fullCount, 1)
			default:
				atomic.AddInt32(&otherCount, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(5), successCount)
	assert.Equal(t, int32(numUsers-5), fullCount)
	assert.Zero(t, otherCount)
	assert.Equal(t, 5, env.occupied(t, ev.ID))
	assert.Equal(t, event.StatusClosed, env.event(t, ev.ID).Status)
	assert.Len(t, env.messages(t, outbox.TopicTicketIssued), 5, "チケットは成功した登録の分だけ発行される")
}

// TestScenario_CancelAndReregister はキャンセル後の再登録で同じ登録が再利用されることを確認する
func TestScenario_CancelAndReregister(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ev := env.publish(t, baseDetails())
	p := member(1)

	first, err := env.registrationService.Register(ctx, p, RegisterInput{EventID: ev.ID})
	require.NoError(t, err)

	_, err = env.registrationService.Register(ctx, p, RegisterInput{EventID: ev.ID})
	assert.ErrorIs(t, err, registration.ErrAlreadyRegistered)

	require.NoError(t, env.registrationService.Cancel(ctx, p, ev.ID))
	assert.ErrorIs(t, env.registrationService.Cancel(ctx, p, ev.ID), registration.ErrNotActive)

	second, err := env.registrationService.Register(ctx, p, RegisterInput{EventID: ev.ID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Equal(t, registration.StatusRegistered, second.Status)

	all, err := env.registrations.ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, env.messages(t, outbox.TopicRegistrationCancelled), 1)
}

// TestScenario_CapacityCloseAndReopen は満席で閉じたイベントがキャンセルで再開するシナリオ
func TestScenario_CapacityCloseAndReopen(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	d := baseDetails()
	d.SeatLimit = 1
	ev := env.publish(t, d)

	_, err := env.registrationService.Register(ctx, member(1), RegisterInput{EventID: ev.ID})
	require.NoError(t, err)
	assert.Equal(t, event.StatusClosed, env.event(t, ev.ID).Status)

	_, err = env.registrationService.Register(ctx, member(2), RegisterInput{EventID: ev.ID})
	assert.ErrorIs(t, err, event.ErrEventFull)

	require.NoError(t, env.registrationService.Cancel(ctx, member(1), ev.ID))
	reopened := env.event(t, ev.ID)
	assert.Equal(t, event.StatusApproved, reopened.Status)
	assert.Equal(t, event.ClosedReasonNone, reopened.ClosedReason)

	_, err = env.registrationService.Register(ctx, member(2), RegisterInput{EventID: ev.ID})
	require.NoError(t, err)
	assert.Equal(t, event.StatusClosed, env.event(t, ev.ID).Status)

	t.Run("主催者が閉じたイベントは再開しない", func(t *testing.T) {
		d := baseDetails()
		d.SeatLimit = 10
		ev := env.publish(t, d)
		_, err := env.registrationService.Register(ctx, member(3), RegisterInput{EventID: ev.ID})
		require.NoError(t, err)

		_, err = env.eventService.ChangeStatus(ctx, testOrganizer, ev.ID, event.StatusClosed)
		require.NoError(t, err)

		require.NoError(t, env.registrationService.Cancel(ctx, member(3), ev.ID))
		stored := env.event(t, ev.ID)
		assert.Equal(t, event.StatusClosed, stored.Status)
		assert.Equal(t, event.ClosedReasonOrganizer, stored.ClosedReason)

		_, err = env.registrationService.Register(ctx, member(3), RegisterInput{EventID: ev.ID})
		assert.ErrorIs(t, err, event.ErrNotOpen)
	})

	t.Run("定員の引き上げで再開する", func(t *testing.T) {
		limit := 2
		updated, err := env.eventService.UpdateEvent(ctx, testOrganizer, ev.ID, event.Update{SeatLimit: &limit})
		require.NoError(t, err)
		assert.Equal(t, event.StatusApproved, updated.Status)
		assert.Equal(t, 2, updated.SeatLimit)
	})
}

func merchandiseDetails(stock, purchaseLimit int) event.Details {
	d := baseDetails()
	d.Kind = event.KindMerchandise
	d.PurchaseLimit = purchaseLimit
	d.Items = []event.MerchandiseItem{
		{Name: "T-Shirt", Price: 400, Variants: []event.Variant{{Size: "M", Color: "black", Stock: stock}}},
	}
	return d
}

func shirt(qty int) []event.Selection {
	return []event.Selection{{ItemIndex: 0, Size: "M", Color: "black", Quantity: qty}}
}

func (env *testEnv) orderWithProof(t *testing.T, eventID string, n, qty int) *registration.Registration {
	t.Helper()
	ctx := context.Background()
	reg, err := env.registrationService.Register(ctx, member(n), RegisterInput{EventID: eventID, Selections: shirt(qty)})
	require.NoError(t, err)
	require.Equal(t, registration.PaymentPendingProof, reg.PaymentStatus)
	reg, err = env.registrationService.UploadProof(ctx, member(n), reg.ID, "/uploads/payments/proof.png")
	require.NoError(t, err)
	require.Equal(t, registration.PaymentPendingApproval, reg.PaymentStatus)
	return reg
}

func (env *testEnv) stock(t *testing.T, eventID string) int {
	t.Helper()
	return env.event(t, eventID).Items[0].Variants[0].Stock
}

// TestScenario_MerchandiseApprovalRace は在庫2に対して3件の承認が同時に行われるシナリオ
func TestScenario_MerchandiseApprovalRace(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ev := env.publish(t, merchandiseDetails(2, 1))

	regs := make([]*registration.Registration, 3)
	for i := range regs {
		regs[i] = env.orderWithProof(t, ev.ID, i, 1)
	}
	// 注文時点では在庫を減らさない
	assert.Equal(t, 2, env.stock(t, ev.ID))

	var wg sync.WaitGroup
	errs := make([]error, len(regs))
	for i, reg := range regs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.registrationService.DecidePayment(ctx, testOrganizer, id, registration.DecisionApprove)
		}(i, reg.ID)
	}
	wg.Wait()

	var approved, insufficient int
	var failedID string
	for i, err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, event.ErrInsufficientStock):
			insufficient++
			failedID = regs[i].ID
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, approved)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, env.stock(t, ev.ID))

	failed, err := env.registrations.GetByID(ctx, failedID)
	require.NoError(t, err)
	assert.Equal(t, registration.PaymentPendingApproval, failed.PaymentStatus, "失敗した承認は支払い状態を変えない")
}

// TestScenario_DoubleApproval は同じ注文の承認が二重に実行されても在庫が一度だけ減ることを確認する
func TestScenario_DoubleApproval(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ev := env.publish(t, merchandiseDetails(5, 2))
	reg := env.orderWithProof(t, ev.ID, 1, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.registrationService.DecidePayment(ctx, testOrganizer, reg.ID, registration.DecisionApprove)
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, registration.ErrInvalidPaymentState):
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)
	assert.Equal(t, 3, env.stock(t, ev.ID))
	assert.Len(t, env.messages(t, outbox.TopicPaymentDecided), 1)
}

// TestScenario_CancelApprovedOrderRestoresStock は承認済み注文のキャンセルで在庫が戻ることを確認する
func TestScenario_CancelApprovedOrderRestoresStock(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ev := env.publish(t, merchandiseDetails(2, 2))

	reg := env.orderWithProof(t, ev.ID, 1, 2)
	_, err := env.registrationService.DecidePayment(ctx, testOrganizer, reg.ID, registration.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, 0, env.stock(t, ev.ID))

	require.NoError(t, env.registrationService.Cancel(ctx, member(1), ev.ID))
	assert.Equal(t, 2, env.stock(t, ev.ID))

	t.Run("未承認の注文のキャンセルでは在庫は変わらない", func(t *testing.T) {
		env.orderWithProof(t, ev.ID, 2, 1)
		require.NoError(t, env.registrationService.Cancel(ctx, member(2), ev.ID))
		assert.Equal(t, 2, env.stock(t, ev.ID))
	})
}

// TestScenario_PurchaseLimitCannotBeBypassed は桁あふれする数量で購入上限と支払いを回避できないことを確認する
func TestScenario_PurchaseLimitCannotBeBypassed(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	d := baseDetails()
	d.Kind = event.KindMerchandise
	d.PurchaseLimit = 1
	d.Items = []event.MerchandiseItem{{Name: "Sticker", Price: 1}}
	ev := env.publish(t, d)

	tests := []struct {
		name       string
		selections []event.Selection
		wantErr    error
	}{
		{"桁あふれする数量の組み合わせ", []event.Selection{{ItemIndex: 0, Quantity: math.MaxInt}, {ItemIndex: 0, Quantity: math.MaxInt}}, event.ErrInvalidQuantity},
		{"上限を超える1件", []event.Selection{{ItemIndex: 0, Quantity: 2}}, event.ErrPurchaseLimitExceeded},
		{"上限内の分割でも合計で超過", []event.Selection{{ItemIndex: 0, Quantity: 1}, {ItemIndex: 0, Quantity: 1}}, event.ErrPurchaseLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.registrationService.Register(ctx, member(1), RegisterInput{EventID: ev.ID, Selections: tt.selections})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	regs, err := env.registrations.ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, regs)

	reg, err := env.registrationService.Register(ctx, member(1), RegisterInput{EventID: ev.ID, Selections: []event.Selection{{ItemIndex: 0, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.TotalAmount)
	assert.Equal(t, registration.PaymentPendingProof, reg.PaymentStatus)
}

// TestScenario_RejectAndResubmit は却下後に証憑を再提出して承認されるシナリオ
func TestScenario_RejectAndResubmit(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ev := env.publish(t, merchandiseDetails(3, 1))
	reg := env.orderWithProof(t, ev.ID, 1, 1)

	rejected, err := env.registrationService.DecidePayment(ctx, testOrganizer, reg.ID, registration.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, registration.PaymentRejected, rejected.PaymentStatus)
	assert.Equal(t, 3, env.stock(t, ev.ID))

	_, err = env.registrationService.DecidePayment(ctx, testOrganizer, reg.ID, registration.DecisionApprove)
	assert.ErrorIs(t, err, registration.ErrInvalidPaymentState)

	_, err = env.registrationService.UploadProof(ctx, member(1), reg.ID, "/uploads/payments/retry.png")
	require.NoError(t, err)
	approved, err := env.registrationService.DecidePayment(ctx, testOrganizer, reg.ID, registration.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, registration.PaymentApproved, approved.PaymentStatus)
	assert.Equal(t, 2, env.stock(t, ev.ID))
	assert.Len(t, env.messages(t, outbox.TopicTicketIssued), 1, "チケットは承認時に一度だけ発行される")
}

// TestScenario_Attendance は出席記録とキャンセルの関係を確認する
func TestScenario_Attendance(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ev := env.publish(t, baseDetails())

	reg, err := env.registrationService.Register(ctx, member(1), RegisterInput{EventID: ev.ID})
	require.NoError(t, err)

	_, err = env.registrationService.MarkAttended(ctx, member(1), reg.ID)
	assert.ErrorIs(t, err, event.ErrNotOwner)

	attended, err := env.registrationService.MarkAttended(ctx, testOrganizer, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusAttended, attended.Status)
	assert.NotNil(t, attended.AttendedAt)

	_, err = env.registrationService.MarkAttended(ctx, testOrganizer, reg.ID)
	assert.ErrorIs(t, err, registration.ErrAlreadyAttended)
	assert.ErrorIs(t, env.registrationService.Cancel(ctx, member(1), ev.ID), registration.ErrCannotCancelAttended)
}
