package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// RegistrationRepository は登録リポジトリのメモリ実装
type RegistrationRepository struct{ s *Store }

// NewRegistrationRepository はRegistrationRepositoryを作成する
func NewRegistrationRepository(s *Store) *RegistrationRepository {
	return &RegistrationRepository{s: s}
}

// Create は登録を作成する。同じイベント・参加者の登録は1件まで
func (r *RegistrationRepository) Create(ctx context.Context, tx transaction.Tx, reg *registration.Registration) error {
	return r.s.write(tx, func() error {
		for _, existing := range r.s.registrations {
			if existing.EventID == reg.EventID && existing.ParticipantID == reg.ParticipantID {
				return registration.ErrAlreadyRegistered
			}
		}
		r.s.registrations[reg.ID] = cloneRegistration(reg)
		return nil
	})
}

// Update は登録を更新する
func (r *RegistrationRepository) Update(ctx context.Context, tx transaction.Tx, reg *registration.Registration) error {
	return r.s.write(tx, func() error {
		if _, ok := r.s.registrations[reg.ID]; !ok {
			return registration.ErrRegistrationNotFound
		}
		r.s.registrations[reg.ID] = cloneRegistration(reg)
		return nil
	})
}

// GetByID はIDから登録を取得する
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*registration.Registration, error) {
	return r.get(ctx, nil, id)
}

// GetForUpdate はトランザクション内で登録を取得する
func (r *RegistrationRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*registration.Registration, error) {
	if err := r.s.check(tx); err != nil {
		return nil, err
	}
	return r.get(ctx, tx, id)
}

func (r *RegistrationRepository) get(ctx context.Context, tx transaction.Tx, id string) (*registration.Registration, error) {
	var found *registration.Registration
	err := r.s.read(ctx, tx, func() error {
		reg, ok := r.s.registrations[id]
		if !ok {
			return registration.ErrRegistrationNotFound
		}
		found = cloneRegistration(reg)
		return nil
	})
	return found, err
}

// FindByEventAndParticipant はイベントと参加者から登録を取得する
func (r *RegistrationRepository) FindByEventAndParticipant(ctx context.Context, tx transaction.Tx, eventID, participantID string) (*registration.Registration, error) {
	var found *registration.Registration
	err := r.s.read(ctx, tx, func() error {
		for _, reg := range r.s.registrations {
			if reg.EventID == eventID && reg.ParticipantID == participantID {
				found = cloneRegistration(reg)
				return nil
			}
		}
		return registration.ErrRegistrationNotFound
	})
	return found, err
}

// CountOccupying は席を占有している登録数を返す
func (r *RegistrationRepository) CountOccupying(ctx context.Context, tx transaction.Tx, eventID string) (int, error) {
	count := 0
	err := r.s.read(ctx, tx, func() error {
		for _, reg := range r.s.registrations {
			if reg.EventID == eventID && reg.IsOccupying() {
				count++
			}
		}
		return nil
	})
	return count, err
}

// ListByEvent はイベントの登録一覧を取得する
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*registration.Registration, error) {
	result, err := r.filter(ctx, func(reg *registration.Registration) bool { return reg.EventID == eventID })
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, err
}

// ListByParticipant は参加者の登録一覧を取得する
func (r *RegistrationRepository) ListByParticipant(ctx context.Context, participantID string) ([]*registration.Registration, error) {
	result, err := r.filter(ctx, func(reg *registration.Registration) bool { return reg.ParticipantID == participantID })
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, err
}

func (r *RegistrationRepository) filter(ctx context.Context, keep func(*registration.Registration) bool) ([]*registration.Registration, error) {
	result := []*registration.Registration{}
	err := r.s.read(ctx, nil, func() error {
		for _, reg := range r.s.registrations {
			if keep(reg) {
				result = append(result, cloneRegistration(reg))
			}
		}
		return nil
	})
	return result, err
}

// CountCreatedSince は since 以降に作成され席を占有している登録数をイベントごとに返す
func (r *RegistrationRepository) CountCreatedSince(ctx context.Context, since time.Time) ([]registration.EventCount, error) {
	counts := make(map[string]int)
	err := r.s.read(ctx, nil, func() error {
		for _, reg := range r.s.registrations {
			if reg.IsOccupying() && !reg.CreatedAt.Before(since) {
				counts[reg.EventID]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result := make([]registration.EventCount, 0, len(counts))
	for id, n := range counts {
		result = append(result, registration.EventCount{EventID: id, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].EventID < result[j].EventID
	})
	return result, nil
}

// DeleteByEvent はイベントの登録を削除する
func (r *RegistrationRepository) DeleteByEvent(ctx context.Context, tx transaction.Tx, eventID string) error {
	return r.s.write(tx, func() error {
		for id, reg := range r.s.registrations {
			if reg.EventID == eventID {
				delete(r.s.registrations, id)
			}
		}
		return nil
	})
}

var _ registration.Repository = (*RegistrationRepository)(nil)
