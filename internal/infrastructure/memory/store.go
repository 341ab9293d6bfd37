// Package memory はプロセス内で完結するストア実装
//
// ローカル開発とテスト用。トランザクションはストア全体の排他ロックで直列化され、
// ロールバック時は開始時点のスナップショットに戻す。
// 保存済みのエンティティは書き換えず、書き込みのたびに複製で置き換える。
package memory

import (
	"context"
	"errors"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// ErrForeignTx は別ストアのトランザクションが渡された場合のエラー
var ErrForeignTx = errors.New("transaction does not belong to this store")

type state struct {
	events        map[string]*event.Event
	registrations map[string]*registration.Registration
	teams         map[string]*team.Team
	feedback      map[string]*feedback.Feedback
	outbox        []*outbox.Message
}

func (s state) copy() state {
	c := state{
		events:        make(map[string]*event.Event, len(s.events)),
		registrations: make(map[string]*registration.Registration, len(s.registrations)),
		teams:         make(map[string]*team.Team, len(s.teams)),
		feedback:      make(map[string]*feedback.Feedback, len(s.feedback)),
		outbox:        append([]*outbox.Message(nil), s.outbox...),
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.feedback {
		c.feedback[k] = v
	}
	return c
}

// Store はメモリ上のストア
type Store struct {
	sem chan struct{}
	state
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{
		sem: make(chan struct{}, 1),
		state: state{
			events:        make(map[string]*event.Event),
			registrations: make(map[string]*registration.Registration),
			teams:         make(map[string]*team.Team),
			feedback:      make(map[string]*feedback.Feedback),
		},
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

// Tx はメモリストアのトランザクション
type Tx struct {
	store    *Store
	snapshot state
	done     bool
}

// Begin はストア全体のロックを取得してトランザクションを開始する
func (s *Store) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &Tx{store: s, snapshot: s.state.copy()}, nil
}

// Commit は変更を確定してロックを解放する
func (t *Tx) Commit() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.store.release()
	return nil
}

// Rollback は開始時点の状態に戻す。確定済みの場合は何もしない
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.state = t.snapshot
	t.store.release()
	return nil
}

func (s *Store) check(tx transaction.Tx) error {
	if tx == nil {
		return transaction.ErrTxRequired
	}
	mt, ok := tx.(*Tx)
	if !ok || mt.store != s {
		return ErrForeignTx
	}
	if mt.done {
		return errors.New("transaction is finished")
	}
	return nil
}

// read は tx があればその中で、なければロックを取って fn を実行する
func (s *Store) read(ctx context.Context, tx transaction.Tx, fn func() error) error {
	if tx != nil {
		if err := s.check(tx); err != nil {
			return err
		}
		return fn()
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return fn()
}

// write は tx 内でのみ fn を実行する
func (s *Store) write(tx transaction.Tx, fn func() error) error {
	if err := s.check(tx); err != nil {
		return err
	}
	return fn()
}

// locked はトランザクション外の単発の書き込みを行う
func (s *Store) locked(ctx context.Context, fn func() error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return fn()
}

var _ transaction.Manager = (*Store)(nil)
