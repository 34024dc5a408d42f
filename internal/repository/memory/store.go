// Package memory provides an in-process implementation of the repository
// contracts. Transactions are serialized and write to a private copy of the
// state that replaces the committed state only on success, so it suits tests
// and single-node development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

type ticketLink struct {
	ticketID int64
	otherID  int64
}

type state struct {
	seq int64

	tickets          map[int64]domain.Ticket
	ticketLabels     map[ticketLink]struct{}
	ticketCategories map[ticketLink]struct{}
	processes        map[int64]domain.ApprovalProcess
	templates        map[int64]domain.ApprovalTemplate
	notes            map[int64]domain.Note
	labels           map[int64]domain.Label
	categories       map[int64]domain.Category
	attachments      map[int64]domain.Attachment
	viewers          map[ticketLink]domain.TicketViewPermission
	rules            map[int64]domain.NotificationRule
}

func newState() *state {
	return &state{
		tickets:          map[int64]domain.Ticket{},
		ticketLabels:     map[ticketLink]struct{}{},
		ticketCategories: map[ticketLink]struct{}{},
		processes:        map[int64]domain.ApprovalProcess{},
		templates:        map[int64]domain.ApprovalTemplate{},
		notes:            map[int64]domain.Note{},
		labels:           map[int64]domain.Label{},
		categories:       map[int64]domain.Category{},
		attachments:      map[int64]domain.Attachment{},
		viewers:          map[ticketLink]domain.TicketViewPermission{},
		rules:            map[int64]domain.NotificationRule{},
	}
}

func (s *state) clone() *state {
	out := newState()
	out.seq = s.seq
	for k, v := range s.tickets {
		out.tickets[k] = v
	}
	for k := range s.ticketLabels {
		out.ticketLabels[k] = struct{}{}
	}
	for k := range s.ticketCategories {
		out.ticketCategories[k] = struct{}{}
	}
	for k, v := range s.processes {
		v.Steps = append([]domain.ApprovalProcessStep(nil), v.Steps...)
		out.processes[k] = v
	}
	for k, v := range s.templates {
		v.Steps = append([]domain.ApprovalTemplateStep(nil), v.Steps...)
		out.templates[k] = v
	}
	for k, v := range s.notes {
		out.notes[k] = v
	}
	for k, v := range s.labels {
		out.labels[k] = v
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.attachments {
		out.attachments[k] = v
	}
	for k, v := range s.viewers {
		out.viewers[k] = v
	}
	for k, v := range s.rules {
		out.rules[k] = v
	}
	return out
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store is a repository.UnitOfWork held entirely in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	now  func() time.Time
	// inTx marks a working copy owned by a running transaction.
	inTx bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// Store returns repositories operating directly on committed state.
func (s *Store) Store() repository.Store {
	return repository.Store{
		Tickets:           &ticketRepo{s},
		Approvals:         &approvalRepo{s},
		Templates:         &templateRepo{s},
		Notes:             &noteRepo{s},
		Labels:            &labelRepo{s},
		Categories:        &categoryRepo{s},
		Attachments:       &attachmentRepo{s},
		ViewPermissions:   &viewerRepo{s},
		NotificationRules: &ruleRepo{s},
	}
}

// WithinTx runs fn with exclusive write access. Readers of Store keep seeing
// the committed state until fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := &Store{data: s.data.clone(), now: s.now, inTx: true}
	s.mu.RUnlock()

	if err := fn(ctx, work.Store()); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work.data
	s.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(d *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write outside a transaction waits for any running one so its commit cannot
// discard the change.
func (s *Store) write(fn func(d *state) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

var _ repository.UnitOfWork = (*Store)(nil)
