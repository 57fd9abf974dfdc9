// Package dashboard holds the page-level state of the client dashboard:
// the loading flag, the create/edit form and the rows with their pending states.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cliente_backend/internal/feature/cliente/domain/entity"
)

// ErrRowNotFound is returned when an action targets an id that is not on the board.
var ErrRowNotFound = errors.New("cliente not on the board")

// RowState tells whether a row reflects the backend or an action still in flight.
type RowState int

const (
	Committed RowState = iota
	PendingCreate
	PendingUpdate
	PendingDelete
)

func (s RowState) String() string {
	switch s {
	case PendingCreate:
		return "creating"
	case PendingUpdate:
		return "saving"
	case PendingDelete:
		return "deleting"
	default:
		return ""
	}
}

// Row is a Cliente as displayed on the board.
type Row struct {
	Cliente entity.Cliente
	State   RowState
}

// Clientes is the session-scoped backend the board talks to.
// The owner is implied by the session, so no method takes an owner id.
type Clientes interface {
	List(ctx context.Context) ([]entity.Cliente, error)
	Create(ctx context.Context, in entity.ClienteInput) (*entity.Cliente, error)
	Update(ctx context.Context, id string, patch entity.ClientePatch) (*entity.Cliente, error)
	Delete(ctx context.Context, id string) error
}

// NoticeSink receives user-facing messages (toasts).
type NoticeSink interface {
	Notice(msg string)
}

// Snapshot is a copy of the board state safe to render from any goroutine.
type Snapshot struct {
	Loading     bool
	FormVisible bool
	EditTarget  *entity.Cliente
	Rows        []Row
}

// Board is safe for concurrent use: Watch updates rows from its own goroutine.
type Board struct {
	clientes Clientes
	notices  NoticeSink

	mu          sync.Mutex
	loading     bool
	formVisible bool
	editTarget  *entity.Cliente
	rows        []Row
	seq         int
}

// NewBoard creates an empty board. notices may be nil.
func NewBoard(clientes Clientes, notices NoticeSink) *Board {
	return &Board{clientes: clientes, notices: notices}
}

// Snapshot returns the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Loading:     b.loading,
		FormVisible: b.formVisible,
		Rows:        append([]Row(nil), b.rows...),
	}
	if b.editTarget != nil {
		t := *b.editTarget
		s.EditTarget = &t
	}
	return s
}

// Load replaces the committed rows with the backend list, keeping rows whose action
// is still in flight. On error the rows are left as they were.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	b.loading = true
	b.mu.Unlock()

	list, err := b.clientes.List(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		b.notify("failed to load clientes: %v", err)
		return err
	}
	b.replaceCommitted(list)
	return nil
}

// OpenCreate shows an empty form.
func (b *Board) OpenCreate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.formVisible = true
	b.editTarget = nil
}

// OpenEdit shows the form prefilled with the row id.
func (b *Board) OpenEdit(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return ErrRowNotFound
	}
	t := b.rows[i].Cliente
	b.formVisible = true
	b.editTarget = &t
	return nil
}

// CloseForm hides the form and leaves edit mode.
func (b *Board) CloseForm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.formVisible = false
	b.editTarget = nil
}

// Submit creates a Cliente, or updates the edit target when one is set.
// An update sends only the fields that differ from the edit target; when nothing
// differs the form closes without a request.
// The row stays pending until the backend answers. On success the form closes and
// the list is refetched; on failure the row is reverted and the form stays open.
func (b *Board) Submit(ctx context.Context, form entity.ClienteInput) error {
	b.mu.Lock()
	target := b.editTarget
	b.mu.Unlock()

	if target == nil {
		return b.submitCreate(ctx, form)
	}
	patch := entity.DiffPatch(*target, form)
	if patch.IsEmpty() {
		b.CloseForm()
		return nil
	}
	return b.submitUpdate(ctx, target.ID, patch)
}

func (b *Board) submitCreate(ctx context.Context, form entity.ClienteInput) error {
	b.mu.Lock()
	b.seq++
	tempID := fmt.Sprintf("pending-%d", b.seq)
	placeholder := Row{
		Cliente: entity.Cliente{ID: tempID, Nome: form.Nome, Email: form.Email, Telefone: form.Telefone, Endereco: form.Endereco},
		State:   PendingCreate,
	}
	b.rows = append([]Row{placeholder}, b.rows...)
	b.mu.Unlock()

	created, err := b.clientes.Create(ctx, form)

	b.mu.Lock()
	i := b.indexOf(tempID)
	if err != nil {
		if i >= 0 {
			b.rows = append(b.rows[:i], b.rows[i+1:]...)
		}
		b.notify("failed to create cliente: %v", err)
		b.mu.Unlock()
		return err
	}
	if i >= 0 {
		b.rows[i] = Row{Cliente: *created, State: Committed}
	}
	b.formVisible = false
	b.editTarget = nil
	b.mu.Unlock()

	return b.refetch(ctx)
}

func (b *Board) submitUpdate(ctx context.Context, id string, patch entity.ClientePatch) error {
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return ErrRowNotFound
	}
	original := b.rows[i]
	edited := original.Cliente
	patch.Apply(&edited)
	b.rows[i] = Row{Cliente: edited, State: PendingUpdate}
	b.mu.Unlock()

	updated, err := b.clientes.Update(ctx, id, patch)

	b.mu.Lock()
	i = b.indexOf(id)
	if err != nil {
		if i >= 0 {
			b.rows[i] = original
		}
		b.notify("failed to update cliente: %v", err)
		b.mu.Unlock()
		return err
	}
	if i >= 0 {
		b.rows[i] = Row{Cliente: *updated, State: Committed}
	}
	b.formVisible = false
	b.editTarget = nil
	b.mu.Unlock()

	return b.refetch(ctx)
}

// Delete removes a row once confirm agrees. The row is shown as deleting while the
// request is in flight and is restored if the backend refuses.
func (b *Board) Delete(ctx context.Context, id string, confirm func() bool) error {
	if confirm != nil && !confirm() {
		return nil
	}

	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return ErrRowNotFound
	}
	b.rows[i].State = PendingDelete
	b.mu.Unlock()

	err := b.clientes.Delete(ctx, id)

	b.mu.Lock()
	defer b.mu.Unlock()
	i = b.indexOf(id)
	if err != nil {
		if i >= 0 {
			b.rows[i].State = Committed
		}
		b.notify("failed to delete cliente: %v", err)
		return err
	}
	if i >= 0 {
		b.rows = append(b.rows[:i], b.rows[i+1:]...)
	}
	return nil
}

// Watch applies every list pushed on feed until ctx ends or feed closes.
// onUpdate, if set, is called after each applied list.
func (b *Board) Watch(ctx context.Context, feed <-chan []entity.Cliente, onUpdate func(Snapshot)) {
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-feed:
			if !ok {
				return
			}
			b.mu.Lock()
			b.replaceCommitted(list)
			b.mu.Unlock()
			if onUpdate != nil {
				onUpdate(b.Snapshot())
			}
		}
	}
}

// replaceCommitted swaps the committed rows for list while keeping rows whose
// action is still in flight. Must be called with mu held.
func (b *Board) replaceCommitted(list []entity.Cliente) {
	pending := make(map[string]Row)
	var creating []Row
	for _, r := range b.rows {
		switch r.State {
		case PendingCreate:
			creating = append(creating, r)
		case PendingUpdate, PendingDelete:
			pending[r.Cliente.ID] = r
		}
	}

	rows := make([]Row, 0, len(creating)+len(list))
	rows = append(rows, creating...)
	for _, c := range list {
		if r, ok := pending[c.ID]; ok {
			rows = append(rows, r)
			continue
		}
		rows = append(rows, Row{Cliente: c, State: Committed})
	}
	b.rows = rows
}

// refetch reloads after a successful mutation. A failure is reported but the
// mutation itself already succeeded.
func (b *Board) refetch(ctx context.Context) error {
	if err := b.Load(ctx); err != nil {
		slog.Warn("refetch after submit failed", "error", err)
	}
	return nil
}

func (b *Board) indexOf(id string) int {
	for i, r := range b.rows {
		if r.Cliente.ID == id {
			return i
		}
	}
	return -1
}

// notify must be called with mu held.
func (b *Board) notify(format string, args ...any) {
	if b.notices == nil {
		return
	}
	b.notices.Notice(fmt.Sprintf(format, args...))
}
