// Package usecase implements the business logic for the cliente feature.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cliente_backend/internal/feature/cliente/domain"
	"cliente_backend/internal/feature/cliente/domain/entity"
)

// ClienteRepository abstracts the store holding Cliente records.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
// Every method is scoped to ownerID; a record owned by someone else behaves as if it did not exist.
type ClienteRepository interface {
	// Create persists a new Cliente. The store assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, ownerID string, in entity.ClienteInput) (*entity.Cliente, error)

	// Update applies the non-nil fields of patch and returns the stored record.
	// It returns domain.ErrClienteNotFound if id is not owned by ownerID.
	Update(ctx context.Context, ownerID, id string, patch entity.ClientePatch) (*entity.Cliente, error)

	// Delete removes the record. A second call for the same id returns domain.ErrClienteNotFound.
	Delete(ctx context.Context, ownerID, id string) error

	// Get retrieves a single record.
	Get(ctx context.Context, ownerID, id string) (*entity.Cliente, error)

	// List returns every record of ownerID, newest first.
	List(ctx context.Context, ownerID string) ([]entity.Cliente, error)
}

// ChangeNotifier carries change signals between writers and subscribers.
type ChangeNotifier interface {
	// Publish signals subscribers of ev.OwnerID.
	Publish(ctx context.Context, ev entity.ChangeEvent) error

	// Subscribe registers a listener for ownerID. The returned release func must be called
	// to free the listener; the channel is closed afterwards.
	Subscribe(ctx context.Context, ownerID string) (<-chan entity.ChangeEvent, func(), error)
}

// ClienteUsecase provides the owner-scoped CRUD operations and the change feed.
type ClienteUsecase struct {
	repo     ClienteRepository
	notifier ChangeNotifier
}

// NewClienteUsecase creates a new ClienteUsecase.
func NewClienteUsecase(repo ClienteRepository, notifier ChangeNotifier) *ClienteUsecase {
	return &ClienteUsecase{repo: repo, notifier: notifier}
}

type field struct {
	name  string
	value *string
}

// fields lists the editable fields in form order so validation errors are stable.
func fields(nome, email, telefone, endereco *string) []field {
	return []field{
		{"nome", nome},
		{"email", email},
		{"telefone", telefone},
		{"endereco", endereco},
	}
}

func validateInput(in entity.ClienteInput) error {
	for _, f := range fields(&in.Nome, &in.Email, &in.Telefone, &in.Endereco) {
		if strings.TrimSpace(*f.value) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidCliente, f.name)
		}
	}
	return nil
}

func validatePatch(p entity.ClientePatch) error {
	if p.IsEmpty() {
		return domain.ErrEmptyPatch
	}
	for _, f := range fields(p.Nome, p.Email, p.Telefone, p.Endereco) {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return fmt.Errorf("%w: %s cannot be blank", domain.ErrInvalidCliente, f.name)
		}
	}
	return nil
}

// Create registers a new Cliente for ownerID.
func (u *ClienteUsecase) Create(ctx context.Context, ownerID string, in entity.ClienteInput) (*entity.Cliente, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c, err := u.repo.Create(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	u.publish(ctx, ownerID, entity.ChangeCreated, c.ID)
	return c, nil
}

// Update changes only the fields present in patch.
func (u *ClienteUsecase) Update(ctx context.Context, ownerID, id string, patch entity.ClientePatch) (*entity.Cliente, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	c, err := u.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	u.publish(ctx, ownerID, entity.ChangeUpdated, id)
	return c, nil
}

// Delete removes a Cliente.
func (u *ClienteUsecase) Delete(ctx context.Context, ownerID, id string) error {
	if err := u.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	u.publish(ctx, ownerID, entity.ChangeDeleted, id)
	return nil
}

// Get returns a single Cliente.
func (u *ClienteUsecase) Get(ctx context.Context, ownerID, id string) (*entity.Cliente, error) {
	return u.repo.Get(ctx, ownerID, id)
}

// List returns the owner's Clientes, newest first.
func (u *ClienteUsecase) List(ctx context.Context, ownerID string) ([]entity.Cliente, error) {
	return u.repo.List(ctx, ownerID)
}

// Subscribe calls onChange with the owner's full list every time a change signal arrives.
// The returned func stops the subscription; ctx cancellation does the same.
func (u *ClienteUsecase) Subscribe(ctx context.Context, ownerID string, onChange func([]entity.Cliente)) (func(), error) {
	if u.notifier == nil {
		return nil, ErrNoChangeFeed
	}
	subCtx, cancel := context.WithCancel(ctx)
	events, release, err := u.notifier.Subscribe(subCtx, ownerID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				list, err := u.repo.List(subCtx, ownerID)
				if err != nil {
					if subCtx.Err() != nil {
						return
					}
					slog.Warn("refetch after change failed", "owner_id", ownerID, "error", err)
					continue
				}
				onChange(list)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			release()
		})
	}, nil
}

// publish is best effort: the mutation already succeeded.
func (u *ClienteUsecase) publish(ctx context.Context, ownerID string, kind entity.ChangeKind, id string) {
	if u.notifier == nil {
		return
	}
	ev := entity.ChangeEvent{OwnerID: ownerID, Kind: kind, ClienteID: id, At: time.Now().UTC()}
	if err := u.notifier.Publish(ctx, ev); err != nil {
		slog.Warn("change publish failed", "owner_id", ownerID, "kind", kind, "error", err)
	}
}
