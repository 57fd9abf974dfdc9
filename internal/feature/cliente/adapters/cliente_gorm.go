// Package adapters provides the relational repository implementation for the cliente feature.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cliente_backend/internal/feature/cliente/domain"
	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/cliente/usecase"
)

// clienteGorm is a GORM implementation of the ClienteRepository interface.
// It works against MySQL, PostgreSQL and SQLite.
type clienteGorm struct {
	db  *gorm.DB
	now func() time.Time
}

// Compile-time check to ensure clienteGorm implements ClienteRepository.
var _ usecase.ClienteRepository = (*clienteGorm)(nil)

// NewClienteRepository creates a new relational ClienteRepository.
func NewClienteRepository(db *gorm.DB) *clienteGorm {
	return &clienteGorm{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new row with a fresh ID and the current time.
func (r *clienteGorm) Create(ctx context.Context, ownerID string, in entity.ClienteInput) (*entity.Cliente, error) {
	now := r.now()
	m := ClienteModel{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Nome:      in.Nome,
		Email:     in.Email,
		Telefone:  in.Telefone,
		Endereco:  in.Endereco,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create cliente: %w", err)
	}
	c := m.ToEntity()
	return &c, nil
}

// Update applies the patch inside a transaction so that a missing row is reported
// even when the new values equal the stored ones.
func (r *clienteGorm) Update(ctx context.Context, ownerID, id string, patch entity.ClientePatch) (*entity.Cliente, error) {
	var m ClienteModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrClienteNotFound
			}
			return err
		}

		cols := patchColumns(patch)
		cols["updated_at"] = r.now()
		if err := tx.Model(&ClienteModel{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, ownerID).First(&m).Error
	})
	if errors.Is(err, domain.ErrClienteNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cliente: %w", err)
	}
	c := m.ToEntity()
	return &c, nil
}

// Delete removes the row owned by ownerID.
func (r *clienteGorm) Delete(ctx context.Context, ownerID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&ClienteModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cliente: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrClienteNotFound
	}
	return nil
}

// Get retrieves a single row owned by ownerID.
func (r *clienteGorm) Get(ctx context.Context, ownerID, id string) (*entity.Cliente, error) {
	var m ClienteModel
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrClienteNotFound
		}
		return nil, fmt.Errorf("failed to get cliente: %w", err)
	}
	c := m.ToEntity()
	return &c, nil
}

// List returns the owner's rows ordered by created_at DESC.
func (r *clienteGorm) List(ctx context.Context, ownerID string) ([]entity.Cliente, error) {
	var models []ClienteModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list clientes: %w", err)
	}

	out := make([]entity.Cliente, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToEntity())
	}
	return out, nil
}
