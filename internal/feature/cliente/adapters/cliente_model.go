package adapters

import (
	"time"

	"cliente_backend/internal/feature/cliente/domain/entity"
)

// ClienteModel is the GORM model for the clientes table.
type ClienteModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index:idx_clientes_user_created,priority:1"`
	Nome      string    `gorm:"size:255;not null"`
	Email     string    `gorm:"size:255;not null"`
	Telefone  string    `gorm:"size:64;not null"`
	Endereco  string    `gorm:"size:1024;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_clientes_user_created,priority:2"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (ClienteModel) TableName() string {
	return "clientes"
}

// ToEntity converts the GORM model to a domain entity.
func (m *ClienteModel) ToEntity() entity.Cliente {
	return entity.Cliente{
		ID:        m.ID,
		UserID:    m.UserID,
		Nome:      m.Nome,
		Email:     m.Email,
		Telefone:  m.Telefone,
		Endereco:  m.Endereco,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// patchColumns maps the non-nil patch fields to their column names.
func patchColumns(p entity.ClientePatch) map[string]any {
	cols := map[string]any{}
	if p.Nome != nil {
		cols["nome"] = *p.Nome
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Telefone != nil {
		cols["telefone"] = *p.Telefone
	}
	if p.Endereco != nil {
		cols["endereco"] = *p.Endereco
	}
	return cols
}
