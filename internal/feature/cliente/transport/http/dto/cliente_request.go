// Package dto defines data transfer objects for the cliente feature's HTTP transport layer.
package dto

import (
	"cliente_backend/internal/api"
	"cliente_backend/internal/feature/cliente/domain/entity"
)

// CreateClienteReq is the body of POST /clientes. Every field is mandatory.
type CreateClienteReq struct {
	Nome     string `json:"nome" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Telefone string `json:"telefone" binding:"required"`
	Endereco string `json:"endereco" binding:"required"`
}

// ToInput converts the request to the domain input.
func (r CreateClienteReq) ToInput() entity.ClienteInput {
	return entity.ClienteInput{
		Nome:     r.Nome,
		Email:    r.Email,
		Telefone: r.Telefone,
		Endereco: r.Endereco,
	}
}

// UpdateClienteReq is the body of PATCH/PUT /clientes/:id.
// Absent fields are left untouched.
type UpdateClienteReq struct {
	Nome     *string `json:"nome"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Telefone *string `json:"telefone"`
	Endereco *string `json:"endereco"`
}

// ToPatch converts the request to a domain patch.
func (r UpdateClienteReq) ToPatch() entity.ClientePatch {
	return entity.ClientePatch{
		Nome:     r.Nome,
		Email:    r.Email,
		Telefone: r.Telefone,
		Endereco: r.Endereco,
	}
}

// FromEntity builds the wire form of c.
func FromEntity(c entity.Cliente) api.ClienteResponse {
	return api.ClienteResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Nome:      c.Nome,
		Email:     c.Email,
		Telefone:  c.Telefone,
		Endereco:  c.Endereco,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

// FromEntities keeps the input order and never returns nil.
func FromEntities(list []entity.Cliente) []api.ClienteResponse {
	out := make([]api.ClienteResponse, 0, len(list))
	for _, c := range list {
		out = append(out, FromEntity(c))
	}
	return out
}
