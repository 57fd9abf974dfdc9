// Package entity defines the domain entities for the cliente feature.
package entity

import "time"

// Cliente is a customer record owned by exactly one user.
// ID, UserID and CreatedAt are assigned by the store and never change afterwards.
type Cliente struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Nome      string    `json:"nome"`
	Email     string    `json:"email"`
	Telefone  string    `json:"telefone"`
	Endereco  string    `json:"endereco"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClienteInput carries the user-editable fields of a new Cliente.
type ClienteInput struct {
	Nome     string
	Email    string
	Telefone string
	Endereco string
}

// ClientePatch is a partial update. Nil fields are left untouched.
type ClientePatch struct {
	Nome     *string
	Email    *string
	Telefone *string
	Endereco *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ClientePatch) IsEmpty() bool {
	return p.Nome == nil && p.Email == nil && p.Telefone == nil && p.Endereco == nil
}

// Apply copies the non-nil patch fields onto c.
func (p ClientePatch) Apply(c *Cliente) {
	if p.Nome != nil {
		c.Nome = *p.Nome
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Telefone != nil {
		c.Telefone = *p.Telefone
	}
	if p.Endereco != nil {
		c.Endereco = *p.Endereco
	}
}

// DiffPatch builds a patch holding only the fields of in that differ from current.
// The result is empty when in matches current.
func DiffPatch(current Cliente, in ClienteInput) ClientePatch {
	var p ClientePatch
	if in.Nome != current.Nome {
		p.Nome = &in.Nome
	}
	if in.Email != current.Email {
		p.Email = &in.Email
	}
	if in.Telefone != current.Telefone {
		p.Telefone = &in.Telefone
	}
	if in.Endereco != current.Endereco {
		p.Endereco = &in.Endereco
	}
	return p
}
