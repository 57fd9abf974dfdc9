package entity

import "time"

// ChangeKind identifies the mutation behind a ChangeEvent.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent signals that the owner's set of Clientes changed.
// Subscribers treat it as a refetch trigger only; it is never applied as a diff.
type ChangeEvent struct {
	OwnerID   string     `json:"ownerId"`
	Kind      ChangeKind `json:"kind"`
	ClienteID string     `json:"clienteId"`
	At        time.Time  `json:"at"`
}
