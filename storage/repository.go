// Package storage provides the sealed-record storage used for client-side
// state that must outlive a single command, such as session cookies.
package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNamespaceNotFound is returned when no record was ever written to a namespace.
	ErrNamespaceNotFound = errors.New("namespace not found")
)

// Repository stores sealed records addressed by namespace, type and id.
type Repository interface {
	Put(namespace, recordType, recordID string, envelope *Envelope) error
	Get(namespace, recordType, recordID string) (*Envelope, error)
	Delete(namespace, recordType, recordID string) error
	List(namespace, recordType string) ([]string, error)
}
