// Package storage holds the error vocabulary shared by every persistence
// driver. Usecases translate these into their own sentinels.
package storage

import "errors"

var (
	ErrNotFound        = errors.New("storage: row not found")
	ErrDuplicate       = errors.New("storage: unique constraint violated")
	ErrVersionConflict = errors.New("storage: version conflict")
)
