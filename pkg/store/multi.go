package store

import (
	"context"
	"errors"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
)

// Multi fans each record out to several stores. Every store receives the
// record even when an earlier one fails; failures are joined into one
// error.
type Multi struct {
	stores []audit.Store
}

// NewMulti creates a Multi over the given stores. Nil entries are dropped.
func NewMulti(stores ...audit.Store) *Multi {
	valid := make([]audit.Store, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			valid = append(valid, s)
		}
	}
	return &Multi{stores: valid}
}

// Store writes the record to every underlying store.
func (m *Multi) Store(ctx context.Context, rec *audit.Record) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Store(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every underlying store.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ audit.Store = (*Multi)(nil)
