package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Placement decides where Put inserts a record whose id is new.
type Placement int

const (
	// Append adds new records at the tail (users, draft observations).
	Append Placement = iota
	// Prepend adds new records at the head (report and plan histories).
	Prepend
)

// Table is a typed, ordered record set persisted as one JSON array under a
// single backend key.
type Table[T any] struct {
	backend   Backend
	key       string
	id        func(T) string
	placement Placement
}

// NewTable binds a record set to a backend key.
func NewTable[T any](backend Backend, key string, id func(T) string, placement Placement) Table[T] {
	return Table[T]{backend: backend, key: key, id: id, placement: placement}
}

// List returns every record in stored order. A missing key is an empty set.
func (t Table[T]) List() ([]T, error) {
	data, err := t.backend.Get(t.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", t.key, err)
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", t.key, err)
	}
	return records, nil
}

// Get looks a record up by id.
func (t Table[T]) Get(id string) (T, bool, error) {
	var zero T
	records, err := t.List()
	if err != nil {
		return zero, false, err
	}
	for _, rec := range records {
		if t.id(rec) == id {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// Put replaces the record with the same id in place, or inserts it according
// to the table's placement.
func (t Table[T]) Put(rec T) error {
	records, err := t.List()
	if err != nil {
		return err
	}
	id := t.id(rec)
	for i := range records {
		if t.id(records[i]) == id {
			records[i] = rec
			return t.ReplaceAll(records)
		}
	}
	if t.placement == Prepend {
		records = append([]T{rec}, records...)
	} else {
		records = append(records, rec)
	}
	return t.ReplaceAll(records)
}

// Delete removes the record with id, keeping the order of the rest. It
// reports whether anything was removed.
func (t Table[T]) Delete(id string) (bool, error) {
	records, err := t.List()
	if err != nil {
		return false, err
	}
	kept := records[:0]
	removed := false
	for _, rec := range records {
		if t.id(rec) == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return false, nil
	}
	return true, t.ReplaceAll(kept)
}

// ReplaceAll overwrites the whole set.
func (t Table[T]) ReplaceAll(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", t.key, err)
	}
	if err := t.backend.Set(t.key, data); err != nil {
		return fmt.Errorf("store: write %s: %w", t.key, err)
	}
	return nil
}

// Clear removes the key entirely.
func (t Table[T]) Clear() error {
	if err := t.backend.Delete(t.key); err != nil {
		return fmt.Errorf("store: delete %s: %w", t.key, err)
	}
	return nil
}
