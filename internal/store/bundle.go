package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kingrea/field-audit/internal/audit"
)

// ErrInvalidBundle is returned when a backup document cannot be applied.
var ErrInvalidBundle = errors.New("store: invalid backup bundle")

// Bundle is the portable backup document. Users are embedded as an array;
// the histories and the draft are carried as the raw JSON text of their
// keys, the layout earlier backups were written in.
type Bundle struct {
	Users   []audit.User `json:"users"`
	Reports *string      `json:"reports"`
	Plans   *string      `json:"plans"`
	Draft   *string      `json:"draft"`
}

// ExportBundle serialises every persisted record set except the session.
func (s *Store) ExportBundle() ([]byte, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []audit.User{}
	}
	b := Bundle{Users: users}
	if b.Reports, err = s.rawValue(KeyReports); err != nil {
		return nil, err
	}
	if b.Plans, err = s.rawValue(KeyPlans); err != nil {
		return nil, err
	}
	if b.Draft, err = s.rawValue(KeyDraft); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: encode bundle: %w", err)
	}
	return data, nil
}

func (s *Store) rawValue(key string) (*string, error) {
	data, err := s.backend.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	v := string(data)
	return &v, nil
}

// ImportBundle applies a backup document. The whole document is decoded and
// checked before anything is written. Sections that are absent, null or an
// empty string leave their key untouched; an empty users array still
// overwrites the user table.
func (s *Store) ImportBundle(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return fmt.Errorf("%w: not a json object", ErrInvalidBundle)
	}

	type write struct {
		key   string
		value []byte
	}
	var writes []write

	if raw, ok := present(doc["users"]); ok {
		var users []audit.User
		if err := json.Unmarshal(raw, &users); err != nil {
			return fmt.Errorf("%w: users: %v", ErrInvalidBundle, err)
		}
		for i := range users {
			users[i].Email = audit.NormalizeEmail(users[i].Email)
		}
		encoded, err := json.Marshal(users)
		if err != nil {
			return fmt.Errorf("store: encode users: %w", err)
		}
		writes = append(writes, write{KeyUsers, encoded})
	}

	sections := []struct {
		field string
		key   string
		check func([]byte) error
	}{
		{"reports", KeyReports, decodes[[]audit.SavedReport]},
		{"plans", KeyPlans, decodes[[]audit.AuditPlan]},
		{"draft", KeyDraft, decodes[[]audit.Observation]},
	}
	for _, sec := range sections {
		raw, ok := present(doc[sec.field])
		if !ok {
			continue
		}
		value, err := sectionValue(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidBundle, sec.field, err)
		}
		if value == nil {
			continue
		}
		if err := sec.check(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidBundle, sec.field, err)
		}
		writes = append(writes, write{sec.key, value})
	}

	for _, w := range writes {
		if err := s.backend.Set(w.key, w.value); err != nil {
			return fmt.Errorf("store: write %s: %w", w.key, err)
		}
	}
	s.log.WithField("sections", len(writes)).Info("backup imported")
	return nil
}

func present(raw json.RawMessage) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	return trimmed, true
}

// sectionValue unwraps a section that may be stored either as a JSON string
// holding the document or as the document itself. A nil result means the
// section is an empty string.
func sectionValue(raw json.RawMessage) ([]byte, error) {
	if raw[0] != '"' {
		return raw, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	return []byte(text), nil
}

func decodes[T any](data []byte) error {
	var v T
	return json.Unmarshal(data, &v)
}
