package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/field-audit/internal/audit"
)

// Backend keys. They match the names the original browser build used so
// backups move between the two.
const (
	KeyUsers   = "audit_local_users_db"
	KeyDraft   = "audit_active_session_draft"
	KeyReports = "audit_reports_history"
	KeyPlans   = "audit_plans_history"
	KeySession = "audit_user_session"
)

// ErrEmailExists is returned when registering an address that is taken.
var ErrEmailExists = errors.New("store: email already registered")

// Store is the local persistence layer: registered users, the draft session,
// report and plan histories, and the active login. It assumes a single
// writer and does no locking of its own.
type Store struct {
	backend Backend
	log     logrus.FieldLogger

	users   Table[audit.User]
	draft   Table[audit.Observation]
	reports Table[audit.SavedReport]
	plans   Table[audit.AuditPlan]
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithLogger routes store diagnostics to log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     logrus.StandardLogger(),
		users:   NewTable(backend, KeyUsers, func(u audit.User) string { return audit.NormalizeEmail(u.Email) }, Append),
		draft:   NewTable(backend, KeyDraft, func(o audit.Observation) string { return o.ID }, Append),
		reports: NewTable(backend, KeyReports, func(r audit.SavedReport) string { return r.ID }, Prepend),
		plans:   NewTable(backend, KeyPlans, func(p audit.AuditPlan) string { return p.ID }, Prepend),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "store")
	return s
}

// Users returns every registered user.
func (s *Store) Users() ([]audit.User, error) {
	return s.users.List()
}

// RegisterUser stores a new user. Emails are compared case-insensitively.
func (s *Store) RegisterUser(u audit.User) error {
	u.Email = audit.NormalizeEmail(u.Email)
	if u.Email == "" {
		return fmt.Errorf("store: email is required")
	}
	_, exists, err := s.users.Get(u.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailExists
	}
	if !u.Role.IsValid() {
		return fmt.Errorf("store: unknown role %q", u.Role)
	}
	if err := s.users.Put(u); err != nil {
		return err
	}
	s.log.WithField("email", u.Email).Info("user registered")
	return nil
}

// FindUser looks a user up by email, case-insensitively.
func (s *Store) FindUser(email string) (audit.User, bool, error) {
	return s.users.Get(audit.NormalizeEmail(email))
}

// Draft returns the persisted draft session.
func (s *Store) Draft() ([]audit.Observation, error) {
	return s.draft.List()
}

// SaveDraft overwrites the persisted draft session with obs.
func (s *Store) SaveDraft(obs []audit.Observation) error {
	if err := s.draft.ReplaceAll(obs); err != nil {
		return err
	}
	s.log.WithField("observations", len(obs)).Debug("draft saved")
	return nil
}

// ClearDraft drops the draft session.
func (s *Store) ClearDraft() error {
	return s.draft.Clear()
}

// Reports returns report history, newest first.
func (s *Store) Reports() ([]audit.SavedReport, error) {
	return s.reports.List()
}

// SaveReport puts r at the head of history and clears the draft session
// that produced it. The draft is restored if the history write fails.
func (s *Store) SaveReport(r audit.SavedReport) error {
	draft, err := s.draft.List()
	if err != nil {
		return err
	}
	if err := s.ClearDraft(); err != nil {
		return err
	}
	if err := s.RecordReport(r); err != nil {
		if restoreErr := s.draft.ReplaceAll(draft); restoreErr != nil {
			s.log.WithError(restoreErr).Error("draft restore failed")
		}
		return err
	}
	return nil
}

// RecordReport puts r at the head of history without touching the draft.
func (s *Store) RecordReport(r audit.SavedReport) error {
	if err := s.reports.Put(r); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"report": r.ID, "findings": len(r.Findings)}).Info("report saved")
	return nil
}

// DeleteReport removes the report with id.
func (s *Store) DeleteReport(id string) error {
	removed, err := s.reports.Delete(id)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"report": id, "removed": removed}).Info("report deleted")
	return nil
}

// Plans returns plan history, newest first.
func (s *Store) Plans() ([]audit.AuditPlan, error) {
	return s.plans.List()
}

// SavePlan appends p to plan history, replacing an earlier copy with the same id.
func (s *Store) SavePlan(p audit.AuditPlan) error {
	if err := s.plans.Put(p); err != nil {
		return err
	}
	s.log.WithField("plan", p.ID).Info("plan saved")
	return nil
}

// DeletePlan removes the plan with id.
func (s *Store) DeletePlan(id string) error {
	removed, err := s.plans.Delete(id)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"plan": id, "removed": removed}).Info("plan deleted")
	return nil
}

// Session returns the logged-in user, or nil when nobody is logged in.
func (s *Store) Session() (*audit.User, error) {
	data, err := s.backend.Get(KeySession)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read session: %w", err)
	}
	var u audit.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("store: decode session: %w", err)
	}
	return &u, nil
}

// SaveSession records u as the logged-in user.
func (s *Store) SaveSession(u audit.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("store: encode session: %w", err)
	}
	if err := s.backend.Set(KeySession, data); err != nil {
		return fmt.Errorf("store: write session: %w", err)
	}
	return nil
}

// ClearSession logs the current user out.
func (s *Store) ClearSession() error {
	if err := s.backend.Delete(KeySession); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}
