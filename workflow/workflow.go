// Package workflow implements the submission/authorization flow over
// the views {Unauthenticated, FormEntry, AdminPanel, Success}. The
// machine owns no external handles: store, normalizer, uploader, and
// exporter are injected so every transition runs against test doubles.
package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"incident-service/config"
	"incident-service/image"
	"incident-service/models"
	"incident-service/storage"

	"github.com/apex/log"
)

type State int

const (
	Unauthenticated State = iota
	FormEntry
	AdminPanel
	Success
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "Unauthenticated"
	case FormEntry:
		return "FormEntry"
	case AdminPanel:
		return "AdminPanel"
	case Success:
		return "Success"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Identity is the signed-in session: display name, email, and the
// allow-list classification. It lives only as long as the machine and
// is never persisted.
type Identity struct {
	Name       string
	Email      string
	Privileged bool
}

// Store is the report persistence consumed by the machine.
type Store interface {
	CreateReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context) ([]models.Report, error)
	UpdateReportStatus(ctx context.Context, id string, status models.Status) error
}

// Normalizer converts a raw photo into its bounded JPEG form.
type Normalizer interface {
	Normalize(data []byte) (*image.Result, error)
}

// Exporter writes the loaded report list as a spreadsheet.
type Exporter interface {
	Write(reports []models.Report, w io.Writer) error
}

// ValidationError reports a required submission field left empty.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return e.Field + " is required" }

// ErrInvalidTransition is returned when an event fires in a state
// whose transition table has no row for it.
type ErrInvalidTransition struct {
	Event string
	State State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("event %s not allowed in state %s", e.Event, e.State)
}

// ErrNotPrivileged is returned when a non-admin identity fires an
// admin-only event.
type ErrNotPrivileged struct {
	Email string
}

func (e *ErrNotPrivileged) Error() string {
	return fmt.Sprintf("%s is not on the administrator allow-list", e.Email)
}

// Machine is one session's workflow. Events suspend nothing and never
// terminate the machine: failures become the Notice diagnostic and an
// error return, and the prior view state survives.
type Machine struct {
	mu      sync.Mutex
	state   State
	ident   *Identity
	reports []models.Report
	notice  string

	store        Store
	normalizer   Normalizer
	uploader     storage.ObjectStore
	exporter     Exporter
	photoMode    config.PhotoMode
	successDelay time.Duration
	autoAdvance  bool
}

type Option func(*Machine)

// WithUploader sets the object store used by the upload photo mode.
func WithUploader(u storage.ObjectStore) Option {
	return func(m *Machine) { m.uploader = u }
}

// WithExporter sets the spreadsheet sink for the admin export action.
func WithExporter(e Exporter) Option {
	return func(m *Machine) { m.exporter = e }
}

// WithPhotoMode selects inline data URLs or uploaded references.
func WithPhotoMode(mode config.PhotoMode) Option {
	return func(m *Machine) { m.photoMode = mode }
}

// WithSuccessDelay sets how long the Success view lingers before the
// timer advances it.
func WithSuccessDelay(d time.Duration) Option {
	return func(m *Machine) { m.successDelay = d }
}

// WithAutoAdvance schedules TimerElapsed automatically after a
// successful submission. Off by default: request-scoped sessions and
// tests fire the timer event explicitly.
func WithAutoAdvance() Option {
	return func(m *Machine) { m.autoAdvance = true }
}

func New(store Store, normalizer Normalizer, opts ...Option) *Machine {
	m := &Machine{
		state:        Unauthenticated,
		store:        store,
		normalizer:   normalizer,
		photoMode:    config.PhotoModeInline,
		successDelay: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Notice is the last user-visible diagnostic (validation failures,
// photo warnings, persistence errors). Empty when the last action
// succeeded cleanly.
func (m *Machine) Notice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

func (m *Machine) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ident == nil {
		return nil
	}
	ident := *m.ident
	return &ident
}

// Reports returns the currently loaded list, newest first. The slice
// is a copy; a failed reload never clears it.
func (m *Machine) Reports() []models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Report, len(m.reports))
	copy(out, m.reports)
	return out
}

// SignIn completes authentication. Privileged identities land on the
// admin panel with the report list loaded; everyone else gets the
// submission form.
func (m *Machine) SignIn(ctx context.Context, ident Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Unauthenticated {
		return &ErrInvalidTransition{Event: "sign-in", State: m.state}
	}

	m.ident = &ident
	m.notice = ""

	if !ident.Privileged {
		m.state = FormEntry
		return nil
	}

	m.state = AdminPanel
	return m.reloadLocked(ctx)
}

// SignInFailed surfaces an authentication failure; the view stays put.
func (m *Machine) SignInFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notice = "sign-in failed: " + err.Error()
}

// SignOut discards the session from any signed-in view.
func (m *Machine) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Unauthenticated
	m.ident = nil
	m.reports = nil
	m.notice = ""
}

// Submit validates and persists a new report. Both required fields are
// checked independently; a validation failure persists nothing and
// keeps the form view. A broken photo never blocks the submission: the
// report is stored without it and the returned warning says why.
func (m *Machine) Submit(ctx context.Context, location, description string, photo []byte) (*models.Report, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != FormEntry {
		return nil, "", &ErrInvalidTransition{Event: "submit", State: m.state}
	}

	if strings.TrimSpace(location) == "" {
		m.notice = "location is required"
		return nil, "", &ValidationError{Field: "location"}
	}
	if strings.TrimSpace(description) == "" {
		m.notice = "description is required"
		return nil, "", &ValidationError{Field: "description"}
	}

	photoRef, warning := m.attachPhotoLocked(ctx, photo)

	report := &models.Report{
		Location:      location,
		Description:   description,
		Photo:         photoRef,
		ReporterName:  m.ident.Name,
		ReporterEmail: m.ident.Email,
	}
	if err := m.store.CreateReport(ctx, report); err != nil {
		m.notice = "failed to save the report"
		return nil, warning, err
	}

	m.notice = warning
	m.state = Success
	if m.autoAdvance {
		time.AfterFunc(m.successDelay, func() {
			if err := m.TimerElapsed(context.Background()); err != nil {
				log.WithError(err).Warn("success timer fired out of turn")
			}
		})
	}
	return report, warning, nil
}

// TimerElapsed leaves the Success view: privileged submitters return
// to the admin panel with a fresh list, everyone else is signed out.
func (m *Machine) TimerElapsed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Success {
		return &ErrInvalidTransition{Event: "timer", State: m.state}
	}

	if m.ident != nil && m.ident.Privileged {
		m.state = AdminPanel
		return m.reloadLocked(ctx)
	}

	m.state = Unauthenticated
	m.ident = nil
	m.reports = nil
	return nil
}

// SetStatus overwrites a report's status and reloads the list. Flat
// relabeling: any status may follow any other, last write wins.
func (m *Machine) SetStatus(ctx context.Context, id string, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != AdminPanel {
		return &ErrInvalidTransition{Event: "set-status", State: m.state}
	}
	if err := m.requirePrivilegeLocked(); err != nil {
		return err
	}

	if err := m.store.UpdateReportStatus(ctx, id, status); err != nil {
		m.notice = "failed to update report status"
		return err
	}
	// The write took; a failed reload only dates the displayed list.
	_ = m.reloadLocked(ctx)
	return nil
}

// Export writes the loaded list to w. No state change.
func (m *Machine) Export(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != AdminPanel {
		return &ErrInvalidTransition{Event: "export", State: m.state}
	}
	if err := m.requirePrivilegeLocked(); err != nil {
		return err
	}
	if m.exporter == nil {
		return fmt.Errorf("no exporter configured")
	}
	return m.exporter.Write(m.reports, w)
}

// NewReport moves an administrator to the submission form.
func (m *Machine) NewReport() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != AdminPanel {
		return &ErrInvalidTransition{Event: "new-report", State: m.state}
	}
	if err := m.requirePrivilegeLocked(); err != nil {
		return err
	}
	m.state = FormEntry
	return nil
}

func (m *Machine) requirePrivilegeLocked() error {
	if m.ident == nil || !m.ident.Privileged {
		email := ""
		if m.ident != nil {
			email = m.ident.Email
		}
		return &ErrNotPrivileged{Email: email}
	}
	return nil
}

// attachPhotoLocked runs the normalize-then-attach pipeline. Any
// failure is converted to a warning and the submission proceeds
// photoless: no revision of this workflow ever hard-failed on a photo.
func (m *Machine) attachPhotoLocked(ctx context.Context, photo []byte) (ref, warning string) {
	if len(photo) == 0 {
		return "", ""
	}
	if m.normalizer == nil {
		return "", "photo processing unavailable, report submitted without photo"
	}

	res, err := m.normalizer.Normalize(photo)
	if err != nil {
		log.WithError(err).Warn("photo normalization failed")
		return "", "photo could not be processed, report submitted without photo"
	}

	if m.photoMode == config.PhotoModeUpload {
		if m.uploader == nil {
			return "", "photo storage unavailable, report submitted without photo"
		}
		url, err := m.uploader.Upload(ctx, storage.ObjectName(), res.Data)
		if err != nil {
			log.WithError(err).Warn("photo upload failed")
			return "", "photo could not be uploaded, report submitted without photo"
		}
		return url, ""
	}

	return res.DataURL(), ""
}

// reloadLocked refetches the full list. On failure the previously
// loaded list stays displayed and the failure becomes the notice.
func (m *Machine) reloadLocked(ctx context.Context) error {
	reports, err := m.store.ListReports(ctx)
	if err != nil {
		log.WithError(err).Error("report list reload failed")
		m.notice = "failed to load reports"
		return err
	}
	m.reports = reports
	return nil
}
