package models

import "time"

// Status is the administrative state of a report. Transitions are
// unconstrained: any status may be set from any other, last write wins,
// and no history is retained.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusCompleted    Status = "Completed"
	StatusScheduled    Status = "Scheduled"
	StatusExternalHelp Status = "ExternalHelpNeeded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusScheduled, StatusExternalHelp:
		return true
	}
	return false
}

// Report is one submitted maintenance incident. ReporterName and
// ReporterEmail are snapshots of the submitting identity at submission
// time; they are never synced with later profile changes.
type Report struct {
	ID            string    `json:"id"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	Photo         string    `json:"photo,omitempty"` // data URL or public URL, per deployment mode
	SubmittedAt   time.Time `json:"submitted_at"`
	ReporterName  string    `json:"reporter_name"`
	ReporterEmail string    `json:"reporter_email"`
	Status        Status    `json:"status"`
}

// Staff is a registered reporter account.
type Staff struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SignupRequest represents the request to register a staff account
type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=256"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents the authentication request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the authentication response. IsAdmin is a
// routing hint for clients; the server re-checks the allow-list on
// every admin endpoint.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
}

// SubmitReportResponse carries the persisted report plus an optional
// warning when the attached photo could not be processed (the report is
// still persisted without it).
type SubmitReportResponse struct {
	Report       *Report `json:"report"`
	PhotoWarning string  `json:"photo_warning,omitempty"`
}

// StatusUpdateRequest represents an administrator status change
type StatusUpdateRequest struct {
	Status Status `json:"status" binding:"required"`
}

// ListReportsResponse represents the admin report listing
type ListReportsResponse struct {
	Reports []Report `json:"reports"`
	Count   int      `json:"count"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
