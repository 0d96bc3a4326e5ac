package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"incident-service/models"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned when a status update targets an
// unknown report id.
var ErrReportNotFound = errors.New("report not found")

// ReportService handles report persistence
type ReportService struct {
	db *sql.DB
}

// NewReportService creates a new report service instance
func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{
		db: db,
	}
}

// CreateReport persists a new report. The id, submission timestamp,
// and the Pending default status are assigned server-side; whatever
// the caller put in those fields is overwritten.
func (s *ReportService) CreateReport(ctx context.Context, r *models.Report) error {
	r.ID = uuid.NewString()
	r.SubmittedAt = time.Now().UTC()
	r.Status = models.StatusPending

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, location, description, photo, submitted_at, reporter_name, reporter_email, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Location, r.Description, nullable(r.Photo), r.SubmittedAt,
		r.ReporterName, r.ReporterEmail, string(r.Status))
	if err != nil {
		log.Printf("ERROR: Failed to insert report: %v", err)
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

// ListReports fetches every report in one batch, newest first. No
// pagination; the admin view always reflects store state at fetch time.
func (s *ReportService) ListReports(ctx context.Context) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, description, photo, submitted_at, reporter_name, reporter_email, status
		FROM reports
		ORDER BY submitted_at DESC`)
	if err != nil {
		log.Printf("ERROR: Failed to query reports: %v", err)
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var r models.Report
		var photo sql.NullString
		var status string

		if err := rows.Scan(&r.ID, &r.Location, &r.Description, &photo,
			&r.SubmittedAt, &r.ReporterName, &r.ReporterEmail, &status); err != nil {
			log.Printf("ERROR: Failed to scan report row: %v", err)
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}

		r.Photo = photo.String
		r.Status = models.Status(status)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}

	return reports, nil
}

// UpdateReportStatus overwrites the status field unconditionally. No
// version token, no history: concurrent updates race and the last
// write wins.
func (s *ReportService) UpdateReportStatus(ctx context.Context, id string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE reports SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		log.Printf("ERROR: Failed to update report status: %v", err)
		return fmt.Errorf("failed to update report status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// MySQL reports zero affected rows both for a missing report
		// and for a no-op rewrite of the same status, so distinguish.
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM reports WHERE id = ?", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrReportNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check report existence: %w", err)
		}
	}

	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
