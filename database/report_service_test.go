package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"incident-service/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func TestCreateReport(t *testing.T) {
	it(func() {
		s := NewReportService(db)
		report := &models.Report{
			Location:      "Room 4",
			Description:   "Broken window",
			ReporterName:  "Alice Teacher",
			ReporterEmail: "teacher@example.com",
		}

		mock.ExpectExec("INSERT INTO reports \\(id, location, description, photo, submitted_at, reporter_name, reporter_email, status\\)").
			WithArgs(sqlmock.AnyArg(), "Room 4", "Broken window", nil, sqlmock.AnyArg(),
				"Alice Teacher", "teacher@example.com", "Pending").
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := s.CreateReport(context.Background(), report); err != nil {
			t.Errorf("CreateReport failed: %v", err)
		}
		if report.ID == "" {
			t.Error("CreateReport did not assign an id")
		}
		if report.Status != models.StatusPending {
			t.Errorf("Status = %q, want Pending", report.Status)
		}
		if report.SubmittedAt.IsZero() {
			t.Error("CreateReport did not assign a timestamp")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestCreateReportWithPhoto(t *testing.T) {
	it(func() {
		s := NewReportService(db)
		report := &models.Report{
			Location:    "Gym",
			Description: "Leaking roof",
			Photo:       "data:image/jpeg;base64,abc123",
		}

		mock.ExpectExec("INSERT INTO reports").
			WithArgs(sqlmock.AnyArg(), "Gym", "Leaking roof", "data:image/jpeg;base64,abc123",
				sqlmock.AnyArg(), "", "", "Pending").
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := s.CreateReport(context.Background(), report); err != nil {
			t.Errorf("CreateReport failed: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestListReports(t *testing.T) {
	it(func() {
		s := NewReportService(db)
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"id", "location", "description", "photo", "submitted_at",
			"reporter_name", "reporter_email", "status",
		}).
			AddRow("id-2", "Gym", "Leaking roof", nil, now, "Bob", "bob@example.com", "Scheduled").
			AddRow("id-1", "Room 4", "Broken window", "http://x/uploads/a.jpg", now.Add(-time.Hour), "Alice", "alice@example.com", "Pending")

		mock.ExpectQuery("SELECT id, location, description, photo, submitted_at, reporter_name, reporter_email, status").
			WillReturnRows(rows)

		reports, err := s.ListReports(context.Background())
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("Got %d reports, want 2", len(reports))
		}
		if reports[0].ID != "id-2" {
			t.Errorf("Newest report not first: got %s", reports[0].ID)
		}
		if reports[0].Photo != "" {
			t.Errorf("NULL photo should scan to empty, got %q", reports[0].Photo)
		}
		if reports[1].Photo != "http://x/uploads/a.jpg" {
			t.Errorf("Photo URL lost: %q", reports[1].Photo)
		}
		if reports[0].Status != models.StatusScheduled {
			t.Errorf("Status = %q, want Scheduled", reports[0].Status)
		}
	})
}

func TestUpdateReportStatus(t *testing.T) {
	it(func() {
		testCases := []struct {
			name         string
			status       models.Status
			rowsAffected int64
			reportExists bool

			execExpected  bool
			errorExpected bool
			wantNotFound  bool
		}{
			{
				name:         "overwrite to Completed",
				status:       models.StatusCompleted,
				rowsAffected: 1,
				execExpected: true,
			},
			{
				name:         "same status rewrite is a no-op, not an error",
				status:       models.StatusPending,
				rowsAffected: 0,
				reportExists: true,
				execExpected: true,
			},
			{
				name:          "unknown report",
				status:        models.StatusScheduled,
				rowsAffected:  0,
				reportExists:  false,
				execExpected:  true,
				errorExpected: true,
				wantNotFound:  true,
			},
			{
				name:          "invalid status value",
				status:        models.Status("Done"),
				execExpected:  false,
				errorExpected: true,
			},
		}

		for _, tc := range testCases {
			s := NewReportService(db)

			if tc.execExpected {
				mock.ExpectExec("UPDATE reports SET status = \\? WHERE id = \\?").
					WithArgs(string(tc.status), "report-1").
					WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
				if tc.rowsAffected == 0 {
					q := mock.ExpectQuery("SELECT 1 FROM reports WHERE id = \\?").
						WithArgs("report-1")
					if tc.reportExists {
						q.WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
					} else {
						q.WillReturnError(sql.ErrNoRows)
					}
				}
			}

			err := s.UpdateReportStatus(context.Background(), "report-1", tc.status)
			if tc.errorExpected && err == nil {
				t.Errorf("%s: expected error, got nil", tc.name)
			}
			if !tc.errorExpected && err != nil {
				t.Errorf("%s: unexpected error: %v", tc.name, err)
			}
			if tc.wantNotFound && err != ErrReportNotFound {
				t.Errorf("%s: expected ErrReportNotFound, got %v", tc.name, err)
			}
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

// Last write wins: two sequential overwrites leave the second value,
// no history and no conflict signal.
func TestUpdateReportStatusLastWriteWins(t *testing.T) {
	it(func() {
		s := NewReportService(db)

		mock.ExpectExec("UPDATE reports SET status = \\? WHERE id = \\?").
			WithArgs("Completed", "report-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reports SET status = \\? WHERE id = \\?").
			WithArgs("Scheduled", "report-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := s.UpdateReportStatus(context.Background(), "report-1", models.StatusCompleted); err != nil {
			t.Errorf("First update failed: %v", err)
		}
		if err := s.UpdateReportStatus(context.Background(), "report-1", models.StatusScheduled); err != nil {
			t.Errorf("Second update failed: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}
