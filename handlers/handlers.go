package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"incident-service/config"
	"incident-service/database"
	imagepkg "incident-service/image"
	"incident-service/models"
	"incident-service/storage"
	"incident-service/workflow"

	"github.com/gin-gonic/gin"
)

// maxPhotoBytes bounds what we load into memory before normalization.
const maxPhotoBytes = 20 << 20

// Handlers handles HTTP requests for the incident service. Each
// authenticated request drives a fresh workflow session seeded from
// the token identity.
type Handlers struct {
	cfg        *config.Config
	reports    *database.ReportService
	staff      *database.StaffService
	normalizer *imagepkg.Normalizer
	uploader   storage.ObjectStore
	exporter   workflow.Exporter
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, reports *database.ReportService, staff *database.StaffService,
	normalizer *imagepkg.Normalizer, uploader storage.ObjectStore, exporter workflow.Exporter) *Handlers {
	return &Handlers{
		cfg:        cfg,
		reports:    reports,
		staff:      staff,
		normalizer: normalizer,
		uploader:   uploader,
		exporter:   exporter,
	}
}

// Signup handles staff registration
func (h *Handlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	staff, err := h.staff.CreateStaff(c.Request.Context(), req)
	if err != nil {
		if err.Error() == "staff already exists" {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, staff)
}

// Login handles staff authentication
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.staff.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the signed-in identity and its allow-list classification
func (h *Handlers) Me(c *gin.Context) {
	email := c.GetString("email")
	c.JSON(http.StatusOK, gin.H{
		"name":     c.GetString("name"),
		"email":    email,
		"is_admin": h.cfg.AdminEmails.Contains(email),
	})
}

// SubmitReport handles a new incident submission (multipart form:
// location, description, optional photo file)
func (h *Handlers) SubmitReport(c *gin.Context) {
	location := c.PostForm("location")
	description := c.PostForm("description")

	photo, err := h.readPhoto(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	m, err := h.session(c)
	if err != nil {
		// A failed admin list preload does not block submitting.
		log.Printf("WARNING: report list preload failed: %v", err)
	}
	if m.State() == workflow.AdminPanel {
		if err := m.NewReport(); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to open submission form"})
			return
		}
	}

	report, warning, err := m.Submit(c.Request.Context(), location, description, photo)
	if err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to save the report"})
		return
	}

	c.JSON(http.StatusCreated, models.SubmitReportResponse{
		Report:       report,
		PhotoWarning: warning,
	})
}

// ListReports returns every report, newest first
func (h *Handlers) ListReports(c *gin.Context) {
	m, err := h.session(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load reports"})
		return
	}

	reports := m.Reports()
	c.JSON(http.StatusOK, models.ListReportsResponse{
		Reports: reports,
		Count:   len(reports),
	})
}

// UpdateStatus overwrites a report's status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("unknown status %q", req.Status)})
		return
	}

	m, err := h.session(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load reports"})
		return
	}

	if err := m.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, database.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update status"})
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "status updated"})
}

// ExportReports streams the loaded list as a spreadsheet attachment
func (h *Handlers) ExportReports(c *gin.Context) {
	m, err := h.session(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load reports"})
		return
	}

	filename := fmt.Sprintf("reports_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := m.Export(c.Writer); err != nil {
		log.Printf("ERROR: Export failed: %v", err)
		c.Status(http.StatusInternalServerError)
	}
}

// HealthCheck returns the service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "incident-service",
	})
}

// session builds the request-scoped workflow machine, signed in as the
// token identity. For allow-listed identities SignIn loads the report
// list; the machine is still usable when that load fails.
func (h *Handlers) session(c *gin.Context) (*workflow.Machine, error) {
	email := c.GetString("email")
	ident := workflow.Identity{
		Name:       c.GetString("name"),
		Email:      email,
		Privileged: h.cfg.AdminEmails.Contains(email),
	}

	m := workflow.New(h.reports, h.normalizer,
		workflow.WithPhotoMode(h.cfg.PhotoMode),
		workflow.WithUploader(h.uploader),
		workflow.WithExporter(h.exporter),
		workflow.WithSuccessDelay(h.cfg.SuccessDelay),
	)
	err := m.SignIn(c.Request.Context(), ident)
	return m, err
}

func (h *Handlers) readPhoto(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		// No file selected: the photo is always optional.
		return nil, nil
	}
	if fh.Size > maxPhotoBytes {
		return nil, fmt.Errorf("photo larger than %d bytes", maxPhotoBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return data, nil
}
