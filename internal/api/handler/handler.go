package handler

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/livefeed"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Lifecycle issues status transitions. complaint.StateMachine satisfies it.
type Lifecycle interface {
	Transition(ctx context.Context, id string, target models.Status, reason string, actor *models.Agent) error
}

// Escalator records reminders. complaint.ReminderTracker satisfies it.
type Escalator interface {
	Increment(ctx context.Context, id string, actor models.Agent) error
}

// Intake creates complaints. complaint.Submitter satisfies it.
type Intake interface {
	Submit(ctx context.Context, sub complaint.Submission, actor models.Agent) (*models.Complaint, error)
}

// View is the reconciled complaint cache. reconciler.Reconciler satisfies it.
type View interface {
	Snapshot() []models.Complaint
	Get(id string) (models.Complaint, bool)
	Reload(ctx context.Context) error
	Degraded() bool
}

// TypeCatalog lists complaint types. storage.Service satisfies it.
type TypeCatalog interface {
	FetchComplaintTypes(ctx context.Context) ([]models.ComplaintType, error)
}

// Handler містить залежності HTTP-шару
type Handler struct {
	Lifecycle Lifecycle
	Escalator Escalator
	Intake    Intake
	View      View
	Types     TypeCatalog
	Hub       *livefeed.Hub
	Localizer *localization.Localizer

	JWTSecret        []byte
	DefaultLang      string
	ReloadAfterWrite bool
	Now              func() time.Time
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api", h.AuthMiddleware())
	api.GET("/complaint-types", h.ListComplaintTypes)
	api.GET("/complaints", h.ListComplaints)
	api.POST("/complaints", h.SubmitComplaint)
	api.POST("/complaints/reload", h.ReloadComplaints)
	api.GET("/complaints/export", h.ExportComplaints)
	api.POST("/complaints/:id/transition", h.TransitionComplaint)
	api.POST("/complaints/:id/reminders", h.AddReminder)
	api.GET("/complaints/:id/share", h.ShareComplaint)

	r.GET("/ws", h.AuthMiddleware(), h.ServeWebSocket)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// lang picks the response language from Accept-Language.
func (h *Handler) lang(c *gin.Context) string {
	if header := c.GetHeader("Accept-Language"); header != "" {
		return h.Localizer.Match(header)
	}
	if h.DefaultLang != "" {
		return h.DefaultLang
	}
	return "en"
}

// afterWrite forces a full reload when configured, instead of waiting for the
// change event.
func (h *Handler) afterWrite(ctx context.Context) {
	if !h.ReloadAfterWrite {
		return
	}
	if err := h.View.Reload(ctx); err != nil {
		log.Printf("WARNING: Reload after write failed: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		validation *complaint.ValidationError
		illegal    *complaint.IllegalTransitionError
		remote     *storage.RemoteWriteError
		read       *storage.RemoteReadError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &illegal), errors.Is(err, models.ErrStatusConflict):
		status = http.StatusConflict
	case errors.Is(err, complaint.ErrComplaintNotFound), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &remote), errors.As(err, &read):
		status = http.StatusBadGateway
	default:
		log.Printf("ERROR: Unhandled request error: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
