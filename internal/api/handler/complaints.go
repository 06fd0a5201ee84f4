package handler

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/export"
	"complaintdesk/backend/internal/filter"
	"complaintdesk/backend/internal/livefeed"
	"complaintdesk/backend/internal/models"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func criteriaFromQuery(c *gin.Context) (filter.Criteria, error) {
	return filter.ParseCriteria(c.Query("search"), c.Query("status"), c.Query("date"))
}

// ListComplaints повертає відфільтрований вміст кешу.
func (h *Handler) ListComplaints(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visible := filter.Filter(h.View.Snapshot(), criteria)
	c.JSON(http.StatusOK, gin.H{
		"complaints": livefeed.PresentAll(visible, h.Localizer, h.lang(c)),
		"degraded":   h.View.Degraded(),
	})
}

func (h *Handler) ListComplaintTypes(c *gin.Context) {
	types, err := h.Types.FetchComplaintTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

// SubmitComplaint створює нову скаргу від імені агента.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var sub complaint.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	created, err := h.Intake.Submit(c.Request.Context(), sub, *currentAgent(c))
	if err != nil {
		writeError(c, err)
		return
	}
	h.afterWrite(c.Request.Context())

	c.JSON(http.StatusCreated, livefeed.Present(*created, h.Localizer, h.lang(c)))
}

func (h *Handler) TransitionComplaint(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	id := c.Param("id")
	if err := h.Lifecycle.Transition(c.Request.Context(), id, models.Status(req.Status), req.Reason, currentAgent(c)); err != nil {
		writeError(c, err)
		return
	}
	h.afterWrite(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (h *Handler) AddReminder(c *gin.Context) {
	id := c.Param("id")
	if err := h.Escalator.Increment(c.Request.Context(), id, *currentAgent(c)); err != nil {
		writeError(c, err)
		return
	}
	h.afterWrite(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ReloadComplaints виконує повне перезавантаження кешу. Також відновлює підписку
// після втрати з'єднання.
func (h *Handler) ReloadComplaints(c *gin.Context) {
	if err := h.View.Reload(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(h.View.Snapshot()),
		"degraded": h.View.Degraded(),
	})
}

// ExportComplaints віддає відфільтрований кеш як CSV.
func (h *Handler) ExportComplaints(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visible := filter.Filter(h.View.Snapshot(), criteria)
	table := export.Project(visible, h.Localizer, h.lang(c), h.now())

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, table.Name))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, table); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) ShareComplaint(c *gin.Context) {
	cached, ok := h.View.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": complaint.ErrComplaintNotFound.Error()})
		return
	}
	c.String(http.StatusOK, export.ShareText(cached, h.Localizer, h.lang(c)))
}
