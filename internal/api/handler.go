// Package api exposes the dispatch surface of the automation engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/orchestrator"
	"go-hopeforjob-automation/internal/queue"
	"go-hopeforjob-automation/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Dispatcher is the part of the orchestrator the handlers drive.
type Dispatcher interface {
	DispatchScrape(ctx context.Context, userID, platform string, c automator.Criteria) (string, error)
	DispatchApply(ctx context.Context, userID, jobID string) (string, error)
	DispatchBulkApply(ctx context.Context, userID string, jobIDs []string, cfg orchestrator.BulkConfig) (string, error)
	DispatchCleanup() (string, error)
	Cancel(ctx context.Context, sessionID string) error
}

// SessionReader loads session records for status polling.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*models.AutomationSession, error)
}

type Handler struct {
	dispatch Dispatcher
	sessions SessionReader
	validate *validator.Validate
	log      *logrus.Entry
}

func NewHandler(d Dispatcher, sessions SessionReader, log *logrus.Entry) *Handler {
	return &Handler{
		dispatch: d,
		sessions: sessions,
		validate: validator.New(),
		log:      log.WithField("component", "api"),
	}
}

type ScrapeRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Platform string `json:"platform" validate:"required"`
	Keywords string `json:"keywords" validate:"required"`
	Location string `json:"location"`
	MaxPages int    `json:"max_pages" validate:"gte=0,lte=20"`
}

type ApplyRequest struct {
	UserID string `json:"user_id" validate:"required"`
	JobID  string `json:"job_id" validate:"required"`
}

type BulkApplyRequest struct {
	UserID       string   `json:"user_id" validate:"required"`
	JobIDs       []string `json:"job_ids" validate:"required,min=1,dive,required"`
	DelaySeconds *int     `json:"delay_between_applications" validate:"omitempty,gte=0"`
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	g := r.Group("/api/automation")
	g.POST("/scrape", h.Scrape)
	g.POST("/apply", h.Apply)
	g.POST("/bulk-apply", h.BulkApply)
	g.POST("/cleanup", h.Cleanup)
	g.GET("/sessions/:id", h.GetSession)
	g.POST("/sessions/:id/cancel", h.CancelSession)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Scrape(c *gin.Context) {
	var req ScrapeRequest
	if !h.bind(c, &req) {
		return
	}
	id, err := h.dispatch.DispatchScrape(c.Request.Context(), req.UserID, req.Platform, automator.Criteria{
		Keywords: req.Keywords,
		Location: req.Location,
		MaxPages: req.MaxPages,
	})
	h.accepted(c, id, err)
}

func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if !h.bind(c, &req) {
		return
	}
	id, err := h.dispatch.DispatchApply(c.Request.Context(), req.UserID, req.JobID)
	h.accepted(c, id, err)
}

func (h *Handler) BulkApply(c *gin.Context) {
	var req BulkApplyRequest
	if !h.bind(c, &req) {
		return
	}
	id, err := h.dispatch.DispatchBulkApply(c.Request.Context(), req.UserID, req.JobIDs, orchestrator.BulkConfig{DelaySeconds: req.DelaySeconds})
	h.accepted(c, id, err)
}

func (h *Handler) Cleanup(c *gin.Context) {
	id, err := h.dispatch.DispatchCleanup()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": id})
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.sessions.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":      sess,
		"success_rate": sess.SuccessRate(),
		"duration_sec": sess.Duration().Seconds(),
	})
}

func (h *Handler) CancelSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.dispatch.Cancel(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": id, "status": models.SessionCancelled})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return false
	}
	return true
}

func (h *Handler) accepted(c *gin.Context, sessionID string, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID, "status": models.SessionPending})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("❌ Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, automator.ErrUnsupportedPlatform):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed), errors.Is(err, orchestrator.ErrNoQueue):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
