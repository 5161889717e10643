package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/db"
	"drumtrack-service/internal/lifecycle"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/proof"
	"drumtrack-service/internal/scheduler"
	"drumtrack-service/internal/ws"
)

type Handler struct {
	db     *db.DB
	logger *logging.Logger
	sctx   *scheduler.Context
	clk    *clock.Estimator
	life   *lifecycle.Lifecycle
	proof  *proof.Service
	hub    *ws.Hub
	drumID string
}

func NewHandler(db *db.DB, logger *logging.Logger, sctx *scheduler.Context, clk *clock.Estimator, life *lifecycle.Lifecycle, proofSvc *proof.Service, hub *ws.Hub, drumID string) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		sctx:   sctx,
		clk:    clk,
		life:   life,
		proof:  proofSvc,
		hub:    hub,
		drumID: drumID,
	}
}

// GetState returns the tracked schedule with windows, phases, pause flag, and
// the clock estimate.
func (h *Handler) GetState(c *gin.Context) {
	snap := h.sctx.View()
	nowMs := h.clk.EstimateNow()
	c.JSON(http.StatusOK, gin.H{
		"state":            snap,
		"estimated_now_ms": nowMs,
		"estimated_now":    clock.FormatNaive(nowMs),
		"clock_synced":     h.clk.Synced(),
	})
}

// GetEstimatedNow exposes the estimated-now accessor.
func (h *Handler) GetEstimatedNow(c *gin.Context) {
	nowMs := h.clk.EstimateNow()
	c.JSON(http.StatusOK, gin.H{
		"estimated_now_ms": nowMs,
		"estimated_now":    clock.FormatNaive(nowMs),
		"clock_synced":     h.clk.Synced(),
	})
}

type groupRequest struct {
	ConfirmTime string `json:"confirm_time" binding:"required"`
}

// Acknowledge stops the alarm for an alerted group and starts the recording
// with the remaining window as ceiling.
func (h *Handler) Acknowledge(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid acknowledge request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	budget, err := h.proof.Capture(req.ConfirmTime)
	if err != nil {
		h.logger.Errorf("Acknowledge failed for group %s: %v", req.ConfirmTime, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.logger.Infof("Group %s acknowledged, recording budget %ds", req.ConfirmTime, budget)
	c.JSON(http.StatusOK, gin.H{"budget_seconds": budget})
}

// Pause forwards a pause request to the MES; the local flag flips only after
// the server confirms.
func (h *Handler) Pause(c *gin.Context) {
	if err := h.life.RequestPause(c.Request.Context()); err != nil {
		h.logger.Errorf("Pause failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Pause rejected, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

// Resume forwards a resume request to the MES.
func (h *Handler) Resume(c *gin.Context) {
	if err := h.life.RequestResume(c.Request.Context()); err != nil {
		h.logger.Errorf("Resume failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Resume rejected, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

// GetAlertEvents returns the persisted alert history for the drum.
func (h *Handler) GetAlertEvents(c *gin.Context) {
	limit, offset := pagination(c)
	events, err := h.db.GetAlertEventsByDrum(c.Request.Context(), h.drumID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get alert events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert events"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetVideoUploads returns the upload history for the drum.
func (h *Handler) GetVideoUploads(c *gin.Context) {
	limit, offset := pagination(c)
	uploads, err := h.db.GetVideoUploadsByDrum(c.Request.Context(), h.drumID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get video uploads: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get video uploads"})
		return
	}
	c.JSON(http.StatusOK, uploads)
}

// RetryUpload re-runs the newest failed upload for a group.
func (h *Handler) RetryUpload(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid retry request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.proof.Retry(c.Request.Context(), req.ConfirmTime); err != nil {
		h.logger.Errorf("Upload retry failed for group %s: %v", req.ConfirmTime, err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Retry queued"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// terminals live on the isolated factory network
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Watch upgrades to WebSocket and streams lifecycle events to the terminal.
func (h *Handler) Watch(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.Add(h.drumID, conn)

	go func() {
		defer func() {
			h.hub.Remove(h.drumID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func pagination(c *gin.Context) (int, int) {
	limit := 50
	offset := 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
