package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/relaykit/go-submitq/pkg/processor"
	"github.com/relaykit/go-submitq/pkg/store"
	"github.com/relaykit/go-submitq/pkg/submission"
)

type submissionHandler struct {
	proc *processor.SubmissionProcessor
	repo store.SubmissionRepository
	log  *zap.Logger
}

type submitRequest struct {
	FormType string            `json:"formType" binding:"required"`
	Data     map[string]string `json:"data" binding:"required"`
}

func (h *submissionHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.proc.Submit(c.Request.Context(), submission.FormType(req.FormType), req.Data)
	if err != nil {
		h.log.Error("Submit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch res.Status {
	case processor.StatusDelivered:
		c.JSON(http.StatusCreated, gin.H{"status": res.Status, "id": res.Ack.ID})
	case processor.StatusQueued:
		// neither success nor failure: accepted, pending delivery
		c.JSON(http.StatusAccepted, gin.H{"status": res.Status, "message": res.Message})
	case processor.StatusRejectedValidation:
		c.JSON(http.StatusBadRequest, gin.H{"status": res.Status, "errors": res.ValidationErrors})
	case processor.StatusRejectedRateLimit:
		c.JSON(http.StatusTooManyRequests, gin.H{"status": res.Status, "message": res.Message})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"status": res.Status, "error": res.Message})
	}
}

func (h *submissionHandler) queue(c *gin.Context) {
	items, err := h.repo.ListQueued(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list queue", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

func (h *submissionHandler) history(c *gin.Context) {
	records, err := h.repo.ListRecords(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}
