package delivery

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	draftrepo "tonedraft-backend/internal/draft/repository"
	"tonedraft-backend/internal/queue"
	"tonedraft-backend/internal/worker"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	drafts draftrepo.DraftRepository
	broker queue.Broker
}

func NewDraftHandler(drafts draftrepo.DraftRepository, broker queue.Broker) *DraftHandler {
	return &DraftHandler{drafts: drafts, broker: broker}
}

func (h *DraftHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	drafts, err := h.drafts.FindByUserID(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list drafts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

func (h *DraftHandler) Get(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	draft, err := h.drafts.FindByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load draft"})
		return
	}
	if draft == nil || draft.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.JSON(http.StatusOK, draft)
}

// GetByMessage looks up the draft generated for an inbound message id.
func (h *DraftHandler) GetByMessage(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("messageId")

	draft, err := h.drafts.FindByOriginalMessageID(messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load draft"})
		return
	}
	if draft == nil || draft.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "no draft for message"})
		return
	}
	c.JSON(http.StatusOK, draft)
}

type enqueueDraftRequest struct {
	AccountID  string `json:"account_id" binding:"required"`
	MessageID  string `json:"message_id" binding:"required"`
	ThreadID   string `json:"thread_id"`
	Sender     string `json:"sender" binding:"required"`
	SenderName string `json:"sender_name"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body" binding:"required"`
}

// Enqueue submits a draft job directly, bypassing the mail event stream.
// Redelivery of the same message id collapses into the pending job.
func (h *DraftHandler) Enqueue(c *gin.Context) {
	userID := c.GetString("userID")

	var req enqueueDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = req.MessageID
	}

	payload, err := json.Marshal(worker.EmailJobPayload{
		UserID:     userID,
		AccountID:  req.AccountID,
		MessageID:  req.MessageID,
		ThreadID:   req.ThreadID,
		Sender:     req.Sender,
		SenderName: req.SenderName,
		Recipient:  req.Recipient,
		Subject:    req.Subject,
		Body:       req.Body,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode job"})
		return
	}

	jobID, err := h.broker.Enqueue(worker.QueueEmailJobs, req.MessageID, payload)
	if errors.Is(err, queue.ErrDuplicateJob) {
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": "already_queued"})
		return
	}
	if err != nil {
		log.Printf("[DraftHandler] Failed to enqueue job for message %s: %v", req.MessageID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
}

func (h *DraftHandler) JobStatus(c *gin.Context) {
	id := c.Param("id")

	job, err := h.broker.Job(id)
	if errors.Is(err, queue.ErrUnknownJob) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":      job.ID,
		"queue":       job.Queue,
		"status":      job.Status,
		"attempts":    job.Attempts,
		"last_error":  job.LastError,
		"enqueued_at": job.EnqueuedAt,
	})
}

// CancelJob removes a queued job that has not started.
func (h *DraftHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")

	err := h.broker.Cancel(id)
	switch {
	case errors.Is(err, queue.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, queue.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "job already started or finished"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel job"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}
