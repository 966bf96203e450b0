package delivery

import (
	"encoding/json"
	"errors"
	"net/http"

	profilerepo "tonedraft-backend/internal/profile/repository"
	profileusecase "tonedraft-backend/internal/profile/usecase"
	"tonedraft-backend/internal/queue"
	"tonedraft-backend/internal/worker"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	repo   profilerepo.ProfileRepository
	store  *profileusecase.Store
	broker queue.Broker
}

func NewProfileHandler(repo profilerepo.ProfileRepository, store *profileusecase.Store, broker queue.Broker) *ProfileHandler {
	return &ProfileHandler{repo: repo, store: store, broker: broker}
}

func (h *ProfileHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	profiles, err := h.repo.ListByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list profiles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// Get returns the profile for one relationship type. A pair with no history
// returns an empty profile, not a 404: absence is a valid learning state.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetString("userID")
	relationship := c.Param("relationship")

	profile, err := h.store.Get(userID, relationship)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	features, err := profile.DecodeFeatures()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":           profile.UserID,
		"relationship_type": profile.RelationshipType,
		"emails_analyzed":   profile.EmailsAnalyzed,
		"features":          features,
		"last_updated_at":   profile.LastUpdatedAt,
	})
}

// Analyze queues a tone-profile batch job for one relationship, picking up
// whatever sent messages have accumulated since the last run. Concurrent
// triggers for the same pair collapse into the pending job.
func (h *ProfileHandler) Analyze(c *gin.Context) {
	userID := c.GetString("userID")
	relationship := c.Param("relationship")

	payload, err := json.Marshal(worker.ToneJobPayload{
		UserID:           userID,
		RelationshipType: relationship,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode job"})
		return
	}

	key := userID + "|" + relationship
	jobID, err := h.broker.Enqueue(worker.QueueToneJobs, key, payload)
	if errors.Is(err, queue.ErrDuplicateJob) {
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": "already_queued"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
}
