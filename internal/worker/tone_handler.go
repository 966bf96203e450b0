package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	profilerepo "tonedraft-backend/internal/profile/repository"
	profileusecase "tonedraft-backend/internal/profile/usecase"
	"tonedraft-backend/internal/queue"
)

// NewToneProfileHandler returns the tone-queue handler: pull the unanalyzed
// window of sent messages for the pair, extract style features, merge them
// into the profile, then mark the rows so they never count twice.
func NewToneProfileHandler(sent profilerepo.SentMessageRepository, store *profileusecase.Store, windowSize int) queue.Handler {
	if windowSize <= 0 {
		windowSize = 50
	}
	return func(ctx context.Context, job *queue.Job) error {
		var payload ToneJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("invalid tone job payload: %w", err)
		}

		messages, err := sent.FindUnanalyzed(payload.UserID, payload.RelationshipType, windowSize)
		if err != nil {
			return fmt.Errorf("failed to load sent messages for %s/%s: %w", payload.UserID, payload.RelationshipType, err)
		}
		if len(messages) == 0 {
			log.Printf("[ToneWorker] Nothing to analyze for %s/%s", payload.UserID, payload.RelationshipType)
			return nil
		}

		bodies := make([]string, len(messages))
		ids := make([]string, len(messages))
		for i, m := range messages {
			bodies[i] = m.Body
			ids[i] = m.ID
		}

		obs := profileusecase.AnalyzeMessages(bodies)
		profile, err := store.Merge(payload.UserID, payload.RelationshipType, obs)
		if err != nil {
			return fmt.Errorf("failed to merge observations for %s/%s: %w", payload.UserID, payload.RelationshipType, err)
		}

		if err := sent.MarkAnalyzed(ids); err != nil {
			// The merge landed but the rows stay unanalyzed. Surface the
			// failure so it parks with the row ids in the job record instead
			// of silently double counting on the next batch.
			return fmt.Errorf("failed to mark %d messages analyzed: %w", len(ids), err)
		}

		log.Printf("[ToneWorker] Analyzed %d messages for %s/%s (profile total: %d)",
			len(messages), payload.UserID, payload.RelationshipType, profile.EmailsAnalyzed)
		return nil
	}
}
