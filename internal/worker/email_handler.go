package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	accountrepo "tonedraft-backend/internal/account/repository"
	draftdomain "tonedraft-backend/internal/draft/domain"
	draftusecase "tonedraft-backend/internal/draft/usecase"
	"tonedraft-backend/internal/queue"
)

// NewEmailHandler returns the email-queue handler: decode the payload, verify
// the account is still active, run draft generation. Retryability flows from
// the orchestrator's wrapped provider errors; everything else is terminal.
func NewEmailHandler(accounts accountrepo.AccountRepository, orchestrator *draftusecase.Orchestrator) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var payload EmailJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("invalid email job payload: %w", err)
		}

		account, err := accounts.FindByID(payload.AccountID)
		if err != nil {
			return fmt.Errorf("failed to load account %s: %w", payload.AccountID, err)
		}
		if account == nil || !account.IsActive {
			// A deactivated account drops its queued work quietly.
			log.Printf("[EmailWorker] Account %s inactive, dropping job for message %s", payload.AccountID, payload.MessageID)
			return nil
		}

		msg := draftdomain.InboundMessage{
			MessageID:  payload.MessageID,
			ThreadID:   payload.ThreadID,
			Sender:     payload.Sender,
			SenderName: payload.SenderName,
			Recipient:  payload.Recipient,
			Subject:    payload.Subject,
			Body:       payload.Body,
		}
		if msg.Recipient == "" {
			msg.Recipient = account.Address
		}

		draft, err := orchestrator.GenerateDraft(ctx, payload.UserID, payload.AccountID, msg)
		if err != nil {
			return fmt.Errorf("draft job for message %s: %w", payload.MessageID, err)
		}

		log.Printf("[EmailWorker] Draft %s ready for message %s", draft.DraftID, payload.MessageID)
		return nil
	}
}
