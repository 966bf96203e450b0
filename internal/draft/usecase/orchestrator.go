package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tonedraft-backend/internal/classify"
	draftdomain "tonedraft-backend/internal/draft/domain"
	"tonedraft-backend/internal/draft/repository"
	profiledomain "tonedraft-backend/internal/profile/domain"
	providerdomain "tonedraft-backend/internal/provider/domain"
	"tonedraft-backend/pkg/llm"
)

// VectorSearchService is the retrieval contract: rank the user's indexed
// messages against a query, optionally narrowed to a relationship type.
type VectorSearchService interface {
	Query(ctx context.Context, userID, relationshipType, query string, limit int) (ids []string, scores []float64, snippets []string, err error)
}

// ProfileStore reads tone profiles for generation.
type ProfileStore interface {
	Get(userID, relationshipType string) (*profiledomain.ToneProfile, error)
}

// ProviderResolver supplies the user's active LLM provider, key decrypted.
type ProviderResolver interface {
	ResolveActive(userID string) (llm.Provider, *providerdomain.LLMProviderConfig, error)
}

// Orchestrator runs the generation pipeline: classify, retrieve, load
// profile, render prompt, complete, persist. Classification, retrieval, and
// the profile all degrade to defaults; a provider failure aborts with no row
// written so a complete draft row exists or none does.
type Orchestrator struct {
	drafts        repository.DraftRepository
	profiles      ProfileStore
	resolver      ProviderResolver
	classifier    classify.Classifier
	vector        VectorSearchService
	retrievalK    int
	vectorTimeout time.Duration
	llmTimeout    time.Duration
}

func NewOrchestrator(
	drafts repository.DraftRepository,
	profiles ProfileStore,
	resolver ProviderResolver,
	classifier classify.Classifier,
	vector VectorSearchService,
	retrievalK int,
	vectorTimeout, llmTimeout time.Duration,
) *Orchestrator {
	if retrievalK <= 0 {
		retrievalK = 5
	}
	return &Orchestrator{
		drafts:        drafts,
		profiles:      profiles,
		resolver:      resolver,
		classifier:    classifier,
		vector:        vector,
		retrievalK:    retrievalK,
		vectorTimeout: vectorTimeout,
		llmTimeout:    llmTimeout,
	}
}

// GenerateDraft produces and persists one draft for an inbound message.
// Idempotent on the original message id: a duplicate call returns the
// existing row without touching the provider.
func (o *Orchestrator) GenerateDraft(ctx context.Context, userID, accountID string, msg draftdomain.InboundMessage) (*draftdomain.DraftTracking, error) {
	if msg.MessageID == "" {
		return nil, fmt.Errorf("inbound message has no message id")
	}

	// Idempotency check before any generation work so a duplicate enqueue
	// never costs a second LLM call.
	existing, err := o.drafts.FindByOriginalMessageID(msg.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing draft: %w", err)
	}
	if existing != nil {
		log.Printf("[Orchestrator] Draft already exists for message %s, skipping generation", msg.MessageID)
		return existing, nil
	}

	// Step 1: relationship classification, degrades to "other".
	relationship := classify.RelationshipOther
	if o.classifier != nil {
		if rel, err := o.classifier.Classify(ctx, msg.Recipient, msg.Sender, msg.SenderName, msg.Body); err == nil && rel != "" {
			relationship = rel
		} else if err != nil {
			log.Printf("[Orchestrator] Classification failed for %s, using %q: %v", msg.Sender, relationship, err)
		}
	}

	// Step 2: context retrieval, degrades to an empty context set. A worse
	// draft beats no draft.
	contextMsgs, degraded := o.retrieveContext(ctx, userID, relationship, msg)

	// Step 3: tone profile, empty is a valid input.
	profile, err := o.profiles.Get(userID, relationship)
	if err != nil {
		log.Printf("[Orchestrator] Profile load failed for %s/%s, using empty profile: %v", userID, relationship, err)
		profile = &profiledomain.ToneProfile{UserID: userID, RelationshipType: relationship}
	}

	// Step 4: render the provider-agnostic prompt.
	summary := ProfileSummary(profile)
	prompt := BuildPrompt(summary, contextMsgs, msg)

	// Step 5: invoke the active provider. Errors propagate to the job layer,
	// which decides retry vs terminal by kind.
	provider, providerCfg, err := o.resolver.ResolveActive(userID)
	if err != nil {
		return nil, err
	}

	llmCtx := ctx
	if o.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, o.llmTimeout)
		defer cancel()
	}
	draftText, err := provider.Complete(llmCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}

	// Step 6: persist atomically. A concurrent duplicate loses the insert
	// race and returns the winner's row.
	draft := &draftdomain.DraftTracking{
		UserID:            userID,
		AccountID:         accountID,
		OriginalMessageID: msg.MessageID,
		ThreadID:          msg.ThreadID,
		DraftText:         draftText,
		RelationshipType:  relationship,
	}
	if err := draft.EncodeContext(draftdomain.GenerationContext{
		RetrievedMessages: contextMsgs,
		ProfileSummary:    summary,
		EmailsAnalyzed:    profile.EmailsAnalyzed,
		ProviderType:      providerCfg.ProviderType,
		ModelName:         providerCfg.ModelName,
		RetrievalDegraded: degraded,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode generation context: %w", err)
	}

	if err := o.drafts.Create(draft); err != nil {
		if errors.Is(err, draftdomain.ErrDuplicateDraft) {
			log.Printf("[Orchestrator] Lost insert race for message %s, returning existing draft", msg.MessageID)
			return o.drafts.FindByOriginalMessageID(msg.MessageID)
		}
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}

	log.Printf("[Orchestrator] Generated draft %s for message %s (relationship: %s, context: %d)",
		draft.DraftID, msg.MessageID, relationship, len(contextMsgs))

	return draft, nil
}

// retrieveContext queries the vector index, absorbing unavailability into an
// empty result. The degraded flag is recorded on the tracking row.
func (o *Orchestrator) retrieveContext(ctx context.Context, userID, relationship string, msg draftdomain.InboundMessage) ([]draftdomain.RetrievedMessage, bool) {
	if o.vector == nil {
		return nil, true
	}

	queryCtx := ctx
	if o.vectorTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, o.vectorTimeout)
		defer cancel()
	}

	query := msg.Subject + "\n" + msg.Body
	ids, scores, snippets, err := o.vector.Query(queryCtx, userID, relationship, query, o.retrievalK)
	if err != nil {
		log.Printf("[Orchestrator] Retrieval unavailable for %s, generating with empty context: %v", userID, err)
		return nil, true
	}

	contextMsgs := make([]draftdomain.RetrievedMessage, 0, len(ids))
	for i, id := range ids {
		rm := draftdomain.RetrievedMessage{MessageID: id}
		if i < len(scores) {
			rm.Score = scores[i]
		}
		if i < len(snippets) {
			rm.Snippet = snippets[i]
		}
		contextMsgs = append(contextMsgs, rm)
	}
	return contextMsgs, false
}
