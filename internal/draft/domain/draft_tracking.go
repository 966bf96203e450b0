package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrDuplicateDraft signals that a draft already exists for the original
// message. Idempotency rule: this is success, not failure.
var ErrDuplicateDraft = errors.New("draft already exists for message")

// ErrAlreadySent rejects a second sent-feedback write to a tracking row.
// Rows are immutable once sent_at is set.
var ErrAlreadySent = errors.New("draft tracking row already marked sent")

// InboundMessage is a parsed incoming email needing a draft. Recipient is
// the connected account's own address, used for relationship classification.
type InboundMessage struct {
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// RetrievedMessage is one similarity hit supplied to the generator.
type RetrievedMessage struct {
	MessageID string  `json:"message_id"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// GenerationContext records what went into a draft, persisted alongside it so
// the outcome of every generation stays inspectable.
type GenerationContext struct {
	RetrievedMessages []RetrievedMessage `json:"retrieved_messages"`
	ProfileSummary    string             `json:"profile_summary"`
	EmailsAnalyzed    int                `json:"emails_analyzed"`
	ProviderType      string             `json:"provider_type"`
	ModelName         string             `json:"model_name"`
	RetrievalDegraded bool               `json:"retrieval_degraded,omitempty"`
}

// EditAnalysis is the structured diff between a generated draft and what the
// user actually sent.
type EditAnalysis struct {
	Additions         int      `json:"additions"`
	Deletions         int      `json:"deletions"`
	AddedWords        []string `json:"added_words,omitempty"`
	RemovedWords      []string `json:"removed_words,omitempty"`
	LengthRatio       float64  `json:"length_ratio"`
	FormalityDelta    float64  `json:"formality_delta"`
	GreetingNameAdded bool     `json:"greeting_name_added"`
}

// DraftTracking links a generated draft to its eventual outcome. Created
// atomically when a draft is produced; the sent fields are populated exactly
// once when the corresponding outbound message is observed.
type DraftTracking struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"index;not null"`
	AccountID         string     `json:"account_id" gorm:"index"`
	OriginalMessageID string     `json:"original_message_id" gorm:"uniqueIndex;not null"`
	ThreadID          string     `json:"thread_id" gorm:"index"`
	DraftID           string     `json:"draft_id"`
	DraftText         string     `json:"draft_text" gorm:"type:text"`
	RelationshipType  string     `json:"relationship_type"`
	GenerationContext string     `json:"-" gorm:"type:jsonb"`
	UserSentContent   *string    `json:"user_sent_content,omitempty" gorm:"type:text"`
	EditAnalysis      *string    `json:"-" gorm:"type:jsonb"`
	CreatedAt         time.Time  `json:"created_at"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
}

// TableName specifies the table name for GORM
func (DraftTracking) TableName() string {
	return "draft_tracking"
}

// DecodeContext unmarshals the persisted generation context.
func (d *DraftTracking) DecodeContext() (GenerationContext, error) {
	var gc GenerationContext
	if d.GenerationContext == "" {
		return gc, nil
	}
	if err := json.Unmarshal([]byte(d.GenerationContext), &gc); err != nil {
		return GenerationContext{}, err
	}
	return gc, nil
}

// EncodeContext marshals the generation context for persistence.
func (d *DraftTracking) EncodeContext(gc GenerationContext) error {
	raw, err := json.Marshal(gc)
	if err != nil {
		return err
	}
	d.GenerationContext = string(raw)
	return nil
}
