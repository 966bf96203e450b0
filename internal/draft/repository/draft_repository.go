package repository

import (
	"encoding/json"
	"errors"
	"time"

	draftdomain "tonedraft-backend/internal/draft/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DraftRepository defines the interface for draft tracking persistence.
type DraftRepository interface {
	// Create inserts a new tracking row. A unique-index hit on the original
	// message id surfaces as domain.ErrDuplicateDraft.
	Create(draft *draftdomain.DraftTracking) error
	FindByID(id string) (*draftdomain.DraftTracking, error)
	FindByOriginalMessageID(messageID string) (*draftdomain.DraftTracking, error)
	// FindUnsentByThreadID returns the tracking row waiting on a sent event
	// for the given thread, if any.
	FindUnsentByThreadID(userID, threadID string) (*draftdomain.DraftTracking, error)
	FindByUserID(userID string, limit, offset int) ([]*draftdomain.DraftTracking, error)
	// MarkSent populates sent_at, the sent content, and the edit analysis
	// exactly once, guarded by the sent_at IS NULL precondition. A second
	// attempt returns domain.ErrAlreadySent and changes nothing.
	MarkSent(id string, sentContent string, analysis draftdomain.EditAnalysis, sentAt time.Time) error
}

type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository creates a new instance of draftRepository
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Create(draft *draftdomain.DraftTracking) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.DraftID == "" {
		draft.DraftID = uuid.New().String()
	}
	draft.CreatedAt = time.Now()

	err := r.db.Create(draft).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return draftdomain.ErrDuplicateDraft
	}
	return err
}

func (r *draftRepository) FindByID(id string) (*draftdomain.DraftTracking, error) {
	var draft draftdomain.DraftTracking
	err := r.db.Where("id = ?", id).First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) FindByOriginalMessageID(messageID string) (*draftdomain.DraftTracking, error) {
	var draft draftdomain.DraftTracking
	err := r.db.Where("original_message_id = ?", messageID).First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) FindUnsentByThreadID(userID, threadID string) (*draftdomain.DraftTracking, error) {
	var draft draftdomain.DraftTracking
	err := r.db.Where("user_id = ? AND thread_id = ? AND sent_at IS NULL", userID, threadID).
		Order("created_at DESC").
		First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) FindByUserID(userID string, limit, offset int) ([]*draftdomain.DraftTracking, error) {
	var drafts []*draftdomain.DraftTracking
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (r *draftRepository) MarkSent(id string, sentContent string, analysis draftdomain.EditAnalysis, sentAt time.Time) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	res := r.db.Model(&draftdomain.DraftTracking{}).
		Where("id = ? AND sent_at IS NULL", id).
		Updates(map[string]interface{}{
			"user_sent_content": sentContent,
			"edit_analysis":     string(analysisJSON),
			"sent_at":           sentAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return draftdomain.ErrAlreadySent
	}
	return nil
}
