package repository

import (
	"errors"
	"time"

	profiledomain "tonedraft-backend/internal/profile/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SentMessageRepository stores observed outbound messages for batch analysis.
type SentMessageRepository interface {
	Record(msg *profiledomain.SentMessage) error
	FindUnanalyzed(userID, relationshipType string, limit int) ([]*profiledomain.SentMessage, error)
	MarkAnalyzed(ids []string) error
}

type sentMessageRepository struct {
	db *gorm.DB
}

// NewSentMessageRepository creates a new instance of sentMessageRepository
func NewSentMessageRepository(db *gorm.DB) SentMessageRepository {
	return &sentMessageRepository{db: db}
}

// Record inserts an observed sent message. A duplicate message id is a
// no-op: the same outbound message may be reported more than once.
func (r *sentMessageRepository) Record(msg *profiledomain.SentMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = time.Now()
	err := r.db.Create(msg).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *sentMessageRepository) FindUnanalyzed(userID, relationshipType string, limit int) ([]*profiledomain.SentMessage, error) {
	var messages []*profiledomain.SentMessage
	err := r.db.Where("user_id = ? AND relationship_type = ? AND analyzed = ?", userID, relationshipType, false).
		Order("sent_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *sentMessageRepository) MarkAnalyzed(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&profiledomain.SentMessage{}).
		Where("id IN ?", ids).
		Update("analyzed", true).Error
}
