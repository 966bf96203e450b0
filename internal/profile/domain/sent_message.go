package domain

import "time"

// SentMessage is one observed outbound message, kept as the raw material for
// tone-profile batch analysis. Rows are marked analyzed once a batch job has
// merged them so the same message never counts twice.
type SentMessage struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"index:idx_sent_user_rel;not null"`
	RelationshipType string    `json:"relationship_type" gorm:"index:idx_sent_user_rel;not null"`
	MessageID        string    `json:"message_id" gorm:"uniqueIndex;not null"`
	Recipient        string    `json:"recipient"`
	Subject          string    `json:"subject"`
	Body             string    `json:"body" gorm:"type:text"`
	Analyzed         bool      `json:"analyzed" gorm:"index;default:false"`
	SentAt           time.Time `json:"sent_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SentMessage) TableName() string {
	return "sent_messages"
}
