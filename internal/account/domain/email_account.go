package domain

import "time"

// EmailAccount is one user's connected mailbox. The transport credential is a
// vault blob; the plaintext never touches the database. Accounts are
// deactivated rather than hard-deleted so tracking history survives.
type EmailAccount struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"index;not null"`
	Address           string     `json:"address" gorm:"index;not null"`
	IMAPHost          string     `json:"imap_host"`
	IMAPPort          int        `json:"imap_port"`
	Username          string     `json:"username"`
	EncryptedPassword string     `json:"-" gorm:"type:text"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (EmailAccount) TableName() string {
	return "email_accounts"
}
