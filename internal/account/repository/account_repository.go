package repository

import (
	"errors"
	"time"

	accountdomain "tonedraft-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for email account operations
type AccountRepository interface {
	Create(account *accountdomain.EmailAccount) error
	FindByID(id string) (*accountdomain.EmailAccount, error)
	FindByUserID(userID string) ([]*accountdomain.EmailAccount, error)
	FindActiveByAddress(address string) (*accountdomain.EmailAccount, error)
	Deactivate(id string) error
	UpdateLastSync(id string, syncedAt time.Time) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(account *accountdomain.EmailAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return r.db.Create(account).Error
}

func (r *accountRepository) FindByID(id string) (*accountdomain.EmailAccount, error) {
	var account accountdomain.EmailAccount
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByUserID(userID string) ([]*accountdomain.EmailAccount, error) {
	var accounts []*accountdomain.EmailAccount
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) FindActiveByAddress(address string) (*accountdomain.EmailAccount, error) {
	var account accountdomain.EmailAccount
	err := r.db.Where("address = ? AND is_active = ?", address, true).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// Deactivate flips the active flag. Rows are kept so draft tracking history
// stays intact.
func (r *accountRepository) Deactivate(id string) error {
	return r.db.Model(&accountdomain.EmailAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

func (r *accountRepository) UpdateLastSync(id string, syncedAt time.Time) error {
	return r.db.Model(&accountdomain.EmailAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_sync_at": syncedAt, "updated_at": time.Now()}).Error
}
