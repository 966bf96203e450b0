package repository

import (
	"errors"
	"fmt"
	"time"

	providerdomain "tonedraft-backend/internal/provider/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderRepository defines the interface for LLM provider config operations
type ProviderRepository interface {
	Create(cfg *providerdomain.LLMProviderConfig) error
	FindByID(id string) (*providerdomain.LLMProviderConfig, error)
	FindByUserID(userID string) ([]*providerdomain.LLMProviderConfig, error)
	FindActiveByUserID(userID string) (*providerdomain.LLMProviderConfig, error)
	SetActive(userID, id string) error
}

type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates a new instance of providerRepository
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(cfg *providerdomain.LLMProviderConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = time.Now()

	// First provider for a user becomes active automatically.
	var count int64
	if err := r.db.Model(&providerdomain.LLMProviderConfig{}).
		Where("user_id = ?", cfg.UserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		cfg.IsActive = true
	}

	return r.db.Create(cfg).Error
}

func (r *providerRepository) FindByID(id string) (*providerdomain.LLMProviderConfig, error) {
	var cfg providerdomain.LLMProviderConfig
	err := r.db.Where("id = ?", id).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *providerRepository) FindByUserID(userID string) ([]*providerdomain.LLMProviderConfig, error) {
	var configs []*providerdomain.LLMProviderConfig
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *providerRepository) FindActiveByUserID(userID string) (*providerdomain.LLMProviderConfig, error) {
	var cfg providerdomain.LLMProviderConfig
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// SetActive activates one config and deactivates the rest in a transaction,
// keeping the one-active-per-user invariant.
func (r *providerRepository) SetActive(userID, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var cfg providerdomain.LLMProviderConfig
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&cfg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("provider config %s not found for user", id)
			}
			return err
		}

		if err := tx.Model(&providerdomain.LLMProviderConfig{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error; err != nil {
			return err
		}

		return tx.Model(&providerdomain.LLMProviderConfig{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_active": true, "updated_at": time.Now()}).Error
	})
}
