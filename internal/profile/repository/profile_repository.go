package repository

import (
	"errors"
	"time"

	profiledomain "tonedraft-backend/internal/profile/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository defines the interface for tone profile persistence.
// Mutation goes through the profile store's Merge; the repository itself only
// reads and writes whole rows.
type ProfileRepository interface {
	Get(userID, relationshipType string) (*profiledomain.ToneProfile, error)
	Save(profile *profiledomain.ToneProfile) error
	ListByUserID(userID string) ([]*profiledomain.ToneProfile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new instance of profileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(userID, relationshipType string) (*profiledomain.ToneProfile, error) {
	var profile profiledomain.ToneProfile
	err := r.db.Where("user_id = ? AND relationship_type = ?", userID, relationshipType).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Save(profile *profiledomain.ToneProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
		profile.CreatedAt = time.Now()
		return r.db.Create(profile).Error
	}
	return r.db.Save(profile).Error
}

func (r *profileRepository) ListByUserID(userID string) ([]*profiledomain.ToneProfile, error) {
	var profiles []*profiledomain.ToneProfile
	err := r.db.Where("user_id = ?", userID).Order("relationship_type ASC").Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
