package domain

import (
	"encoding/json"
	"time"
)

// StyleFeatures is the learned writing-style summary for one relationship.
// Numeric fields are running averages; map fields are occurrence counts.
type StyleFeatures struct {
	Formality       float64        `json:"formality"`        // 0 = casual, 1 = formal
	AvgWordCount    float64        `json:"avg_word_count"`   // typical reply length
	ExclamationRate float64        `json:"exclamation_rate"` // exclamations per message
	Greetings       map[string]int `json:"greetings,omitempty"`
	Signoffs        map[string]int `json:"signoffs,omitempty"`
	Vocabulary      map[string]int `json:"vocabulary,omitempty"` // distinctive words
}

// Observations is a batch of style features extracted from Count sent
// messages, ready to be merged into a profile.
type Observations struct {
	Count    int
	Features StyleFeatures
}

// ToneProfile is one learned profile per (user, relationship-type) pair.
// EmailsAnalyzed only ever increases; updates are merges, never overwrites.
type ToneProfile struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"uniqueIndex:idx_user_relationship;not null"`
	RelationshipType string    `json:"relationship_type" gorm:"uniqueIndex:idx_user_relationship;not null"`
	Features         string    `json:"-" gorm:"type:jsonb"`
	EmailsAnalyzed   int       `json:"emails_analyzed"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ToneProfile) TableName() string {
	return "tone_profiles"
}

// DecodeFeatures unmarshals the stored feature blob. An empty blob decodes to
// zero-valued features, which is a valid generic profile.
func (p *ToneProfile) DecodeFeatures() (StyleFeatures, error) {
	var f StyleFeatures
	if p.Features == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(p.Features), &f); err != nil {
		return StyleFeatures{}, err
	}
	return f, nil
}

// EncodeFeatures marshals features back into the stored blob.
func (p *ToneProfile) EncodeFeatures(f StyleFeatures) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	p.Features = string(raw)
	return nil
}

// IsEmpty reports whether the profile has no history behind it. Empty
// profiles are valid generation inputs: the draft just gets a neutral tone.
func (p *ToneProfile) IsEmpty() bool {
	return p == nil || p.EmailsAnalyzed == 0
}
