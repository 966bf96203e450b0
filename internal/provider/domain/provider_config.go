package domain

import "time"

// LLMProviderConfig is one configured generation backend for a user. The
// provider type selects the wire adapter; the API key is a vault blob.
// Exactly one config per user is active for generation; inactive ones are
// retained for testing and comparison.
type LLMProviderConfig struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	UserID          string    `json:"user_id" gorm:"index;not null"`
	ProviderType    string    `json:"provider_type" gorm:"not null"` // "gemini", "ollama", "openrouter"
	ModelName       string    `json:"model_name"`
	EncryptedAPIKey string    `json:"-" gorm:"type:text"`
	BaseURL         string    `json:"base_url,omitempty"`
	IsActive        bool      `json:"is_active" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (LLMProviderConfig) TableName() string {
	return "llm_provider_configs"
}
