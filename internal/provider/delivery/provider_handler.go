package delivery

import (
	"log"
	"net/http"

	providerdomain "tonedraft-backend/internal/provider/domain"
	providerrepo "tonedraft-backend/internal/provider/repository"
	"tonedraft-backend/pkg/crypto"
	"tonedraft-backend/pkg/llm"

	"github.com/gin-gonic/gin"
)

type ProviderHandler struct {
	providers providerrepo.ProviderRepository
	masterKey string
}

func NewProviderHandler(providers providerrepo.ProviderRepository, masterKey string) *ProviderHandler {
	return &ProviderHandler{providers: providers, masterKey: masterKey}
}

type createProviderRequest struct {
	ProviderType string `json:"provider_type" binding:"required"`
	ModelName    string `json:"model_name"`
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
}

// Create registers a generation backend. The API key is sealed into the
// vault; the first config a user registers becomes active automatically.
func (h *ProviderHandler) Create(c *gin.Context) {
	userID := c.GetString("userID")

	var req createProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch llm.ProviderType(req.ProviderType) {
	case llm.ProviderGemini, llm.ProviderOpenRouter:
		if req.APIKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required for " + req.ProviderType})
			return
		}
	case llm.ProviderOllama:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported provider type: " + req.ProviderType})
		return
	}

	cfg := &providerdomain.LLMProviderConfig{
		UserID:       userID,
		ProviderType: req.ProviderType,
		ModelName:    req.ModelName,
		BaseURL:      req.BaseURL,
	}
	if req.APIKey != "" {
		encrypted, err := crypto.Encrypt(req.APIKey, h.masterKey)
		if err != nil {
			log.Printf("[ProviderHandler] Failed to encrypt API key for %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store API key"})
			return
		}
		cfg.EncryptedAPIKey = encrypted
	}

	if err := h.providers.Create(cfg); err != nil {
		log.Printf("[ProviderHandler] Failed to create provider config for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create provider config"})
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

func (h *ProviderHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	configs, err := h.providers.FindByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list provider configs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": configs})
}

// Activate switches generation to the named config. Exactly one config per
// user stays active.
func (h *ProviderHandler) Activate(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	if err := h.providers.SetActive(userID, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activated"})
}
