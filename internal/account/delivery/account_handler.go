package delivery

import (
	"log"
	"net/http"

	accountdomain "tonedraft-backend/internal/account/domain"
	accountrepo "tonedraft-backend/internal/account/repository"
	"tonedraft-backend/pkg/crypto"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accounts  accountrepo.AccountRepository
	masterKey string
}

func NewAccountHandler(accounts accountrepo.AccountRepository, masterKey string) *AccountHandler {
	return &AccountHandler{accounts: accounts, masterKey: masterKey}
}

type connectAccountRequest struct {
	Address  string `json:"address" binding:"required,email"`
	IMAPHost string `json:"imap_host" binding:"required"`
	IMAPPort int    `json:"imap_port" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Connect registers a mailbox. The password is sealed into the vault before
// the row is written; the response never echoes it.
func (h *AccountHandler) Connect(c *gin.Context) {
	userID := c.GetString("userID")

	var req connectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encrypted, err := crypto.Encrypt(req.Password, h.masterKey)
	if err != nil {
		log.Printf("[AccountHandler] Failed to encrypt credential for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credential"})
		return
	}

	account := &accountdomain.EmailAccount{
		UserID:            userID,
		Address:           req.Address,
		IMAPHost:          req.IMAPHost,
		IMAPPort:          req.IMAPPort,
		Username:          req.Username,
		EncryptedPassword: encrypted,
		IsActive:          true,
	}
	if err := h.accounts.Create(account); err != nil {
		log.Printf("[AccountHandler] Failed to create account for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	accounts, err := h.accounts.FindByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// Deactivate disables an account. Its queued work is dropped by the workers;
// history stays.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	account, err := h.accounts.FindByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}
	if account == nil || account.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	if err := h.accounts.Deactivate(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
