package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/Digital-Mercenaries/zorp/internal/submission"
)

// SessionHandler manages submission sessions and their eligibility view
type SessionHandler struct {
	manager *submission.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *submission.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// sessionTargetRequest addresses a session's reads at a study/participant pair
type sessionTargetRequest struct {
	Study       string `json:"study" binding:"required"`
	Participant string `json:"participant"`
}

// createSessionRequest opens a session for one wallet and target
type createSessionRequest struct {
	Wallet          string `json:"wallet"`
	WalletConnected bool   `json:"wallet_connected"`
	Study           string `json:"study" binding:"required"`
	Participant     string `json:"participant"`
}

// CreateSession opens a session and starts its eligibility watcher
// POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	study, ok := parseAddress(req.Study)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid study address format"})
		return
	}

	var wallet common.Address
	if req.Wallet != "" {
		wallet, ok = parseAddress(req.Wallet)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address format"})
			return
		}
	}

	var participant common.Address
	if req.Participant != "" {
		participant, ok = parseAddress(req.Participant)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant address format"})
			return
		}
	}

	session, err := h.manager.Create(wallet, req.WalletConnected, study, participant)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to open session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

// GetEligibility returns the latest snapshot and the projected action gates
// GET /api/sessions/:id/eligibility
func (h *SessionHandler) GetEligibility(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot": session.Watcher.Snapshot(),
		"actions":  session.Watcher.Actions(),
		"status":   session.LastStatus(),
	})
}

// SetTarget re-addresses the session's reads. In-flight reads against the old
// target are discarded by the watcher, never merged.
// PUT /api/sessions/:id/target
func (h *SessionHandler) SetTarget(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req sessionTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	study, ok := parseAddress(req.Study)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid study address format"})
		return
	}

	var participant common.Address
	if req.Participant != "" {
		participant, ok = parseAddress(req.Participant)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant address format"})
			return
		}
	}

	session.Watcher.SetTarget(study, participant)
	c.JSON(http.StatusOK, gin.H{"status": "Info: target updated; reads pending for the new target"})
}

// SetWallet updates the session's wallet connection state
// PUT /api/sessions/:id/wallet
func (h *SessionHandler) SetWallet(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req struct {
		Wallet    string `json:"wallet"`
		Connected bool   `json:"connected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	var wallet common.Address
	if req.Wallet != "" {
		var ok bool
		wallet, ok = parseAddress(req.Wallet)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address format"})
			return
		}
	}

	session.Watcher.SetWallet(wallet, req.Connected)
	c.JSON(http.StatusOK, gin.H{"status": "Info: wallet state updated"})
}

// CloseSession stops the watcher and forgets the session
// DELETE /api/sessions/:id
func (h *SessionHandler) CloseSession(c *gin.Context) {
	if !h.manager.Close(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Info: session closed"})
}
