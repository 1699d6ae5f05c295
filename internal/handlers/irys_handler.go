package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Digital-Mercenaries/zorp/internal/irys"
)

// IrysHandler exposes the storage gateway surface
type IrysHandler struct {
	client *irys.Client
}

// NewIrysHandler creates a new Irys handler
func NewIrysHandler(client *irys.Client) *IrysHandler {
	return &IrysHandler{client: client}
}

// GetBalance queries the funded node balance for an account
// GET /api/irys/balance/:address
func (h *IrysHandler) GetBalance(c *gin.Context) {
	account, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account address format"})
		return
	}

	balance, err := h.client.GetBalance(c.Request.Context(), account.Hex())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to query Irys balance",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": account.Hex(),
		"balance": balance.String(),
	})
}

// FetchContent downloads the raw bytes behind a content identifier
// GET /api/irys/content/:cid
func (h *IrysHandler) FetchContent(c *gin.Context) {
	cid := c.Param("cid")

	data, err := h.client.Fetch(c.Request.Context(), cid)
	if err != nil {
		var notFound *irys.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found", "cid": cid})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch content",
			"details": err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", data)
}
