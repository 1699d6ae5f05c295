package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Digital-Mercenaries/zorp/internal/contracts"
	"github.com/Digital-Mercenaries/zorp/internal/models"
)

// StudyHandler exposes the contract read surface
type StudyHandler struct {
	reader  *contracts.StudyReader
	factory *contracts.FactoryReader
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(reader *contracts.StudyReader, factory *contracts.FactoryReader) *StudyHandler {
	return &StudyHandler{reader: reader, factory: factory}
}

// GetStudy returns the aggregated study record
// GET /api/studies/:address
func (h *StudyHandler) GetStudy(c *gin.Context) {
	study, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid study address format"})
		return
	}

	record, err := h.reader.StudyRecord(c.Request.Context(), study)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to read study contract",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetParticipantStatus returns one participant's submission status
// GET /api/studies/:address/participants/:participant
func (h *StudyHandler) GetParticipantStatus(c *gin.Context) {
	study, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid study address format"})
		return
	}
	participant, ok := parseAddress(c.Param("participant"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant address format"})
		return
	}

	status, err := h.reader.ParticipantStatus(c.Request.Context(), study, participant)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to read participant status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.ParticipantSubmission{
		ParticipantAddress: participant.Hex(),
		Status:             status,
		StatusLabel:        status.String(),
	})
}

// ListSubmittedData walks submitted_data(index) from a 1-based start
// GET /api/studies/:address/submissions?start=1&limit=10
func (h *StudyHandler) ListSubmittedData(c *gin.Context) {
	study, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid study address format"})
		return
	}

	start := parseUintQuery(c.Query("start"), 1)
	limit := parseUintQuery(c.Query("limit"), 10)
	if start < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be >= 1"})
		return
	}
	if limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	cids := make([]string, 0, limit)
	for index := start; index < start+limit; index++ {
		cid, err := h.reader.SubmittedData(c.Request.Context(), study, index)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Failed to read submitted data",
				"index":   index,
				"details": err.Error(),
			})
			return
		}
		if cid == "" {
			break
		}
		cids = append(cids, cid)
	}

	c.JSON(http.StatusOK, gin.H{
		"study": study.Hex(),
		"start": start,
		"cids":  cids,
	})
}

// PaginateStudies lists study addresses from the factory
// GET /api/factory/studies?start=1&limit=10
func (h *StudyHandler) PaginateStudies(c *gin.Context) {
	if h.factory == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No factory contract configured",
		})
		return
	}

	start := parseUintQuery(c.Query("start"), 1)
	limit := parseUintQuery(c.Query("limit"), 10)

	addresses, err := h.factory.PaginateStudies(c.Request.Context(), start, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to paginate studies",
			"details": err.Error(),
		})
		return
	}

	hexAddresses := make([]string, 0, len(addresses))
	for _, address := range addresses {
		hexAddresses = append(hexAddresses, address.Hex())
	}

	c.JSON(http.StatusOK, gin.H{
		"start":   start,
		"limit":   limit,
		"studies": hexAddresses,
	})
}
