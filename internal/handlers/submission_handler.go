package handlers

import (
	"errors"
	"io"
	"math/big"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Digital-Mercenaries/zorp/internal/irys"
	"github.com/Digital-Mercenaries/zorp/internal/submission"
)

// maxUploadBytes caps the multipart payloads accepted over the API
const maxUploadBytes = 32 << 20

// SubmissionHandler drives the submission pipeline over HTTP
type SubmissionHandler struct {
	manager      *submission.Manager
	orchestrator *submission.Orchestrator
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(manager *submission.Manager, orchestrator *submission.Orchestrator) *SubmissionHandler {
	return &SubmissionHandler{manager: manager, orchestrator: orchestrator}
}

// SubmitData runs the participant data submission pipeline for a session.
// Multipart form: "key" (participant's armored public key), "data" (plaintext
// to encrypt and submit).
// POST /api/sessions/:id/submit-data
func (h *SubmissionHandler) SubmitData(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	keyArmor, ok := readFormFile(c, "key")
	if !ok {
		return
	}
	plaintext, ok := readFormFile(c, "data")
	if !ok {
		return
	}

	snapshot := session.Watcher.Snapshot()
	if snapshot == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: eligibility reads have not resolved yet"})
		return
	}

	if err := session.BeginAttempt(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: " + err.Error()})
		return
	}

	result, err := h.orchestrator.SubmitData(c.Request.Context(), session.Watcher, submission.SubmitDataRequest{
		AttemptID:        submission.NewAttemptID(),
		Study:            snapshot.Study,
		ParticipantArmor: keyArmor,
		Plaintext:        plaintext,
	})
	if err != nil {
		session.EndAttempt(statusOf(err))
		writeStageError(c, err)
		return
	}

	session.EndAttempt(result.Status)
	c.JSON(http.StatusOK, result)
}

// CreateStudy runs the study creation pipeline for a session. Multipart form:
// "key" (the study owner's armored public key), "owner" and "deposit_amount"
// fields.
// POST /api/sessions/:id/create-study
func (h *SubmissionHandler) CreateStudy(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	owner, ok := parseAddress(c.PostForm("owner"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner address format"})
		return
	}

	deposit, ok := new(big.Int).SetString(c.PostForm("deposit_amount"), 10)
	if !ok || deposit.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Warn: waiting for positive study deposit amount"})
		return
	}

	keyArmor, ok := readFormFile(c, "key")
	if !ok {
		return
	}

	if err := session.BeginAttempt(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: " + err.Error()})
		return
	}

	result, err := h.orchestrator.CreateStudy(c.Request.Context(), session.Watcher, submission.CreateStudyRequest{
		AttemptID:     submission.NewAttemptID(),
		Owner:         owner,
		OwnerKeyArmor: keyArmor,
		DepositAmount: deposit,
	})
	if err != nil {
		session.EndAttempt(statusOf(err))
		writeStageError(c, err)
		return
	}

	session.EndAttempt(result.Status)
	c.JSON(http.StatusOK, result)
}

// StartStudy issues the owner-only startStudy write for the session's target
// POST /api/sessions/:id/start-study
func (h *SubmissionHandler) StartStudy(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	snapshot := session.Watcher.Snapshot()
	if snapshot == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: eligibility reads have not resolved yet"})
		return
	}

	if err := session.BeginAttempt(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: " + err.Error()})
		return
	}

	result, err := h.orchestrator.StartStudy(c.Request.Context(), session.Watcher, snapshot.Study)
	if err != nil {
		session.EndAttempt(statusOf(err))
		writeStageError(c, err)
		return
	}

	session.EndAttempt(result.Status)
	c.JSON(http.StatusOK, result)
}

// FlagInvalidSubmission issues the owner-only flag write for the session's
// target pair
// POST /api/sessions/:id/flag-invalid-submission
func (h *SubmissionHandler) FlagInvalidSubmission(c *gin.Context) {
	session, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	snapshot := session.Watcher.Snapshot()
	if snapshot == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: eligibility reads have not resolved yet"})
		return
	}

	if err := session.BeginAttempt(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Warn: " + err.Error()})
		return
	}

	result, err := h.orchestrator.FlagInvalidSubmission(c.Request.Context(), session.Watcher, snapshot.Study, snapshot.Participant)
	if err != nil {
		session.EndAttempt(statusOf(err))
		writeStageError(c, err)
		return
	}

	session.EndAttempt(result.Status)
	c.JSON(http.StatusOK, result)
}

// readFormFile reads one multipart file field, writing the error response
// itself on failure
func readFormFile(c *gin.Context, field string) ([]byte, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing form file", "field": field})
		return nil, false
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large", "field": field})
		return nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable form file", "field": field})
		return nil, false
	}
	defer func(file multipart.File) { _ = file.Close() }(file)

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable form file", "field": field})
		return nil, false
	}
	return data, true
}

// statusOf extracts the user-visible status message from a pipeline error
func statusOf(err error) string {
	var stageErr *submission.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Status
	}
	return "Error: " + err.Error()
}

// writeStageError maps a typed pipeline failure onto an HTTP response
func writeStageError(c *gin.Context, err error) {
	var stageErr *submission.StageError
	if !errors.As(err, &stageErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	code := http.StatusBadGateway
	switch stageErr.Stage {
	case submission.StageKeyAcquisition, submission.StageEncryption:
		code = http.StatusBadRequest
	case submission.StageEligibility:
		code = http.StatusConflict
	case submission.StageUpload:
		var balanceErr *irys.InsufficientBalanceError
		if errors.As(stageErr.Err, &balanceErr) {
			code = http.StatusPaymentRequired
		}
	}

	c.JSON(code, gin.H{
		"error":     stageErr.Status,
		"stage":     stageErr.Stage,
		"ambiguous": stageErr.Ambiguous,
	})
}
