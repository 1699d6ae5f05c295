package submission

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/eligibility"
	"github.com/Digital-Mercenaries/zorp/internal/events"
	"github.com/Digital-Mercenaries/zorp/internal/irys"
	"github.com/Digital-Mercenaries/zorp/internal/metrics"
	"github.com/Digital-Mercenaries/zorp/internal/models"
	"github.com/Digital-Mercenaries/zorp/internal/pgp"
)

// KeyAcquirer resolves the recipient keys for an attempt
type KeyAcquirer interface {
	FromArmor(armored []byte) (*pgp.PublicKeyMaterial, error)
	AcquireBoth(ctx context.Context, study common.Address, participantArmor []byte) (participant, studyKey *pgp.PublicKeyMaterial, err error)
}

// Uploader moves opaque bytes into the storage network
type Uploader interface {
	Upload(ctx context.Context, data []byte) (*models.StorageReceipt, error)
}

// ContractWriter issues the contract writes that close out an attempt
type ContractWriter interface {
	CreateStudy(ctx context.Context, factory, owner common.Address, cid string, deposit *big.Int) (common.Hash, error)
	SubmitData(ctx context.Context, study common.Address, cid string) (common.Hash, error)
	StartStudy(ctx context.Context, study common.Address) (common.Hash, error)
	FlagInvalidSubmission(ctx context.Context, study, participant common.Address) (common.Hash, error)
}

// Gate exposes the session's eligibility projection to the pipeline
type Gate interface {
	Actions() eligibility.Actions
	SetKeysReady(keysReady bool)
	SetCreateInputs(depositAmount *big.Int, uploadCid string)
}

// Result is the terminal outcome of a successful attempt
type Result struct {
	AttemptID    string                 `json:"attempt_id"`
	Action       string                 `json:"action"`
	Receipt      *models.StorageReceipt `json:"receipt,omitempty"`
	Fingerprints []string               `json:"recipient_fingerprints,omitempty"`
	TxHash       string                 `json:"tx_hash"`
	Status       string                 `json:"status"`
}

// Orchestrator sequences one submission attempt: acquire keys, encrypt,
// upload, contract write. Each step short-circuits into a typed StageError.
// Every attempt owns its working state: key material and ciphertext live in
// the attempt's stack frame and are dropped when it returns, so abandoned
// attempts leave nothing behind.
type Orchestrator struct {
	acquirer KeyAcquirer
	uploader Uploader
	writer   ContractWriter
	factory  common.Address
	events   *events.Publisher
	logger   *logrus.Logger
}

// NewOrchestrator creates a new submission orchestrator
func NewOrchestrator(acquirer KeyAcquirer, uploader Uploader, writer ContractWriter, factory common.Address, publisher *events.Publisher, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		acquirer: acquirer,
		uploader: uploader,
		writer:   writer,
		factory:  factory,
		events:   publisher,
		logger:   logger,
	}
}

// SubmitDataRequest carries one participant data submission attempt
type SubmitDataRequest struct {
	AttemptID        string
	Study            common.Address
	ParticipantArmor []byte
	Plaintext        []byte
}

// SubmitData runs the full pipeline for a participant data submission:
//  1. acquire participant and study public keys, concurrently
//  2. encrypt the plaintext to both keys
//  3. upload the ciphertext
//  4. issue ZorpStudy.submitData with the receipt's cid, gated by the
//     session's eligibility projection
func (o *Orchestrator) SubmitData(ctx context.Context, gate Gate, req SubmitDataRequest) (*Result, error) {
	log := o.logger.WithFields(logrus.Fields{
		"attempt": req.AttemptID,
		"study":   req.Study.Hex(),
	})
	log.Info("🚀 Starting data submission attempt")
	o.events.Publish(events.SubjectAttemptStarted, map[string]string{
		"attempt_id": req.AttemptID,
		"action":     "submitData",
		"study":      req.Study.Hex(),
	})

	// Step 1: key acquisition
	participantKey, studyKey, err := o.acquirer.AcquireBoth(ctx, req.Study, req.ParticipantArmor)
	if err != nil {
		return nil, o.fail(req.AttemptID, "submitData", &StageError{
			Stage:  StageKeyAcquisition,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}
	log.WithFields(logrus.Fields{
		"participant_key": participantKey.Fingerprint(),
		"study_key":       studyKey.Fingerprint(),
	}).Info("🔑 Recipient keys acquired")

	// Step 2: encryption to both recipients
	payload, err := pgp.Encrypt(req.Plaintext, []*pgp.PublicKeyMaterial{participantKey, studyKey})
	if err != nil {
		return nil, o.fail(req.AttemptID, "submitData", &StageError{
			Stage:  StageEncryption,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}
	gate.SetKeysReady(true)

	// Step 3: ciphertext upload
	receipt, err := o.uploader.Upload(ctx, payload.Ciphertext)
	if err != nil {
		return nil, o.fail(req.AttemptID, "submitData", uploadStageError(err))
	}
	log.WithFields(logrus.Fields{
		"cid":   receipt.Cid,
		"bytes": receipt.ByteSize,
	}).Info("📦 Ciphertext uploaded")
	o.events.Publish(events.SubjectCiphertextSaved, map[string]string{
		"attempt_id": req.AttemptID,
		"cid":        receipt.Cid,
	})

	// Step 4: contract write, gated
	if !gate.Actions().SubmitData {
		err := errors.New("submitData is not enabled for the current snapshot")
		return nil, o.fail(req.AttemptID, "submitData", &StageError{
			Stage:  StageEligibility,
			Status: "Warn: submitData is not enabled; refusing the contract write",
			Err:    err,
		})
	}

	txHash, err := o.writer.SubmitData(ctx, req.Study, receipt.Cid)
	if err != nil {
		return nil, o.fail(req.AttemptID, "submitData", &StageError{
			Stage:  StageContractWrite,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}

	metrics.SubmissionAttemptsTotal.WithLabelValues("submitData", "success").Inc()
	o.events.Publish(events.SubjectWriteConfirmed, map[string]string{
		"attempt_id": req.AttemptID,
		"tx_hash":    txHash.Hex(),
	})

	return &Result{
		AttemptID:    req.AttemptID,
		Action:       "submitData",
		Receipt:      receipt,
		Fingerprints: payload.RecipientFingerprints,
		TxHash:       txHash.Hex(),
		Status:       fmt.Sprintf("Success: transaction hash: %s", txHash.Hex()),
	}, nil
}

// CreateStudyRequest carries one study creation attempt
type CreateStudyRequest struct {
	AttemptID     string
	Owner         common.Address
	OwnerKeyArmor []byte
	DepositAmount *big.Int
}

// CreateStudy runs the study creation pipeline: parse the owner's public key,
// upload its armor to the storage network, then call ZorpFactory.createStudy
// with the resulting cid, payable with the deposit.
func (o *Orchestrator) CreateStudy(ctx context.Context, gate Gate, req CreateStudyRequest) (*Result, error) {
	// A zero factory address would route the payable deposit to the zero
	// address. Refuse before any key parsing or upload is paid for.
	if o.factory == (common.Address{}) {
		err := errors.New("no factory contract is configured")
		return nil, o.fail(req.AttemptID, "createStudy", &StageError{
			Stage:  StageContractWrite,
			Status: "Error: no factory contract is configured; createStudy is unavailable",
			Err:    err,
		})
	}

	log := o.logger.WithFields(logrus.Fields{
		"attempt": req.AttemptID,
		"owner":   req.Owner.Hex(),
	})
	log.Info("🚀 Starting study creation attempt")
	o.events.Publish(events.SubjectAttemptStarted, map[string]string{
		"attempt_id": req.AttemptID,
		"action":     "createStudy",
		"owner":      req.Owner.Hex(),
	})

	ownerKey, err := o.acquirer.FromArmor(req.OwnerKeyArmor)
	if err != nil {
		return nil, o.fail(req.AttemptID, "createStudy", &StageError{
			Stage:  StageKeyAcquisition,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}

	receipt, err := o.uploader.Upload(ctx, []byte(ownerKey.Armored))
	if err != nil {
		return nil, o.fail(req.AttemptID, "createStudy", uploadStageError(err))
	}
	log.WithField("cid", receipt.Cid).Info("📦 Study key uploaded")
	o.events.Publish(events.SubjectCiphertextSaved, map[string]string{
		"attempt_id": req.AttemptID,
		"cid":        receipt.Cid,
	})

	gate.SetCreateInputs(req.DepositAmount, receipt.Cid)
	if !gate.Actions().CreateStudy {
		err := errors.New("createStudy is not enabled for the current snapshot")
		return nil, o.fail(req.AttemptID, "createStudy", &StageError{
			Stage:  StageEligibility,
			Status: "Warn: createStudy is not enabled; refusing the contract write",
			Err:    err,
		})
	}

	txHash, err := o.writer.CreateStudy(ctx, o.factory, req.Owner, receipt.Cid, req.DepositAmount)
	if err != nil {
		return nil, o.fail(req.AttemptID, "createStudy", &StageError{
			Stage:  StageContractWrite,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}

	metrics.SubmissionAttemptsTotal.WithLabelValues("createStudy", "success").Inc()
	o.events.Publish(events.SubjectWriteConfirmed, map[string]string{
		"attempt_id": req.AttemptID,
		"tx_hash":    txHash.Hex(),
	})

	return &Result{
		AttemptID: req.AttemptID,
		Action:    "createStudy",
		Receipt:   receipt,
		TxHash:    txHash.Hex(),
		Status:    fmt.Sprintf("Success: transaction hash: %s", txHash.Hex()),
	}, nil
}

// StartStudy issues ZorpStudy.startStudy, gated by the session's projection
func (o *Orchestrator) StartStudy(ctx context.Context, gate Gate, study common.Address) (*Result, error) {
	if !gate.Actions().StartStudy {
		err := errors.New("startStudy is not enabled for the current snapshot")
		return nil, o.fail("", "startStudy", &StageError{
			Stage:  StageEligibility,
			Status: "Warn: startStudy is not enabled; refusing the contract write",
			Err:    err,
		})
	}

	txHash, err := o.writer.StartStudy(ctx, study)
	if err != nil {
		return nil, o.fail("", "startStudy", &StageError{
			Stage:  StageContractWrite,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}

	metrics.SubmissionAttemptsTotal.WithLabelValues("startStudy", "success").Inc()
	return &Result{
		Action: "startStudy",
		TxHash: txHash.Hex(),
		Status: fmt.Sprintf("Success: transaction hash: %s", txHash.Hex()),
	}, nil
}

// FlagInvalidSubmission issues ZorpStudy.flagInvalidSubmission, gated by the
// session's projection
func (o *Orchestrator) FlagInvalidSubmission(ctx context.Context, gate Gate, study, participant common.Address) (*Result, error) {
	if !gate.Actions().FlagInvalidSubmission {
		err := errors.New("flagInvalidSubmission is not enabled for the current snapshot")
		return nil, o.fail("", "flagInvalidSubmission", &StageError{
			Stage:  StageEligibility,
			Status: "Warn: flagInvalidSubmission is not enabled; refusing the contract write",
			Err:    err,
		})
	}

	txHash, err := o.writer.FlagInvalidSubmission(ctx, study, participant)
	if err != nil {
		return nil, o.fail("", "flagInvalidSubmission", &StageError{
			Stage:  StageContractWrite,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		})
	}

	metrics.SubmissionAttemptsTotal.WithLabelValues("flagInvalidSubmission", "success").Inc()
	return &Result{
		Action: "flagInvalidSubmission",
		TxHash: txHash.Hex(),
		Status: fmt.Sprintf("Success: transaction hash: %s", txHash.Hex()),
	}, nil
}

// uploadStageError classifies a storage error into the upload stage failure.
// An ambiguous outcome is surfaced as such: the provider may have accepted
// the bytes, so the caller must re-initiate explicitly rather than have the
// pipeline upload a second time at a second cost.
func uploadStageError(err error) *StageError {
	var uploadErr *irys.UploadError
	if errors.As(err, &uploadErr) && uploadErr.Ambiguous {
		return &StageError{
			Stage:     StageUpload,
			Status:    "Error: upload outcome is ambiguous; the provider may have accepted the bytes. Re-initiate the attempt explicitly.",
			Ambiguous: true,
			Err:       err,
		}
	}

	var balanceErr *irys.InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		return &StageError{
			Stage:  StageUpload,
			Status: fmt.Sprintf("Error: %v", err),
			Err:    err,
		}
	}

	return &StageError{
		Stage:  StageUpload,
		Status: fmt.Sprintf("Error: %v", err),
		Err:    err,
	}
}

// fail records a terminal stage failure and returns it
func (o *Orchestrator) fail(attemptID, action string, stageErr *StageError) error {
	metrics.SubmissionAttemptsTotal.WithLabelValues(action, "failure").Inc()
	metrics.SubmissionStageFailures.WithLabelValues(string(stageErr.Stage)).Inc()

	o.logger.WithFields(logrus.Fields{
		"attempt": attemptID,
		"action":  action,
		"stage":   stageErr.Stage,
	}).WithError(stageErr.Err).Error("❌ Submission attempt failed")

	o.events.Publish(events.SubjectAttemptFailed, map[string]string{
		"attempt_id": attemptID,
		"action":     action,
		"stage":      string(stageErr.Stage),
		"status":     stageErr.Status,
	})
	return stageErr
}
