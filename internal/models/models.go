package models

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// StudyStatus lifecycle status of a study, integer-coded on-chain.
// Transitions are contract-enforced and monotonic: Pending -> Active -> Completed.
type StudyStatus uint8

const (
	StudyStatusPending   StudyStatus = 0
	StudyStatusActive    StudyStatus = 1
	StudyStatusCompleted StudyStatus = 2
)

func (s StudyStatus) String() string {
	switch s {
	case StudyStatusPending:
		return "pending"
	case StudyStatusActive:
		return "active"
	case StudyStatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Valid reports whether the on-chain value maps to a known status
func (s StudyStatus) Valid() bool {
	return s <= StudyStatusCompleted
}

// ParticipantStatus lifecycle status of one participant's submission.
// Transitions are contract-enforced: NotSubmitted -> Submitted -> {Flagged | Approved}.
type ParticipantStatus uint8

const (
	ParticipantStatusNotSubmitted ParticipantStatus = 0
	ParticipantStatusSubmitted    ParticipantStatus = 1
	ParticipantStatusFlagged      ParticipantStatus = 2
	ParticipantStatusApproved     ParticipantStatus = 3
)

func (s ParticipantStatus) String() string {
	switch s {
	case ParticipantStatusNotSubmitted:
		return "not_submitted"
	case ParticipantStatusSubmitted:
		return "submitted"
	case ParticipantStatusFlagged:
		return "flagged"
	case ParticipantStatusApproved:
		return "approved"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Valid reports whether the on-chain value maps to a known status
func (s ParticipantStatus) Valid() bool {
	return s <= ParticipantStatusApproved
}

// StudyRecord is the contract-owned view of a study. The pipeline only reads it.
type StudyRecord struct {
	Address                 string      `json:"address"`
	Owner                   string      `json:"owner"`
	Status                  StudyStatus `json:"status"`
	StatusLabel             string      `json:"status_label"`
	EncryptionKeyCid        string      `json:"encryption_key_cid"` // empty until the owner has set it
	DepositAmount           *big.Int    `json:"deposit_amount"`
	ParticipantPayoutAmount *big.Int    `json:"participant_payout_amount"`
}

// ParticipantSubmission is the contract-owned view of one participant's upload.
type ParticipantSubmission struct {
	ParticipantAddress string            `json:"participant_address"`
	Status             ParticipantStatus `json:"status"`
	StatusLabel        string            `json:"status_label"`
	DataCid            string            `json:"data_cid,omitempty"` // present only once submitted
}

// EncryptedPayload is the immutable output of the encryption engine.
// RecipientFingerprints holds exactly the fingerprints of every key the
// payload was encrypted to.
type EncryptedPayload struct {
	Ciphertext            []byte
	RecipientFingerprints []string
}

// StorageReceipt is produced once per successful upload. Cid is the value
// carried into the subsequent contract write.
type StorageReceipt struct {
	Cid             string          `json:"cid"`
	ProviderReceipt json.RawMessage `json:"provider_receipt,omitempty"`
	ByteSize        int64           `json:"byte_size"`
}
