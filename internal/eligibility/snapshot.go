package eligibility

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Digital-Mercenaries/zorp/internal/models"
)

// OwnerRead is the owner() contract read with its resolution flag
type OwnerRead struct {
	Value    common.Address `json:"value"`
	Resolved bool           `json:"resolved"`
}

// StudyStatusRead is the study_status() contract read with its resolution flag
type StudyStatusRead struct {
	Value    models.StudyStatus `json:"value"`
	Resolved bool               `json:"resolved"`
}

// ParticipantStatusRead is the participant_status() contract read with its
// resolution flag
type ParticipantStatusRead struct {
	Value    models.ParticipantStatus `json:"value"`
	Resolved bool                     `json:"resolved"`
}

// Snapshot is a point-in-time view of every input the action gates depend on:
// the contract reads (keyed to the target addresses they were issued against),
// the wallet connection state, and the local working state of the current
// attempt. A snapshot is never mutated after publication, only replaced.
type Snapshot struct {
	// Targets the contract reads were issued against
	Study       common.Address `json:"study"`
	Participant common.Address `json:"participant"`
	TakenAt     time.Time      `json:"taken_at"`

	Wallet          common.Address `json:"wallet"`
	WalletConnected bool           `json:"wallet_connected"`

	Owner             OwnerRead             `json:"owner"`
	StudyStatus       StudyStatusRead       `json:"study_status"`
	ParticipantStatus ParticipantStatusRead `json:"participant_status"`

	// Local attempt state
	DepositAmount *big.Int `json:"deposit_amount,omitempty"`
	UploadCid     string   `json:"upload_cid,omitempty"`
	KeysReady     bool     `json:"keys_ready"`
}

// IsOwner reports whether the connected wallet is the resolved study owner
func (s *Snapshot) IsOwner() bool {
	return s != nil &&
		s.Owner.Resolved &&
		s.Owner.Value != (common.Address{}) &&
		s.Wallet == s.Owner.Value
}

// Actions is the derived enabled/disabled boolean for each user action
type Actions struct {
	CreateStudy           bool `json:"create_study"`
	StartStudy            bool `json:"start_study"`
	SubmitData            bool `json:"submit_data"`
	FlagInvalidSubmission bool `json:"flag_invalid_submission"`
}

// Project computes the action gates from one snapshot. It is a pure function:
// identical inputs always yield identical booleans, and it holds no state.
//
// study and participant are the addresses currently selected; a snapshot whose
// reads were issued against different targets never enables an action for the
// new ones. Any unresolved read disables the actions that depend on it.
func Project(s *Snapshot, study, participant common.Address) Actions {
	if s == nil {
		return Actions{}
	}

	var zero common.Address
	targetMatch := s.Study == study && study != zero
	participantMatch := s.Participant == participant && participant != zero
	walletSet := s.WalletConnected && s.Wallet != zero

	studyPending := s.StudyStatus.Resolved && s.StudyStatus.Value == models.StudyStatusPending
	studyActive := s.StudyStatus.Resolved && s.StudyStatus.Value == models.StudyStatusActive
	participantSubmitted := s.ParticipantStatus.Resolved && s.ParticipantStatus.Value == models.ParticipantStatusSubmitted

	return Actions{
		// createStudy gates on local inputs only: connected wallet with an
		// address, a positive deposit, and a completed key upload.
		CreateStudy: walletSet &&
			s.DepositAmount != nil &&
			s.DepositAmount.Sign() > 0 &&
			s.UploadCid != "",

		StartStudy: walletSet &&
			targetMatch &&
			s.IsOwner() &&
			studyPending,

		// submitData is gated by the key-acquisition and encryption
		// preconditions; contract state beyond the study being active is
		// enforced at write time.
		SubmitData: walletSet &&
			targetMatch &&
			s.KeysReady &&
			studyActive,

		FlagInvalidSubmission: walletSet &&
			targetMatch &&
			participantMatch &&
			s.IsOwner() &&
			participantSubmitted &&
			studyActive,
	}
}
