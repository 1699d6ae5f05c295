package submission

import "fmt"

// Stage names one step of the submission pipeline
type Stage string

const (
	StageKeyAcquisition Stage = "key_acquisition"
	StageEncryption     Stage = "encryption"
	StageUpload         Stage = "upload"
	StageEligibility    Stage = "eligibility"
	StageContractWrite  Stage = "contract_write"
)

// StageError is the typed failure of one pipeline stage. Status carries the
// user-visible message; Err retains the underlying typed error for
// programmatic inspection. Ambiguous marks an upload whose outcome is
// unknown; the attempt must be re-initiated explicitly, never retried
// silently.
type StageError struct {
	Stage     Stage
	Status    string
	Ambiguous bool
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
