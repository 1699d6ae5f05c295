package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Digital-Mercenaries/zorp/internal/metrics"
	"github.com/Digital-Mercenaries/zorp/internal/models"
)

// ContractCaller is the read-only slice of an Ethereum client needed by the
// readers. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// StudyReader reads IZorpStudy contract state. Every method is one fresh
// eth_call against the node; nothing is cached.
type StudyReader struct {
	caller ContractCaller
}

// NewStudyReader creates a new study reader
func NewStudyReader(caller ContractCaller) *StudyReader {
	return &StudyReader{caller: caller}
}

// call packs a method call, executes it, and unpacks the raw result
func (r *StudyReader) call(ctx context.Context, study common.Address, method string, args ...interface{}) ([]interface{}, error) {
	metrics.ContractReadsTotal.WithLabelValues(method).Inc()

	data, err := StudyABI.Pack(method, args...)
	if err != nil {
		metrics.ContractReadErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &study,
		Data: data,
	}

	result, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		metrics.ContractReadErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	unpacked, err := StudyABI.Unpack(method, result)
	if err != nil {
		metrics.ContractReadErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}

	return unpacked, nil
}

// Owner reads the study owner address
func (r *StudyReader) Owner(ctx context.Context, study common.Address) (common.Address, error) {
	unpacked, err := r.call(ctx, study, "owner")
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := unpacked[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected type %T for owner", unpacked[0])
	}
	return owner, nil
}

// StudyStatus reads the integer-coded study lifecycle status
func (r *StudyReader) StudyStatus(ctx context.Context, study common.Address) (models.StudyStatus, error) {
	raw, err := r.callUint8(ctx, study, "study_status")
	if err != nil {
		return 0, err
	}
	status := models.StudyStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("study_status returned unknown value %d", raw)
	}
	return status, nil
}

// ParticipantStatus reads the integer-coded submission status for one participant
func (r *StudyReader) ParticipantStatus(ctx context.Context, study, participant common.Address) (models.ParticipantStatus, error) {
	raw, err := r.callUint8(ctx, study, "participant_status", participant)
	if err != nil {
		return 0, err
	}
	status := models.ParticipantStatus(raw)
	if !status.Valid() {
		return 0, fmt.Errorf("participant_status returned unknown value %d", raw)
	}
	return status, nil
}

// EncryptionKey reads the content identifier of the study's public key.
// Empty until the owner has set it.
func (r *StudyReader) EncryptionKey(ctx context.Context, study common.Address) (string, error) {
	unpacked, err := r.call(ctx, study, "encryption_key")
	if err != nil {
		return "", err
	}
	cid, ok := unpacked[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T for encryption_key", unpacked[0])
	}
	return cid, nil
}

// SubmittedData reads the ciphertext content identifier at a 1-based index
func (r *StudyReader) SubmittedData(ctx context.Context, study common.Address, index uint64) (string, error) {
	if index < 1 {
		return "", fmt.Errorf("submitted_data index must be >= 1, got %d", index)
	}
	unpacked, err := r.call(ctx, study, "submitted_data", new(big.Int).SetUint64(index))
	if err != nil {
		return "", err
	}
	cid, ok := unpacked[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T for submitted_data", unpacked[0])
	}
	return cid, nil
}

// DepositAmount reads the study deposit in native currency
func (r *StudyReader) DepositAmount(ctx context.Context, study common.Address) (*big.Int, error) {
	return r.callBig(ctx, study, "deposit_amount")
}

// ParticipantPayoutAmount reads the per-participant payout in native currency
func (r *StudyReader) ParticipantPayoutAmount(ctx context.Context, study common.Address) (*big.Int, error) {
	return r.callBig(ctx, study, "participant_payout_amount")
}

// StudyRecord aggregates the read-only study fields into one record
func (r *StudyReader) StudyRecord(ctx context.Context, study common.Address) (*models.StudyRecord, error) {
	owner, err := r.Owner(ctx, study)
	if err != nil {
		return nil, err
	}
	status, err := r.StudyStatus(ctx, study)
	if err != nil {
		return nil, err
	}
	cid, err := r.EncryptionKey(ctx, study)
	if err != nil {
		return nil, err
	}
	deposit, err := r.DepositAmount(ctx, study)
	if err != nil {
		return nil, err
	}
	payout, err := r.ParticipantPayoutAmount(ctx, study)
	if err != nil {
		return nil, err
	}

	return &models.StudyRecord{
		Address:                 study.Hex(),
		Owner:                   owner.Hex(),
		Status:                  status,
		StatusLabel:             status.String(),
		EncryptionKeyCid:        cid,
		DepositAmount:           deposit,
		ParticipantPayoutAmount: payout,
	}, nil
}

// callUint8 calls a method whose single output is a uint8 status code
func (r *StudyReader) callUint8(ctx context.Context, study common.Address, method string, args ...interface{}) (uint8, error) {
	unpacked, err := r.call(ctx, study, method, args...)
	if err != nil {
		return 0, err
	}
	if len(unpacked) == 0 {
		return 0, fmt.Errorf("empty result from %s", method)
	}

	switch v := unpacked[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unexpected type %T for %s", v, method)
	}
}

// callBig calls a method whose single output is a uint256
func (r *StudyReader) callBig(ctx context.Context, study common.Address, method string) (*big.Int, error) {
	unpacked, err := r.call(ctx, study, method)
	if err != nil {
		return nil, err
	}
	value, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T for %s", unpacked[0], method)
	}
	return value, nil
}
