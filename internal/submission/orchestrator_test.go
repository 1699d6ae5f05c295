package submission

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Mercenaries/zorp/internal/config"
	"github.com/Digital-Mercenaries/zorp/internal/eligibility"
	"github.com/Digital-Mercenaries/zorp/internal/events"
	"github.com/Digital-Mercenaries/zorp/internal/irys"
	"github.com/Digital-Mercenaries/zorp/internal/models"
	"github.com/Digital-Mercenaries/zorp/internal/pgp"
)

var (
	testStudy       = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testFactory     = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	testParticipant = common.HexToAddress("0x0000000000000000000000000000000000000033")
	testOwner       = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

func testKeyMaterial(t *testing.T, name string) *pgp.PublicKeyMaterial {
	t.Helper()
	entity, err := openpgp.NewEntity(name, "", name+"@example.com", nil)
	require.NoError(t, err)
	return &pgp.PublicKeyMaterial{
		Source:  pgp.KeySourceLocalFile,
		Armored: "armored-" + name,
		Entity:  entity,
	}
}

// fakeAcquirer serves scripted key material or a scripted error
type fakeAcquirer struct {
	participant *pgp.PublicKeyMaterial
	study       *pgp.PublicKeyMaterial
	err         error
}

func (f *fakeAcquirer) FromArmor(armored []byte) (*pgp.PublicKeyMaterial, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.participant, nil
}

func (f *fakeAcquirer) AcquireBoth(ctx context.Context, study common.Address, participantArmor []byte) (*pgp.PublicKeyMaterial, *pgp.PublicKeyMaterial, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.participant, f.study, nil
}

// countingUploader counts calls so tests can assert an upload never repeats
type countingUploader struct {
	calls   int
	receipt *models.StorageReceipt
	err     error
}

func (u *countingUploader) Upload(ctx context.Context, data []byte) (*models.StorageReceipt, error) {
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	if u.receipt != nil {
		return u.receipt, nil
	}
	return &models.StorageReceipt{Cid: "cid-test", ByteSize: int64(len(data))}, nil
}

// fakeWriter records contract write calls
type fakeWriter struct {
	calls []string
	err   error
}

func (w *fakeWriter) record(method string) (common.Hash, error) {
	w.calls = append(w.calls, method)
	if w.err != nil {
		return common.Hash{}, w.err
	}
	return common.HexToHash("0xdeadbeef"), nil
}

func (w *fakeWriter) CreateStudy(ctx context.Context, factory, owner common.Address, cid string, deposit *big.Int) (common.Hash, error) {
	return w.record("createStudy")
}

func (w *fakeWriter) SubmitData(ctx context.Context, study common.Address, cid string) (common.Hash, error) {
	return w.record("submitData")
}

func (w *fakeWriter) StartStudy(ctx context.Context, study common.Address) (common.Hash, error) {
	return w.record("startStudy")
}

func (w *fakeWriter) FlagInvalidSubmission(ctx context.Context, study, participant common.Address) (common.Hash, error) {
	return w.record("flagInvalidSubmission")
}

// fakeGate serves a fixed action projection and records setter calls
type fakeGate struct {
	actions      eligibility.Actions
	keysReady    []bool
	createInputs []string
}

func (g *fakeGate) Actions() eligibility.Actions { return g.actions }

func (g *fakeGate) SetKeysReady(keysReady bool) {
	g.keysReady = append(g.keysReady, keysReady)
}

func (g *fakeGate) SetCreateInputs(deposit *big.Int, cid string) {
	g.createInputs = append(g.createInputs, cid)
}

func newTestOrchestrator(acquirer KeyAcquirer, uploader Uploader, writer ContractWriter) *Orchestrator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	publisher, _ := events.NewPublisher(config.NATSConfig{}, logger)
	return NewOrchestrator(acquirer, uploader, writer, testFactory, publisher, logger)
}

func TestSubmitDataSuccess(t *testing.T) {
	acquirer := &fakeAcquirer{
		participant: testKeyMaterial(t, "participant"),
		study:       testKeyMaterial(t, "study"),
	}
	uploader := &countingUploader{}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{SubmitData: true}}

	o := newTestOrchestrator(acquirer, uploader, writer)
	result, err := o.SubmitData(context.Background(), gate, SubmitDataRequest{
		AttemptID:        NewAttemptID(),
		Study:            testStudy,
		ParticipantArmor: []byte("armored key"),
		Plaintext:        []byte("survey answers"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, uploader.calls)
	assert.Equal(t, []string{"submitData"}, writer.calls)
	assert.Len(t, result.Fingerprints, 2)
	assert.Contains(t, result.Status, "Success: transaction hash:")
	assert.Equal(t, "cid-test", result.Receipt.Cid)

	// Marking keys ready must not touch the createStudy inputs
	assert.Equal(t, []bool{true}, gate.keysReady)
	assert.Empty(t, gate.createInputs)
}

func TestSubmitDataKeyAcquisitionFailure(t *testing.T) {
	acquirer := &fakeAcquirer{err: &pgp.KeyParseError{Source: pgp.KeySourceLocalFile, Reason: "empty key material"}}
	uploader := &countingUploader{}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{SubmitData: true}}

	o := newTestOrchestrator(acquirer, uploader, writer)
	result, err := o.SubmitData(context.Background(), gate, SubmitDataRequest{
		AttemptID:        NewAttemptID(),
		Study:            testStudy,
		ParticipantArmor: []byte(""),
		Plaintext:        []byte("survey answers"),
	})
	assert.Nil(t, result)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageKeyAcquisition, stageErr.Stage)

	// Nothing was uploaded and nothing was written on chain
	assert.Equal(t, 0, uploader.calls)
	assert.Empty(t, writer.calls)
}

func TestSubmitDataEncryptionFailureSkipsUpload(t *testing.T) {
	// Key material without a parsed entity fails encryption input checks
	acquirer := &fakeAcquirer{
		participant: &pgp.PublicKeyMaterial{Source: pgp.KeySourceLocalFile},
		study:       testKeyMaterial(t, "study"),
	}
	uploader := &countingUploader{}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{SubmitData: true}}

	o := newTestOrchestrator(acquirer, uploader, writer)
	_, err := o.SubmitData(context.Background(), gate, SubmitDataRequest{
		AttemptID:        NewAttemptID(),
		Study:            testStudy,
		ParticipantArmor: []byte("armored key"),
		Plaintext:        []byte("survey answers"),
	})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEncryption, stageErr.Stage)
	assert.Equal(t, 0, uploader.calls)
}

func TestSubmitDataAmbiguousUploadNotRetried(t *testing.T) {
	acquirer := &fakeAcquirer{
		participant: testKeyMaterial(t, "participant"),
		study:       testKeyMaterial(t, "study"),
	}
	uploader := &countingUploader{err: &irys.UploadError{Ambiguous: true, Err: errors.New("request timed out")}}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{SubmitData: true}}

	o := newTestOrchestrator(acquirer, uploader, writer)
	_, err := o.SubmitData(context.Background(), gate, SubmitDataRequest{
		AttemptID:        NewAttemptID(),
		Study:            testStudy,
		ParticipantArmor: []byte("armored key"),
		Plaintext:        []byte("survey answers"),
	})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageUpload, stageErr.Stage)
	assert.True(t, stageErr.Ambiguous)
	assert.Contains(t, stageErr.Status, "ambiguous")

	// The bytes went out exactly once; a second upload would cost twice
	assert.Equal(t, 1, uploader.calls)
	assert.Empty(t, writer.calls)
}

func TestSubmitDataGateRefusal(t *testing.T) {
	acquirer := &fakeAcquirer{
		participant: testKeyMaterial(t, "participant"),
		study:       testKeyMaterial(t, "study"),
	}
	uploader := &countingUploader{}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{}}

	o := newTestOrchestrator(acquirer, uploader, writer)
	_, err := o.SubmitData(context.Background(), gate, SubmitDataRequest{
		AttemptID:        NewAttemptID(),
		Study:            testStudy,
		ParticipantArmor: []byte("armored key"),
		Plaintext:        []byte("survey answers"),
	})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEligibility, stageErr.Stage)
	assert.Empty(t, writer.calls, "a disabled gate must block the contract write")
}

func TestCreateStudySuccess(t *testing.T) {
	acquirer := &fakeAcquirer{participant: testKeyMaterial(t, "owner")}
	uploader := &countingUploader{receipt: &models.StorageReceipt{Cid: "cid-owner-key"}}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{CreateStudy: true}}

	o := newTestOrchestrator(acquirer, uploader, writer)
	result, err := o.CreateStudy(context.Background(), gate, CreateStudyRequest{
		AttemptID:     NewAttemptID(),
		Owner:         testOwner,
		OwnerKeyArmor: []byte("armored owner key"),
		DepositAmount: big.NewInt(1000),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"createStudy"}, writer.calls)
	assert.Equal(t, "cid-owner-key", result.Receipt.Cid)
	assert.Equal(t, []string{"cid-owner-key"}, gate.createInputs, "upload must feed the eligibility gate")
}

func TestCreateStudyRefusedWithoutFactory(t *testing.T) {
	acquirer := &fakeAcquirer{participant: testKeyMaterial(t, "owner")}
	uploader := &countingUploader{}
	writer := &fakeWriter{}
	gate := &fakeGate{actions: eligibility.Actions{CreateStudy: true}}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	publisher, _ := events.NewPublisher(config.NATSConfig{}, logger)
	o := NewOrchestrator(acquirer, uploader, writer, common.Address{}, publisher, logger)

	result, err := o.CreateStudy(context.Background(), gate, CreateStudyRequest{
		AttemptID:     NewAttemptID(),
		Owner:         testOwner,
		OwnerKeyArmor: []byte("armored owner key"),
		DepositAmount: big.NewInt(1000),
	})
	assert.Nil(t, result)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageContractWrite, stageErr.Stage)
	assert.Contains(t, stageErr.Status, "no factory contract")

	// The deposit must never be routed to the zero address, and nothing
	// is uploaded for an attempt that cannot complete
	assert.Equal(t, 0, uploader.calls)
	assert.Empty(t, writer.calls)
}

func TestOwnerActionsGated(t *testing.T) {
	o := newTestOrchestrator(&fakeAcquirer{}, &countingUploader{}, &fakeWriter{})
	gate := &fakeGate{actions: eligibility.Actions{}}

	_, err := o.StartStudy(context.Background(), gate, testStudy)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEligibility, stageErr.Stage)

	_, err = o.FlagInvalidSubmission(context.Background(), gate, testStudy, testParticipant)
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEligibility, stageErr.Stage)
}

func TestSessionSingleInFlightAttempt(t *testing.T) {
	s := &Session{ID: "test-session"}

	require.NoError(t, s.BeginAttempt())
	assert.Error(t, s.BeginAttempt(), "second attempt must be refused while one is in flight")

	s.EndAttempt("Success: transaction hash: 0xdeadbeef")
	assert.NoError(t, s.BeginAttempt(), "slot reopens once the attempt resolves")
	assert.Equal(t, "Success: transaction hash: 0xdeadbeef", s.LastStatus())
}

func TestSessionLastStatusDefault(t *testing.T) {
	s := &Session{ID: "test-session"}
	assert.Equal(t, "Info: no attempt has completed yet", s.LastStatus())
}
