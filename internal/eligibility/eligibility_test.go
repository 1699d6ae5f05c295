package eligibility

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Mercenaries/zorp/internal/models"
)

var (
	studyA      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	studyB      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	walletAddr  = common.HexToAddress("0x0000000000000000000000000000000000000011")
	otherWallet = common.HexToAddress("0x0000000000000000000000000000000000000022")
	participant = common.HexToAddress("0x0000000000000000000000000000000000000033")
)

func resolvedSnapshot() *Snapshot {
	return &Snapshot{
		Study:             studyA,
		Participant:       participant,
		TakenAt:           time.Now(),
		Wallet:            walletAddr,
		WalletConnected:   true,
		Owner:             OwnerRead{Value: walletAddr, Resolved: true},
		StudyStatus:       StudyStatusRead{Value: models.StudyStatusActive, Resolved: true},
		ParticipantStatus: ParticipantStatusRead{Value: models.ParticipantStatusSubmitted, Resolved: true},
		KeysReady:         true,
	}
}

func TestProjectSubmitData(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		enabled bool
	}{
		{"all preconditions met", func(s *Snapshot) {}, true},
		{"wallet disconnected", func(s *Snapshot) { s.WalletConnected = false }, false},
		{"keys not ready", func(s *Snapshot) { s.KeysReady = false }, false},
		{"study pending", func(s *Snapshot) { s.StudyStatus.Value = models.StudyStatusPending }, false},
		{"study completed", func(s *Snapshot) { s.StudyStatus.Value = models.StudyStatusCompleted }, false},
		{"study status unresolved", func(s *Snapshot) { s.StudyStatus.Resolved = false }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := resolvedSnapshot()
			tt.mutate(s)
			assert.Equal(t, tt.enabled, Project(s, studyA, participant).SubmitData)
		})
	}
}

func TestProjectStartStudy(t *testing.T) {
	s := resolvedSnapshot()
	s.StudyStatus.Value = models.StudyStatusPending
	assert.True(t, Project(s, studyA, participant).StartStudy)

	// Not the owner
	s.Wallet = otherWallet
	assert.False(t, Project(s, studyA, participant).StartStudy)

	// Owner unresolved disables even a matching wallet
	s = resolvedSnapshot()
	s.StudyStatus.Value = models.StudyStatusPending
	s.Owner.Resolved = false
	assert.False(t, Project(s, studyA, participant).StartStudy)
}

func TestProjectFlagInvalidSubmission(t *testing.T) {
	s := resolvedSnapshot()
	assert.True(t, Project(s, studyA, participant).FlagInvalidSubmission)

	// Participant has not submitted yet
	s.ParticipantStatus.Value = models.ParticipantStatusNotSubmitted
	assert.False(t, Project(s, studyA, participant).FlagInvalidSubmission)

	// Already flagged participants cannot be flagged again
	s.ParticipantStatus.Value = models.ParticipantStatusFlagged
	assert.False(t, Project(s, studyA, participant).FlagInvalidSubmission)

	// A different participant selection never inherits the snapshot's read
	s = resolvedSnapshot()
	assert.False(t, Project(s, studyA, otherWallet).FlagInvalidSubmission)
}

func TestProjectCreateStudy(t *testing.T) {
	s := resolvedSnapshot()
	s.DepositAmount = big.NewInt(1000)
	s.UploadCid = "cid-key-upload"
	actions := Project(s, studyA, participant)
	assert.True(t, actions.CreateStudy)

	// Deposit must be strictly positive
	for _, deposit := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		s.DepositAmount = deposit
		assert.False(t, Project(s, studyA, participant).CreateStudy)
	}

	// Key upload must have completed
	s.DepositAmount = big.NewInt(1000)
	s.UploadCid = ""
	assert.False(t, Project(s, studyA, participant).CreateStudy)
}

func TestProjectIsPure(t *testing.T) {
	s := resolvedSnapshot()
	first := Project(s, studyA, participant)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Project(s, studyA, participant))
	}
}

func TestProjectStaleTarget(t *testing.T) {
	// A snapshot read against study A enables nothing for study B
	s := resolvedSnapshot()
	actions := Project(s, studyB, participant)
	assert.False(t, actions.StartStudy)
	assert.False(t, actions.SubmitData)
	assert.False(t, actions.FlagInvalidSubmission)
}

func TestProjectNilSnapshot(t *testing.T) {
	assert.Equal(t, Actions{}, Project(nil, studyA, participant))
}

// fakeReader serves scripted contract reads and can block until released
type fakeReader struct {
	mu          sync.Mutex
	owner       common.Address
	status      models.StudyStatus
	participant models.ParticipantStatus
	block       chan struct{}
	reads       int
}

func (f *fakeReader) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeReader) waitIfBlocked() {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (f *fakeReader) Owner(ctx context.Context, study common.Address) (common.Address, error) {
	f.waitIfBlocked()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.owner, nil
}

func (f *fakeReader) StudyStatus(ctx context.Context, study common.Address) (models.StudyStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeReader) ParticipantStatus(ctx context.Context, study, p common.Address) (models.ParticipantStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participant, nil
}

func newTestWatcher(reader ChainReader) *Watcher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewWatcher(reader, logger, time.Hour)
}

func TestWatcherRefreshPublishesSnapshot(t *testing.T) {
	reader := &fakeReader{
		owner:       walletAddr,
		status:      models.StudyStatusActive,
		participant: models.ParticipantStatusSubmitted,
	}

	w := newTestWatcher(reader)
	w.SetWallet(walletAddr, true)
	w.SetTarget(studyA, participant)

	// Before the first poll the snapshot is unresolved
	s := w.Snapshot()
	require.NotNil(t, s)
	assert.False(t, s.StudyStatus.Resolved)
	assert.False(t, w.Actions().SubmitData)

	w.Refresh(context.Background())

	s = w.Snapshot()
	require.NotNil(t, s)
	assert.True(t, s.Owner.Resolved)
	assert.Equal(t, models.StudyStatusActive, s.StudyStatus.Value)
	assert.Equal(t, models.ParticipantStatusSubmitted, s.ParticipantStatus.Value)

	w.SetLocalState(nil, "", true)
	assert.True(t, w.Actions().SubmitData)
}

func TestWatcherDiscardsStaleReads(t *testing.T) {
	block := make(chan struct{})
	reader := &fakeReader{
		owner:  walletAddr,
		status: models.StudyStatusActive,
		block:  block,
	}

	w := newTestWatcher(reader)
	w.SetWallet(walletAddr, true)
	w.SetTarget(studyA, participant)

	done := make(chan struct{})
	go func() {
		w.Refresh(context.Background())
		close(done)
	}()

	// Switch the target while the reads for study A are still in flight
	w.SetTarget(studyB, participant)
	close(block)
	<-done

	// The resolved reads for study A were discarded, not published for B
	s := w.Snapshot()
	require.NotNil(t, s)
	assert.Equal(t, studyB, s.Study)
	assert.False(t, s.Owner.Resolved)
	assert.False(t, s.StudyStatus.Resolved)
	assert.Equal(t, Actions{}, w.Actions())
}

func TestWatcherSetTargetResetsSnapshot(t *testing.T) {
	reader := &fakeReader{owner: walletAddr, status: models.StudyStatusActive}

	w := newTestWatcher(reader)
	w.SetWallet(walletAddr, true)
	w.SetTarget(studyA, participant)
	w.SetLocalState(nil, "", true)
	w.Refresh(context.Background())
	require.True(t, w.Actions().SubmitData)

	// Retargeting immediately drops back to the conservative default
	w.SetTarget(studyB, participant)
	assert.False(t, w.Actions().SubmitData)

	s := w.Snapshot()
	require.NotNil(t, s)
	assert.True(t, s.KeysReady, "local state carries over on retarget")
	assert.False(t, s.StudyStatus.Resolved)
}

func TestWatcherDepositCopied(t *testing.T) {
	w := newTestWatcher(&fakeReader{})
	w.SetTarget(studyA, participant)

	deposit := big.NewInt(1000)
	w.SetLocalState(deposit, "cid", false)
	deposit.SetInt64(0)

	s := w.Snapshot()
	require.NotNil(t, s)
	assert.Equal(t, big.NewInt(1000), s.DepositAmount)
}

func TestWatcherKeysReadyKeepsCreateInputs(t *testing.T) {
	w := newTestWatcher(&fakeReader{})
	w.SetWallet(walletAddr, true)
	w.SetTarget(studyA, participant)
	w.SetCreateInputs(big.NewInt(1000), "cid-key-upload")
	require.True(t, w.Actions().CreateStudy)

	// Marking keys ready must not wipe the deposit or the upload cid
	w.SetKeysReady(true)

	s := w.Snapshot()
	require.NotNil(t, s)
	assert.True(t, s.KeysReady)
	assert.Equal(t, big.NewInt(1000), s.DepositAmount)
	assert.Equal(t, "cid-key-upload", s.UploadCid)
	assert.True(t, w.Actions().CreateStudy)
}

func TestWatcherRestartsAfterStop(t *testing.T) {
	reader := &fakeReader{owner: walletAddr, status: models.StudyStatusActive}

	w := newTestWatcher(reader)
	w.SetTarget(studyA, participant)

	w.Start()
	require.Eventually(t, func() bool { return reader.readCount() >= 1 },
		time.Second, 10*time.Millisecond)
	w.Stop()

	// A second Start polls again instead of exiting on the closed channel
	w.Start()
	require.Eventually(t, func() bool { return reader.readCount() >= 2 },
		time.Second, 10*time.Millisecond)
	w.Stop()

	// A repeated Stop is a no-op
	w.Stop()
}
