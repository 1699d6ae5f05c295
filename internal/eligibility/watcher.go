package eligibility

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/metrics"
	"github.com/Digital-Mercenaries/zorp/internal/models"
)

// ChainReader is the set of independently-updating contract reads the
// snapshot is derived from
type ChainReader interface {
	Owner(ctx context.Context, study common.Address) (common.Address, error)
	StudyStatus(ctx context.Context, study common.Address) (models.StudyStatus, error)
	ParticipantStatus(ctx context.Context, study, participant common.Address) (models.ParticipantStatus, error)
}

// Watcher polls the contract reads for one logical session and publishes
// immutable snapshots. Changing the target address invalidates in-flight
// reads keyed to the old address: their eventual resolution is discarded,
// never merged into the snapshot for the new target.
type Watcher struct {
	reader      ChainReader
	logger      *logrus.Logger
	interval    time.Duration
	readTimeout time.Duration

	mu              sync.RWMutex
	running         bool
	stopCh          chan struct{}
	study           common.Address
	participant     common.Address
	wallet          common.Address
	walletConnected bool
	depositAmount   *big.Int
	uploadCid       string
	keysReady       bool
	snapshot        *Snapshot
}

// NewWatcher creates a new eligibility watcher
func NewWatcher(reader ChainReader, logger *logrus.Logger, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		reader:      reader,
		logger:      logger,
		interval:    interval,
		readTimeout: 10 * time.Second,
	}
}

// SetTarget changes the study/participant addresses the reads are issued
// against. The published snapshot is replaced by an unresolved one for the
// new target immediately, so no action can be enabled from the old target's
// values.
func (w *Watcher) SetTarget(study, participant common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.study == study && w.participant == participant {
		return
	}
	w.study = study
	w.participant = participant
	w.snapshot = w.unresolvedSnapshotLocked()
}

// SetWallet updates the locally-known wallet connection state
func (w *Watcher) SetWallet(wallet common.Address, connected bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wallet = wallet
	w.walletConnected = connected
	if w.snapshot != nil {
		next := *w.snapshot
		next.Wallet = wallet
		next.WalletConnected = connected
		w.snapshot = &next
	}
}

// SetLocalState updates the attempt-local inputs of the createStudy and
// submitData gates. depositAmount is copied so later caller mutation cannot
// leak into a published snapshot.
func (w *Watcher) SetLocalState(depositAmount *big.Int, uploadCid string, keysReady bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if depositAmount != nil {
		depositAmount = new(big.Int).Set(depositAmount)
	}
	w.depositAmount = depositAmount
	w.uploadCid = uploadCid
	w.keysReady = keysReady
	if w.snapshot != nil {
		next := *w.snapshot
		next.DepositAmount = depositAmount
		next.UploadCid = uploadCid
		next.KeysReady = keysReady
		w.snapshot = &next
	}
}

// SetKeysReady updates only the key-acquisition flag of the submitData gate.
// The createStudy inputs are left untouched.
func (w *Watcher) SetKeysReady(keysReady bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keysReady = keysReady
	if w.snapshot != nil {
		next := *w.snapshot
		next.KeysReady = keysReady
		w.snapshot = &next
	}
}

// SetCreateInputs updates only the createStudy gate inputs. depositAmount is
// copied so later caller mutation cannot leak into a published snapshot.
func (w *Watcher) SetCreateInputs(depositAmount *big.Int, uploadCid string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if depositAmount != nil {
		depositAmount = new(big.Int).Set(depositAmount)
	}
	w.depositAmount = depositAmount
	w.uploadCid = uploadCid
	if w.snapshot != nil {
		next := *w.snapshot
		next.DepositAmount = depositAmount
		next.UploadCid = uploadCid
		w.snapshot = &next
	}
}

// Snapshot returns the latest published snapshot, or nil before the first
// poll round
func (w *Watcher) Snapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Actions projects the latest snapshot against the current targets
func (w *Watcher) Actions() Actions {
	w.mu.RLock()
	snapshot := w.snapshot
	study := w.study
	participant := w.participant
	w.mu.RUnlock()
	return Project(snapshot, study, participant)
}

// Start begins the polling loop. A stopped watcher can be started again.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	go w.pollLoop(stopCh)
}

// Stop halts the polling loop
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

func (w *Watcher) pollLoop(stopCh <-chan struct{}) {
	// First round immediately, then on the interval
	w.Refresh(context.Background())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.Refresh(context.Background())
		}
	}
}

// Refresh performs one polling round: issue the contract reads for the
// current target, then publish a fresh snapshot. If the target changed while
// the reads were in flight, the results are discarded instead.
func (w *Watcher) Refresh(ctx context.Context) {
	w.mu.RLock()
	study := w.study
	participant := w.participant
	w.mu.RUnlock()

	var zero common.Address
	if study == zero {
		return
	}

	readCtx, cancel := context.WithTimeout(ctx, w.readTimeout)
	defer cancel()

	var ownerRead OwnerRead
	if owner, err := w.reader.Owner(readCtx, study); err == nil {
		ownerRead = OwnerRead{Value: owner, Resolved: true}
	} else {
		w.logger.WithError(err).WithField("study", study.Hex()).Warn("owner() read failed")
	}

	var statusRead StudyStatusRead
	if status, err := w.reader.StudyStatus(readCtx, study); err == nil {
		statusRead = StudyStatusRead{Value: status, Resolved: true}
	} else {
		w.logger.WithError(err).WithField("study", study.Hex()).Warn("study_status() read failed")
	}

	var participantRead ParticipantStatusRead
	if participant != zero {
		if status, err := w.reader.ParticipantStatus(readCtx, study, participant); err == nil {
			participantRead = ParticipantStatusRead{Value: status, Resolved: true}
		} else {
			w.logger.WithError(err).WithField("participant", participant.Hex()).Warn("participant_status() read failed")
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.study != study || w.participant != participant {
		metrics.EligibilityStaleDiscards.Inc()
		w.logger.WithFields(logrus.Fields{
			"read_target":    study.Hex(),
			"current_target": w.study.Hex(),
		}).Info("🗑️  Discarding stale contract reads after target change")
		return
	}

	w.snapshot = &Snapshot{
		Study:             study,
		Participant:       participant,
		TakenAt:           time.Now(),
		Wallet:            w.wallet,
		WalletConnected:   w.walletConnected,
		Owner:             ownerRead,
		StudyStatus:       statusRead,
		ParticipantStatus: participantRead,
		DepositAmount:     w.depositAmount,
		UploadCid:         w.uploadCid,
		KeysReady:         w.keysReady,
	}
	metrics.EligibilityPollsTotal.Inc()
}

// unresolvedSnapshotLocked builds the conservative snapshot published on a
// target change: all contract reads unresolved, local state carried over.
// Caller holds w.mu.
func (w *Watcher) unresolvedSnapshotLocked() *Snapshot {
	return &Snapshot{
		Study:           w.study,
		Participant:     w.participant,
		TakenAt:         time.Now(),
		Wallet:          w.wallet,
		WalletConnected: w.walletConnected,
		DepositAmount:   w.depositAmount,
		UploadCid:       w.uploadCid,
		KeysReady:       w.keysReady,
	}
}
