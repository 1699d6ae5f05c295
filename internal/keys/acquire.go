package keys

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Digital-Mercenaries/zorp/internal/pgp"
)

// KeyFetchError reports a failure acquiring the study key over the network:
// the contract read failed, the cid is unset, or the gateway fetch was not
// successful. Recoverable by re-initiating the attempt.
type KeyFetchError struct {
	Cid string
	Err error
}

func (e *KeyFetchError) Error() string {
	if e.Cid != "" {
		return fmt.Sprintf("study key fetch failed (cid %s): %v", e.Cid, e.Err)
	}
	return fmt.Sprintf("study key fetch failed: %v", e.Err)
}

func (e *KeyFetchError) Unwrap() error { return e.Err }

// EncryptionKeyReader reads the study key cid from the contract
type EncryptionKeyReader interface {
	EncryptionKey(ctx context.Context, study common.Address) (string, error)
}

// ContentFetcher fetches raw bytes by content identifier
type ContentFetcher interface {
	Fetch(ctx context.Context, cid string) ([]byte, error)
}

// Acquirer resolves the two public keys a submission needs: the participant's
// own (locally supplied armor) and the study's (cid from the contract,
// fetched through the gateway). Neither operation retries; a failure is
// terminal for the attempt.
type Acquirer struct {
	reader  EncryptionKeyReader
	fetcher ContentFetcher
}

// NewAcquirer creates a new key acquirer
func NewAcquirer(reader EncryptionKeyReader, fetcher ContentFetcher) *Acquirer {
	return &Acquirer{reader: reader, fetcher: fetcher}
}

// FromArmor parses locally supplied participant key material
func (a *Acquirer) FromArmor(armored []byte) (*pgp.PublicKeyMaterial, error) {
	return pgp.ReadArmoredPublicKey(pgp.KeySourceLocalFile, armored)
}

// FromChain reads the study's encryption key cid and fetches + parses the
// armored key behind it.
func (a *Acquirer) FromChain(ctx context.Context, study common.Address) (*pgp.PublicKeyMaterial, error) {
	cid, err := a.reader.EncryptionKey(ctx, study)
	if err != nil {
		return nil, &KeyFetchError{Err: err}
	}
	if cid == "" {
		return nil, &KeyFetchError{Err: fmt.Errorf("study %s has no encryption key set", study.Hex())}
	}

	armored, err := a.fetcher.Fetch(ctx, cid)
	if err != nil {
		return nil, &KeyFetchError{Cid: cid, Err: err}
	}

	material, err := pgp.ReadArmoredPublicKey(pgp.KeySourceRemoteFetch, armored)
	if err != nil {
		return nil, err
	}
	return material, nil
}

// AcquireBoth resolves the participant and study keys concurrently. If either
// acquisition fails the other's result is dropped and the first error wins.
func (a *Acquirer) AcquireBoth(ctx context.Context, study common.Address, participantArmor []byte) (participant, studyKey *pgp.PublicKeyMaterial, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		material, err := a.FromArmor(participantArmor)
		if err != nil {
			return err
		}
		participant = material
		return nil
	})

	g.Go(func() error {
		material, err := a.FromChain(gctx, study)
		if err != nil {
			return err
		}
		studyKey = material
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return participant, studyKey, nil
}
