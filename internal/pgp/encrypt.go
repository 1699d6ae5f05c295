package pgp

import (
	"bytes"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/Digital-Mercenaries/zorp/internal/models"
)

// Encrypt encrypts plaintext to every recipient key. It is a pure function of
// (plaintext, recipients) up to the scheme's own session-key randomness: two
// calls need not produce identical bytes, but any one recipient's private key
// recovers the identical plaintext.
//
// The ciphertext is assembled in a local buffer, so a failure at any point
// exposes no partial artifact.
func Encrypt(plaintext []byte, recipients []*PublicKeyMaterial) (*models.EncryptedPayload, error) {
	if len(recipients) == 0 {
		return nil, &EncryptionInputError{Reason: "recipient sequence is empty"}
	}
	if len(plaintext) == 0 {
		return nil, &EncryptionInputError{Reason: "plaintext is absent"}
	}

	to := make([]*openpgp.Entity, 0, len(recipients))
	fingerprints := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient == nil || recipient.Entity == nil {
			return nil, &EncryptionInputError{Reason: "recipient key material is missing"}
		}
		to = append(to, recipient.Entity)
		fingerprints = append(fingerprints, recipient.Fingerprint())
	}

	var ciphertext bytes.Buffer
	w, err := openpgp.Encrypt(&ciphertext, to, nil, nil, nil)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	if _, err := w.Write(plaintext); err != nil {
		w.Close()
		return nil, &EncryptionError{Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &EncryptionError{Err: err}
	}

	return &models.EncryptedPayload{
		Ciphertext:            ciphertext.Bytes(),
		RecipientFingerprints: fingerprints,
	}, nil
}
