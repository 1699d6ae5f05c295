package pgp

import "fmt"

// KeyParseError reports that supplied key material was not a well-formed,
// single public key. Recoverable by supplying different key material.
type KeyParseError struct {
	Source KeySource
	Reason string
	Err    error
}

func (e *KeyParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("key parse failed (%s): %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("key parse failed (%s): %s", e.Source, e.Reason)
}

func (e *KeyParseError) Unwrap() error { return e.Err }

// EncryptionInputError reports inputs rejected before any cryptographic work:
// missing plaintext or an empty recipient sequence.
type EncryptionInputError struct {
	Reason string
}

func (e *EncryptionInputError) Error() string {
	return fmt.Sprintf("encryption input rejected: %s", e.Reason)
}

// EncryptionError reports a failure inside the encryption engine. The attempt
// is fatal and no partial ciphertext is exposed.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failed: %v", e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }
