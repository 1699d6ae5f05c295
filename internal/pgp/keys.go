package pgp

import (
	"bytes"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// KeySource records where a piece of public key material came from
type KeySource string

const (
	KeySourceLocalFile   KeySource = "local_file"
	KeySourceRemoteFetch KeySource = "remote_fetch"
)

// PublicKeyMaterial is one parsed recipient key plus its original armor text.
// Two instances coexist transiently per submission attempt (the participant's
// own key and the study's key); neither is ever persisted.
type PublicKeyMaterial struct {
	Source  KeySource
	Armored string
	Entity  *openpgp.Entity
}

// Fingerprint returns the primary key fingerprint in upper-case hex
func (m *PublicKeyMaterial) Fingerprint() string {
	if m == nil || m.Entity == nil || m.Entity.PrimaryKey == nil {
		return ""
	}
	return fmt.Sprintf("%X", m.Entity.PrimaryKey.Fingerprint)
}

// ReadArmoredPublicKey parses armored text as exactly one public key.
// Zero keys, multiple keys, or a malformed armor block yield KeyParseError.
func ReadArmoredPublicKey(source KeySource, armored []byte) (*PublicKeyMaterial, error) {
	if len(bytes.TrimSpace(armored)) == 0 {
		return nil, &KeyParseError{Source: source, Reason: "empty key material"}
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armored))
	if err != nil {
		return nil, &KeyParseError{Source: source, Reason: "not a well-formed armor block", Err: err}
	}

	if len(entities) == 0 {
		return nil, &KeyParseError{Source: source, Reason: "armor block contains zero keys"}
	}
	if len(entities) > 1 {
		return nil, &KeyParseError{Source: source, Reason: fmt.Sprintf("armor block contains %d keys, expected exactly one", len(entities))}
	}

	entity := entities[0]
	if entity.PrimaryKey == nil {
		return nil, &KeyParseError{Source: source, Reason: "armor block contains no usable public key"}
	}

	return &PublicKeyMaterial{
		Source:  source,
		Armored: string(armored),
		Entity:  entity,
	}, nil
}
