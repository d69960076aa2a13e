// Package identity authenticates callers: every mutating call arrives as an
// Envelope signed with an ed25519 key, and the signer's address becomes the
// round.Identity the engine sees.
package identity

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cometbft/cometbft/crypto/ed25519"

	"round-curator/internal/round"
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Key is a signing key for one participant.
type Key struct {
	priv ed25519.PrivKey
}

// GenerateKey returns a fresh random key.
func GenerateKey() Key {
	return Key{priv: ed25519.GenPrivKey()}
}

// KeyFromSeed derives a key deterministically from secret bytes.
func KeyFromSeed(seed []byte) Key {
	return Key{priv: ed25519.GenPrivKeyFromSecret(seed)}
}

// ParseKey accepts the hex form produced by Key.Hex.
func ParseKey(s string) (Key, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Key{}, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return Key{}, fmt.Errorf("decode key: want %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return Key{priv: ed25519.PrivKey(raw)}, nil
}

func (k Key) Hex() string {
	return hex.EncodeToString(k.priv.Bytes())
}

func (k Key) PubKey() []byte {
	return k.priv.PubKey().Bytes()
}

// Identity is the uppercase hex address of the key's public half.
func (k Key) Identity() round.Identity {
	return round.Identity(k.priv.PubKey().Address().String())
}

// Envelope is a signed call.
type Envelope struct {
	PubKey    []byte `json:"pub_key"`
	Action    string `json:"action"`
	Payload   []byte `json:"payload"`
	Signature []byte `json:"signature"`
}

func signBytes(action string, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString(action)
	b.WriteByte(0)
	b.Write(payload)
	return b.Bytes()
}

// Sign wraps payload for action.
func (k Key) Sign(action string, payload []byte) (Envelope, error) {
	sig, err := k.priv.Sign(signBytes(action, payload))
	if err != nil {
		return Envelope{}, fmt.Errorf("sign %s: %w", action, err)
	}
	return Envelope{
		PubKey:    k.PubKey(),
		Action:    action,
		Payload:   payload,
		Signature: sig,
	}, nil
}

// Verify checks the envelope signature and returns the signer's identity.
func Verify(env Envelope) (round.Identity, error) {
	if len(env.PubKey) != ed25519.PubKeySize {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidPublicKey, len(env.PubKey))
	}
	pub := ed25519.PubKey(env.PubKey)
	if !pub.VerifySignature(signBytes(env.Action, env.Payload), env.Signature) {
		return "", fmt.Errorf("%w: action %s", ErrInvalidSignature, env.Action)
	}
	return round.Identity(pub.Address().String()), nil
}
