package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	SignatureLength         = ed25519.SignatureSize
	PublicKeyLength         = ed25519.PublicKeySize
	SecretKeyLength         = ed25519.PrivateKeySize
	RoundSeedLength         = 32
	EncryptedMaskSeedLength = 80
)

var ErrInvalidLength = errors.New("crypto: invalid length")

// Signature is a detached ed25519 signature.
type Signature [SignatureLength]byte

// ParticipantTaskSignature proves a participant's selection for a task.
type ParticipantTaskSignature = Signature

// PublicKey identifies a participant or the coordinator.
type PublicKey [PublicKeyLength]byte

// SecretKey is an ed25519 private key (seed || public key).
type SecretKey [SecretKeyLength]byte

// RoundSeed is the per-round randomness participants sign for task selection.
type RoundSeed [RoundSeedLength]byte

// EncryptedMaskSeed is an update participant's mask seed sealed for one sum participant.
type EncryptedMaskSeed [EncryptedMaskSeedLength]byte

// SignatureFromSlice copies b into a Signature, failing on a length mismatch.
func SignatureFromSlice(b []byte) (Signature, error) {
	var out Signature
	if err := copyExact(out[:], b); err != nil {
		return Signature{}, err
	}
	return out, nil
}

// PublicKeyFromSlice copies b into a PublicKey.
func PublicKeyFromSlice(b []byte) (PublicKey, error) {
	var out PublicKey
	if err := copyExact(out[:], b); err != nil {
		return PublicKey{}, err
	}
	return out, nil
}

func SecretKeyFromSlice(b []byte) (SecretKey, error) {
	var out SecretKey
	if err := copyExact(out[:], b); err != nil {
		return SecretKey{}, err
	}
	return out, nil
}

// RoundSeedFromSlice copies b into a RoundSeed.
func RoundSeedFromSlice(b []byte) (RoundSeed, error) {
	var out RoundSeed
	if err := copyExact(out[:], b); err != nil {
		return RoundSeed{}, err
	}
	return out, nil
}

func EncryptedMaskSeedFromSlice(b []byte) (EncryptedMaskSeed, error) {
	var out EncryptedMaskSeed
	if err := copyExact(out[:], b); err != nil {
		return EncryptedMaskSeed{}, err
	}
	return out, nil
}

// PublicKeyFromHex parses a 0x-prefixed hex public key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	return PublicKeyFromSlice(raw)
}

func (s Signature) Bytes() []byte { return s[:] }
func (k PublicKey) Bytes() []byte { return k[:] }
func (k SecretKey) Bytes() []byte { return k[:] }
func (s RoundSeed) Bytes() []byte { return s[:] }
func (s EncryptedMaskSeed) Bytes() []byte { return s[:] }

func (s Signature) String() string { return hexutil.Encode(s[:]) }
func (k PublicKey) String() string { return hexutil.Encode(k[:]) }
func (s RoundSeed) String() string { return hexutil.Encode(s[:]) }

// Public returns the public half of the key.
func (k SecretKey) Public() PublicKey {
	var pk PublicKey
	copy(pk[:], k[SecretKeyLength-PublicKeyLength:])
	return pk
}

func copyExact(dst, src []byte) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: got %d want %d", ErrInvalidLength, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}
