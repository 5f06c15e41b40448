package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/crypto/sha3"
)

const (
	sumTaskLabel    = "sum"
	updateTaskLabel = "update"
)

// SigningKeyPair is an ed25519 identity.
type SigningKeyPair struct {
	Public PublicKey
	Secret SecretKey
}

// GenerateSigningKeyPair draws a fresh ed25519 identity from r, or crypto/rand when r is nil.
func GenerateSigningKeyPair(r io.Reader) (SigningKeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return SigningKeyPair{}, err
	}
	var kp SigningKeyPair
	copy(kp.Public[:], pub)
	copy(kp.Secret[:], priv)
	return kp, nil
}

// GenerateRoundSeed draws a new round seed from crypto/rand.
func GenerateRoundSeed() (RoundSeed, error) {
	var seed RoundSeed
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return RoundSeed{}, err
	}
	return seed, nil
}

// Sign signs msg with the secret key.
func (k SecretKey) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(k[:]), msg))
	return sig
}

// Verify reports whether sig is a valid signature of msg by k.
func (k PublicKey) Verify(msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(k[:]), msg, sig[:])
}

// SumTaskMessage is the message a participant signs to claim the sum task.
func SumTaskMessage(seed RoundSeed) []byte {
	return taskMessage(seed, sumTaskLabel)
}

// UpdateTaskMessage is the message a participant signs to claim the update task.
func UpdateTaskMessage(seed RoundSeed) []byte {
	return taskMessage(seed, updateTaskLabel)
}

func taskMessage(seed RoundSeed, label string) []byte {
	out := make([]byte, 0, RoundSeedLength+len(label))
	out = append(out, seed[:]...)
	return append(out, label...)
}

// IsEligible reports whether the signature selects its signer for a task that
// admits the given fraction of participants.
func (s Signature) IsEligible(threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	if threshold >= 1 {
		return true
	}
	digest := sha3.Sum256(s[:])
	v := binary.BigEndian.Uint64(digest[:8])
	return float64(v)/float64(math.MaxUint64) <= threshold
}
