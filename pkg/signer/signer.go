package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"

	"filippo.io/edwards25519"
)

const (
	// PublicKeySize is the size of a public key in bytes.
	PublicKeySize = ed25519.PublicKeySize
	// PrivateKeySize is the size of the private seed in bytes.
	PrivateKeySize = ed25519.SeedSize
	// SignatureSize is the size of a signature in bytes.
	SignatureSize = ed25519.SignatureSize

	// valuePrecision is the number of decimals used when encoding a value for signing.
	valuePrecision = 4
)

// PublicKey is a raw ed25519 public key.
type PublicKey [PublicKeySize]byte

// PrivateKey is the ed25519 seed the full signing key is derived from.
type PrivateKey [PrivateKeySize]byte

// Signature is a raw ed25519 signature.
type Signature [SignatureSize]byte

// KeyPair holds one worker's ephemeral keys. It is never persisted.
type KeyPair struct {
	PublicKey  PublicKey
	PrivateKey PrivateKey
}

// GenerateKeyPair draws a fresh 32-byte seed from crypto/rand and derives a keypair from it.
func GenerateKeyPair() (KeyPair, error) {
	return generateFrom(rand.Reader)
}

func generateFrom(r io.Reader) (KeyPair, error) {
	var seed [PrivateKeySize]byte
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return KeyPairFromSeed(seed), nil
}

// KeyPairFromSeed derives a keypair deterministically from seed.
func KeyPairFromSeed(seed [PrivateKeySize]byte) KeyPair {
	priv := ed25519.NewKeyFromSeed(seed[:])

	var kp KeyPair
	kp.PrivateKey = seed
	copy(kp.PublicKey[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// Sign signs message with the keypair's private key.
func (kp KeyPair) Sign(message []byte) Signature {
	return Sign(message, kp.PrivateKey)
}

// Public returns the public half of the keypair.
func (kp KeyPair) Public() PublicKey {
	return kp.PublicKey
}

// Sign produces a deterministic ed25519 signature over message.
func Sign(message []byte, privateKey PrivateKey) Signature {
	priv := ed25519.NewKeyFromSeed(privateKey[:])

	var sig Signature
	copy(sig[:], ed25519.Sign(priv, message))
	return sig
}

// Verify reports whether sig is a valid signature of message under publicKey.
// Any mismatch yields false; callers cannot tell a corrupt signature from a
// wrong key or a tampered message. Keys that do not decode to a curve point or
// lie in the small-order subgroup never verify.
func Verify(message []byte, publicKey PublicKey, sig Signature) bool {
	if !validPublicKey(publicKey) {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey[:]), message, sig[:])
}

// validPublicKey rejects encodings that are not points and points whose
// cofactor multiple is the identity.
func validPublicKey(publicKey PublicKey) bool {
	point, err := new(edwards25519.Point).SetBytes(publicKey[:])
	if err != nil {
		return false
	}
	return new(edwards25519.Point).MultByCofactor(point).Equal(edwards25519.NewIdentityPoint()) != 1
}

// EncodeValue returns the canonical byte encoding of a value as signed by
// workers and re-derived by the aggregator: fixed four decimal places.
func EncodeValue(v float64) []byte {
	return strconv.AppendFloat(nil, v, 'f', valuePrecision, 64)
}

// SignValue signs the canonical encoding of v.
func (kp KeyPair) SignValue(v float64) Signature {
	return kp.Sign(EncodeValue(v))
}

// VerifyValue verifies sig over the canonical encoding of v.
func VerifyValue(v float64, publicKey PublicKey, sig Signature) bool {
	return Verify(EncodeValue(v), publicKey, sig)
}
