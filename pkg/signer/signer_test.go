package signer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test seed (DO NOT use outside tests).
var testSeed = [PrivateKeySize]byte{
	0x9d, 0x61, 0xb1, 0x9d, 0xef, 0xfd, 0x5a, 0x60, 0xba, 0x84, 0x4a, 0xf4, 0x92, 0xec, 0x2c, 0xc4,
	0x44, 0x49, 0xc5, 0x69, 0x7b, 0x32, 0x69, 0x19, 0x70, 0x3b, 0xac, 0x03, 0x1c, 0xae, 0x7f, 0x60,
}

func TestKeyPairFromSeed_RFC8032Vector(t *testing.T) {
	// RFC 8032 section 7.1, test 1.
	want := [PublicKeySize]byte{
		0xd7, 0x5a, 0x98, 0x01, 0x82, 0xb1, 0x0a, 0xb7, 0xd5, 0x4b, 0xfe, 0xd3, 0xc9, 0x64, 0x07, 0x3a,
		0x0e, 0xe1, 0x72, 0xf3, 0xda, 0xa6, 0x23, 0x25, 0xaf, 0x02, 0x1a, 0x68, 0xf7, 0x07, 0x51, 0x1a,
	}

	kp := KeyPairFromSeed(testSeed)
	assert.Equal(t, PublicKey(want), kp.PublicKey)
	assert.Equal(t, PrivateKey(testSeed), kp.PrivateKey)
}

func TestKeyPairFromSeed_Deterministic(t *testing.T) {
	kp1 := KeyPairFromSeed(testSeed)
	kp2 := KeyPairFromSeed(testSeed)

	assert.Equal(t, kp1, kp2, "Same seed should produce same keypair")

	msg := []byte("test message")
	assert.Equal(t, kp1.Sign(msg), kp2.Sign(msg), "Same seed should produce same signatures")
}

func TestGenerateKeyPair_Unique(t *testing.T) {
	seen := make(map[PublicKey]bool)
	for i := 0; i < 32; i++ {
		kp, err := GenerateKeyPair()
		require.NoError(t, err)
		assert.False(t, seen[kp.PublicKey], "Generated keys must not repeat")
		seen[kp.PublicKey] = true
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerateKeyPair_RandomSourceFailure(t *testing.T) {
	_, err := generateFrom(failingReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRandomSource)

	_, err = generateFrom(bytes.NewReader(make([]byte, 8)))
	assert.ErrorIs(t, err, ErrRandomSource)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	messages := [][]byte{
		nil,
		[]byte(""),
		[]byte("67234.1200"),
		bytes.Repeat([]byte{0xff}, 1024),
	}

	for i := 0; i < 4; i++ {
		kp, err := GenerateKeyPair()
		require.NoError(t, err)

		for _, msg := range messages {
			sig := Sign(msg, kp.PrivateKey)
			assert.True(t, Verify(msg, kp.PublicKey, sig))
		}
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	kp := KeyPairFromSeed(testSeed)
	msg := []byte("67234.1200")
	sig := kp.Sign(msg)

	for i := 0; i < SignatureSize; i++ {
		tampered := sig
		tampered[i] ^= 0x01
		assert.False(t, Verify(msg, kp.PublicKey, tampered), "flipped signature byte %d must fail", i)
	}
}

func TestVerify_TamperedMessage(t *testing.T) {
	kp := KeyPairFromSeed(testSeed)
	msg := []byte("67234.1200")
	sig := kp.Sign(msg)

	for i := range msg {
		tampered := append([]byte(nil), msg...)
		tampered[i] ^= 0x01
		assert.False(t, Verify(tampered, kp.PublicKey, sig), "flipped message byte %d must fail", i)
	}

	assert.False(t, Verify(append(msg, '0'), kp.PublicKey, sig), "appended byte must fail")
}

func TestVerify_CrossKeyRejection(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)
	b, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NotEqual(t, a.PublicKey, b.PublicKey)

	msg := []byte("100.0000")
	assert.False(t, Verify(msg, b.PublicKey, a.Sign(msg)))
	assert.False(t, Verify(msg, a.PublicKey, b.Sign(msg)))
}

func TestVerify_ZeroValuesNeverPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.False(t, Verify([]byte("x"), PublicKey{}, Signature{}))
	})
}

// smallOrderKeys are the canonical encodings of the eight points of order
// dividing 8 (identity, order 2, order 4 and order 8 points).
var smallOrderKeys = []PublicKey{
	{0x01},
	{0xec, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f},
	{},
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80},
	{0x26, 0xe8, 0x95, 0x8f, 0xc2, 0xb2, 0x27, 0xb0, 0x45, 0xc3, 0xf4, 0x89, 0xf2, 0xef, 0x98, 0xf0,
		0xd5, 0xdf, 0xac, 0x05, 0xd3, 0xc6, 0x33, 0x39, 0xb1, 0x38, 0x02, 0x88, 0x6d, 0x53, 0xfc, 0x05},
	{0x26, 0xe8, 0x95, 0x8f, 0xc2, 0xb2, 0x27, 0xb0, 0x45, 0xc3, 0xf4, 0x89, 0xf2, 0xef, 0x98, 0xf0,
		0xd5, 0xdf, 0xac, 0x05, 0xd3, 0xc6, 0x33, 0x39, 0xb1, 0x38, 0x02, 0x88, 0x6d, 0x53, 0xfc, 0x85},
	{0xc7, 0x17, 0x6a, 0x70, 0x3d, 0x4d, 0xd8, 0x4f, 0xba, 0x3c, 0x0b, 0x76, 0x0d, 0x10, 0x67, 0x0f,
		0x2a, 0x20, 0x53, 0xfa, 0x2c, 0x39, 0xcc, 0xc6, 0x4e, 0xc7, 0xfd, 0x77, 0x92, 0xac, 0x03, 0x7a},
	{0xc7, 0x17, 0x6a, 0x70, 0x3d, 0x4d, 0xd8, 0x4f, 0xba, 0x3c, 0x0b, 0x76, 0x0d, 0x10, 0x67, 0x0f,
		0x2a, 0x20, 0x53, 0xfa, 0x2c, 0x39, 0xcc, 0xc6, 0x4e, 0xc7, 0xfd, 0x77, 0x92, 0xac, 0x03, 0xfa},
}

func TestVerify_SmallOrderKeyNeverVerifies(t *testing.T) {
	for i, pub := range smallOrderKeys {
		accepted := 0
		for v := 0; v < 100; v++ {
			if VerifyValue(float64(v)+0.5, pub, Signature{}) {
				accepted++
			}
			// R = identity, S = 0 satisfies the cofactorless equation for a small-order A
			// whenever the challenge hash is a multiple of its order.
			identitySig := Signature{0x01}
			if VerifyValue(float64(v)+0.5, pub, identitySig) {
				accepted++
			}
		}
		assert.Zero(t, accepted, "small-order key %d", i)
	}
}

func TestVerify_UndecodableKey(t *testing.T) {
	kp := KeyPairFromSeed(testSeed)
	msg := []byte("100.0000")
	sig := kp.Sign(msg)

	// y = 2 is not the y coordinate of any curve point.
	assert.False(t, Verify(msg, PublicKey{0x02}, sig))
	assert.True(t, Verify(msg, kp.PublicKey, sig))
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{name: "integer", value: 100, expected: "100.0000"},
		{name: "rounds to four decimals", value: 67234.56789, expected: "67234.5679"},
		{name: "zero", value: 0, expected: "0.0000"},
		{name: "negative", value: -1.5, expected: "-1.5000"},
		{name: "small", value: 0.00001, expected: "0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(EncodeValue(tt.value)))
		})
	}
}

func TestSignValue_VerifyValue(t *testing.T) {
	kp := KeyPairFromSeed(testSeed)

	sig := kp.SignValue(67234.12)
	assert.True(t, VerifyValue(67234.12, kp.Public(), sig))
	assert.False(t, VerifyValue(67234.13, kp.Public(), sig))
	// Values that encode identically verify identically.
	assert.True(t, VerifyValue(67234.120001, kp.Public(), sig))
}
