package presale

import (
	"crypto/rand"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestAttestationRoundtrip(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	authority := crypto.PubkeyToAddress(key.PublicKey)
	recipient := randomAddress(t)
	nonce := randomNonce(t)
	rarities := []Rarity{RarityCommon, RarityLegendary, RarityRare}

	blob, err := SignAttestation(key, recipient, nonce, rarities)
	require.Nil(err)
	require.Len(blob, len(rarities)+SignatureSize)

	att, err := VerifyAttestation(recipient, nonce, len(rarities), blob)
	require.Nil(err)
	require.Equal(rarities, att.Rarities)
	require.Equal(authority, att.Signer)
}

func TestAttestationLegacyRecoveryId(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	recipient := randomAddress(t)
	nonce := randomNonce(t)

	blob, err := SignAttestation(key, recipient, nonce, []Rarity{RarityEpic})
	require.Nil(err)
	// wallets emit v as 27/28
	blob[len(blob)-1] += 27

	att, err := VerifyAttestation(recipient, nonce, 1, blob)
	require.Nil(err)
	require.Equal(crypto.PubkeyToAddress(key.PublicKey), att.Signer)
}

func TestAttestationBinding(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	authority := crypto.PubkeyToAddress(key.PublicKey)
	recipient := randomAddress(t)
	nonce := randomNonce(t)
	rarities := []Rarity{RarityCommon, RarityUncommon}

	blob, err := SignAttestation(key, recipient, nonce, rarities)
	require.Nil(err)

	// different recipient
	att, err := VerifyAttestation(randomAddress(t), nonce, 2, blob)
	if err == nil {
		require.NotEqual(authority, att.Signer)
	}

	// different nonce
	att, err = VerifyAttestation(recipient, randomNonce(t), 2, blob)
	if err == nil {
		require.NotEqual(authority, att.Signer)
	}

	// tampered rarity byte
	tampered := append([]byte{}, blob...)
	tampered[0] = byte(RarityLegendary)
	att, err = VerifyAttestation(recipient, nonce, 2, tampered)
	if err == nil {
		require.NotEqual(authority, att.Signer)
	}
}

func TestAttestationMalformed(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	recipient := randomAddress(t)
	nonce := randomNonce(t)

	blob, err := SignAttestation(key, recipient, nonce, []Rarity{RarityCommon})
	require.Nil(err)

	// blob shorter than quantity + signature
	_, err = VerifyAttestation(recipient, nonce, 2, blob)
	require.ErrorIs(err, ErrMalformedAttestation)

	_, err = VerifyAttestation(recipient, nonce, 1, blob[:SignatureSize])
	require.ErrorIs(err, ErrMalformedAttestation)

	_, err = VerifyAttestation(recipient, nonce, 0, blob)
	require.ErrorIs(err, ErrQuantityMismatch)

	// a quantity near MaxInt64 must not wrap the length guard into a
	// makeslice panic
	_, err = VerifyAttestation(recipient, nonce, math.MaxInt64-SignatureSize+1, blob)
	require.ErrorIs(err, ErrMalformedAttestation)
	_, err = VerifyAttestation(recipient, nonce, math.MaxInt64, blob)
	require.ErrorIs(err, ErrMalformedAttestation)

	bad := append([]byte{}, blob...)
	bad[0] = 9
	_, err = VerifyAttestation(recipient, nonce, 1, bad)
	require.ErrorIs(err, ErrInvalidRarityValue)
}

func randomAddress(t *testing.T) common.Address {
	var addr common.Address
	_, err := rand.Read(addr[:])
	require.Nil(t, err)
	return addr
}

func randomNonce(t *testing.T) [32]byte {
	var nonce [32]byte
	_, err := rand.Read(nonce[:])
	require.Nil(t, err)
	return nonce
}
