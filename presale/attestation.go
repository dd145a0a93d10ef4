package presale

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureSize is the recoverable secp256k1 signature width, r || s || v.
const SignatureSize = 65

// Attestation is the verified content of a signed mint authorization blob.
type Attestation struct {
	Rarities []Rarity
	Signer   common.Address
}

// VerifyAttestation splits an attestation blob into its leading rarity bytes
// and trailing recoverable signature, rebuilds the canonical message the
// off-chain authority signed and recovers the signer address. The message
// layout is recipient(20) || nonce(32) || quantity as big-endian uint256 ||
// rarity bytes, hashed with keccak256 and wrapped with the personal message
// prefix. The byte layout must not change, it is a wire contract with the
// authority. Pure, never mutates state; the caller compares Signer against
// the trusted authority.
func VerifyAttestation(recipient common.Address, nonce [32]byte, quantity int, blob []byte) (*Attestation, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity %d", ErrQuantityMismatch, quantity)
	}
	// compare against the blob length without quantity arithmetic, a huge
	// caller-supplied quantity must not wrap the guard
	if len(blob) < SignatureSize || quantity > len(blob)-SignatureSize {
		return nil, fmt.Errorf("%w: %d bytes for quantity %d", ErrMalformedAttestation, len(blob), quantity)
	}
	rarities := make([]Rarity, quantity)
	for i := 0; i < quantity; i++ {
		r, err := RarityFromByte(blob[i])
		if err != nil {
			return nil, err
		}
		rarities[i] = r
	}

	sig := make([]byte, SignatureSize)
	copy(sig, blob[quantity:quantity+SignatureSize])
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	digest := attestationDigest(recipient, nonce, quantity, blob[:quantity])
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAttestation, err)
	}
	return &Attestation{
		Rarities: rarities,
		Signer:   crypto.PubkeyToAddress(*pub),
	}, nil
}

// SignAttestation is the authority-side counterpart, producing a blob that
// VerifyAttestation accepts. Used by operator tooling and tests.
func SignAttestation(key *ecdsa.PrivateKey, recipient common.Address, nonce [32]byte, rarities []Rarity) ([]byte, error) {
	if len(rarities) < 1 {
		return nil, fmt.Errorf("%w: empty rarity list", ErrQuantityMismatch)
	}
	blob := make([]byte, 0, len(rarities)+SignatureSize)
	for _, r := range rarities {
		blob = append(blob, byte(r))
	}
	digest := attestationDigest(recipient, nonce, len(rarities), blob)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}
	return append(blob, sig...), nil
}

func attestationDigest(recipient common.Address, nonce [32]byte, quantity int, rarities []byte) []byte {
	msg := make([]byte, 0, common.AddressLength+64+len(rarities))
	msg = append(msg, recipient.Bytes()...)
	msg = append(msg, nonce[:]...)
	q := make([]byte, 32)
	big.NewInt(int64(quantity)).FillBytes(q)
	msg = append(msg, q...)
	msg = append(msg, rarities...)
	return accounts.TextHash(crypto.Keccak256(msg))
}

// NonceKey normalizes a caller-supplied nonce for ledger storage.
func NonceKey(nonce [32]byte) [32]byte {
	var k [32]byte
	copy(k[:], crypto.Keccak256(nonce[:]))
	return k
}
