package presale

import "fmt"

// Rarity is a closed five-tier enumeration. The byte encoding is stable and
// only used at the attestation wire boundary.
type Rarity byte

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

func RarityFromByte(b byte) (Rarity, error) {
	if b > byte(RarityLegendary) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRarityValue, b)
	}
	return Rarity(b), nil
}

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	}
	panic(byte(r))
}

func RarityFromString(s string) (Rarity, error) {
	for r := RarityCommon; r <= RarityLegendary; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidRarityValue, s)
}
