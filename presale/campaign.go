package presale

import (
	"fmt"
	"math/big"
	"time"
)

// Denomination selects the payment rail for a mint. A campaign prices each
// rail independently and a mint uses exactly one.
type Denomination int

const (
	DenominationNative Denomination = iota
	DenominationUtility
	DenominationStable
)

func (d Denomination) String() string {
	switch d {
	case DenominationNative:
		return "native"
	case DenominationUtility:
		return "utility"
	case DenominationStable:
		return "stable"
	}
	panic(int(d))
}

func DenominationFromString(s string) (Denomination, error) {
	for d := DenominationNative; d <= DenominationStable; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrDenominationDisabled, s)
}

// Pricing is a linear escalation curve in base units of one denomination.
// A zero base disables the denomination for the campaign.
type Pricing struct {
	Base      *big.Int
	Increment *big.Int
}

type Campaign struct {
	Id            uint64
	StartsAt      time.Time
	EndsAt        time.Time
	MaxSupply     uint64
	MaxPerAddress uint64
	Pricing       map[Denomination]*Pricing
	AllowListRoot [32]byte
	TotalMinted   uint64
	Active        bool
	CreatedAt     time.Time
}

// CampaignParams carries the owner-supplied fields for creation and updates.
type CampaignParams struct {
	StartsAt      time.Time
	EndsAt        time.Time
	MaxSupply     uint64
	MaxPerAddress uint64
	Pricing       map[Denomination]*Pricing
	AllowListRoot [32]byte
}

func (p *CampaignParams) validate(now time.Time) error {
	if !p.StartsAt.After(now) {
		return fmt.Errorf("%w: start %s not in the future", ErrInvalidWindow, p.StartsAt)
	}
	if !p.EndsAt.After(p.StartsAt) {
		return fmt.Errorf("%w: start %s end %s", ErrInvalidWindow, p.StartsAt, p.EndsAt)
	}
	return nil
}

// Restricted campaigns carry a non-zero allow-list root.
func (c *Campaign) Restricted() bool {
	return c.AllowListRoot != [32]byte{}
}

// Begun reports whether the window start has passed, after which the start
// field is immutable.
func (c *Campaign) Begun(now time.Time) bool {
	return !now.Before(c.StartsAt)
}

// IsActive is a derived predicate, recomputed on every check.
func (c *Campaign) IsActive(now time.Time) bool {
	return c.Active && !now.Before(c.StartsAt) && now.Before(c.EndsAt) &&
		c.TotalMinted < c.MaxSupply
}

func (c *Campaign) pricing(d Denomination) (*Pricing, error) {
	p := c.Pricing[d]
	if p == nil || p.Base == nil || p.Increment == nil || p.Base.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDenominationDisabled, d)
	}
	return p, nil
}

// UnitPrice is base + totalMinted * increment, a function of the campaign's
// running total, never of the caller.
func (c *Campaign) UnitPrice(d Denomination) (*big.Int, error) {
	p, err := c.pricing(d)
	if err != nil {
		return nil, err
	}
	price := new(big.Int).SetUint64(c.TotalMinted)
	price.Mul(price, p.Increment)
	return price.Add(price, p.Base), nil
}

// BatchPrice sums the strictly increasing unit prices of a quantity-n batch
// starting at the current running total:
// n*base + increment*(T + T+1 + ... + T+n-1).
func (c *Campaign) BatchPrice(d Denomination, quantity uint64) (*big.Int, error) {
	p, err := c.pricing(d)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetUint64(quantity)
	total := new(big.Int).Mul(n, p.Base)

	indexSum := new(big.Int).SetUint64(c.TotalMinted)
	indexSum.Mul(indexSum, n)
	triangle := new(big.Int).Sub(n, big.NewInt(1))
	triangle.Mul(triangle, n)
	triangle.Rsh(triangle, 1)
	indexSum.Add(indexSum, triangle)

	return total.Add(total, indexSum.Mul(indexSum, p.Increment)), nil
}
