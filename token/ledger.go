package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is a reference fungible-token collaborator with balance, allowance
// and transfer primitives. The native variant skips allowance bookkeeping,
// matching attached-value semantics.
type Ledger struct {
	mu         sync.Mutex
	name       string
	native     bool
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewLedger(name string) *Ledger {
	return &Ledger{
		name:       name,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func NewNativeLedger() *Ledger {
	l := NewLedger("native")
	l.native = true
	return l
}

// Mint funds an account, the deployment-time faucet for reference ledgers.
func (l *Ledger) Mint(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(addr).Add(l.balance(addr), amount)
}

func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (l *Ledger) BalanceOf(addr common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(addr)), nil
}

func (l *Ledger) Allowance(owner, spender common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.native {
		return new(big.Int).Set(l.balance(owner)), nil
	}
	a := l.allowances[owner][spender]
	if a == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(a), nil
}

func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.native {
		a := l.allowances[from][spender]
		if a == nil || a.Cmp(amount) < 0 {
			return fmt.Errorf("%s allowance %s below %s", l.name, a, amount)
		}
		a.Sub(a, amount)
	}
	return l.move(from, to, amount)
}

func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%s negative amount %s", l.name, amount)
	}
	b := l.balance(from)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("%s balance %s below %s", l.name, b, amount)
	}
	b.Sub(b, amount)
	l.balance(to).Add(l.balance(to), amount)
	return nil
}

func (l *Ledger) balance(addr common.Address) *big.Int {
	b := l.balances[addr]
	if b == nil {
		b = new(big.Int)
		l.balances[addr] = b
	}
	return b
}
