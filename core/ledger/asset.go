package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// AssetFunc adapts a function to the Asset interface.
type AssetFunc func(to common.Address, amount *big.Int) bool

func (f AssetFunc) Transfer(to common.Address, amount *big.Int) bool {
	return f(to, amount)
}

// MemoryAsset is an in-process cash book implementing Asset. Deliveries can
// be scripted to fail per recipient, which tests and the local deployment
// mode use to exercise both distribution failure policies.
type MemoryAsset struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	failing  map[common.Address]bool
}

var _ Asset = (*MemoryAsset)(nil)

func NewMemoryAsset() *MemoryAsset {
	return &MemoryAsset{
		balances: make(map[common.Address]*big.Int),
		failing:  make(map[common.Address]bool),
	}
}

// FailDeliveriesTo makes every transfer to an address report failure.
func (m *MemoryAsset) FailDeliveriesTo(addr common.Address, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fail {
		m.failing[addr] = true
	} else {
		delete(m.failing, addr)
	}
}

func (m *MemoryAsset) Transfer(to common.Address, amount *big.Int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[to] {
		return false
	}
	if m.balances[to] == nil {
		m.balances[to] = new(big.Int)
	}
	m.balances[to].Add(m.balances[to], amount)
	return true
}

func (m *MemoryAsset) BalanceOf(addr common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}
