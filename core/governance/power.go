package governance

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/ledger"
)

// VotingPowerSource resolves a voter's live power and the total supply for
// an agreement. Implementations never fail: an unconfigured agreement
// resolves to zero.
type VotingPowerSource interface {
	BalanceOf(voter common.Address, agreementID uint64) *big.Int
	TotalSupply(agreementID uint64) *big.Int
}

// DedicatedLedgerSource resolves power against one ledger instance per
// agreement.
type DedicatedLedgerSource struct {
	mu      sync.Mutex
	ledgers map[uint64]*ledger.Ledger
}

var _ VotingPowerSource = (*DedicatedLedgerSource)(nil)

func NewDedicatedLedgerSource() *DedicatedLedgerSource {
	return &DedicatedLedgerSource{ledgers: make(map[uint64]*ledger.Ledger)}
}

func (d *DedicatedLedgerSource) Bind(agreementID uint64, l *ledger.Ledger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledgers[agreementID] = l
}

func (d *DedicatedLedgerSource) ledger(agreementID uint64) *ledger.Ledger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ledgers[agreementID]
}

func (d *DedicatedLedgerSource) BalanceOf(voter common.Address, agreementID uint64) *big.Int {
	l := d.ledger(agreementID)
	if l == nil {
		return new(big.Int)
	}
	return l.BalanceOf(voter)
}

func (d *DedicatedLedgerSource) TotalSupply(agreementID uint64) *big.Int {
	l := d.ledger(agreementID)
	if l == nil {
		return new(big.Int)
	}
	return l.TotalShares()
}

// SharedLedgerSource resolves power against one shared multi-token ledger
// through an agreement-to-token mapping. An unset mapping resolves to zero.
type SharedLedgerSource struct {
	mu     sync.Mutex
	shared *ledger.SharedLedger
	tokens map[uint64]uint64
}

var _ VotingPowerSource = (*SharedLedgerSource)(nil)

func NewSharedLedgerSource(shared *ledger.SharedLedger) *SharedLedgerSource {
	return &SharedLedgerSource{
		shared: shared,
		tokens: make(map[uint64]uint64),
	}
}

func (s *SharedLedgerSource) Bind(agreementID, tokenID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[agreementID] = tokenID
}

func (s *SharedLedgerSource) token(agreementID uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokenID, ok := s.tokens[agreementID]
	return tokenID, ok
}

func (s *SharedLedgerSource) BalanceOf(voter common.Address, agreementID uint64) *big.Int {
	tokenID, ok := s.token(agreementID)
	if !ok || s.shared == nil {
		return new(big.Int)
	}
	return s.shared.BalanceOf(voter, tokenID)
}

func (s *SharedLedgerSource) TotalSupply(agreementID uint64) *big.Int {
	tokenID, ok := s.token(agreementID)
	if !ok || s.shared == nil {
		return new(big.Int)
	}
	return s.shared.TotalSupply(tokenID)
}
