package ledger

import (
	"math/big"
	"sync"
	"time"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxShareholders caps how many distinct holders one agreement's
// ownership token may have.
const DefaultMaxShareholders = 1000

var (
	ErrReentrantCall       = errors.New("reentrant call")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientShares  = errors.New("insufficient share balance")
	ErrMaxShareholders     = errors.New("max shareholder count reached")
	ErrTransferRestricted  = errors.New("transfer restricted")
	ErrNoShareholders      = errors.New("no shareholders on ledger")
	ErrDistributionAborted = errors.New("reserve distribution aborted")
	ErrNothingToClaim      = errors.New("nothing to claim")
	ErrClaimDeliveryFailed = errors.New("claim delivery failed")
	ErrNoReserveCustody    = errors.New("no reserve funds in custody")
	ErrCapitalMismatch     = errors.New("pooled capital does not match required amount")
)

// Asset is the cash-token primitive used to pay holders. Transfer reports
// success through the boolean and never panics or errors; callers must
// branch on the result.
type Asset interface {
	Transfer(to common.Address, amount *big.Int) bool
}

// TransferGate validates holder-to-holder share movement. Mint and burn
// bypass the gate entirely; RecordInbound is still invoked for a mint
// recipient when HoldingPeriodActive reports true.
type TransferGate interface {
	Check(from, to common.Address, amount, recipientBalance, totalShares *big.Int, now time.Time) (allowed bool, reason string)
	RecordInbound(to common.Address, now time.Time)
	HoldingPeriodActive() bool
}

// Ledger is the per-agreement shareholder registry: address balances, O(1)
// membership, a compact holder list for enumeration, and per-holder unclaimed
// remainders from failed payouts. All mutating entry points are guarded
// against reentrancy via the asset-transfer callback surface.
type Ledger struct {
	mu sync.Mutex

	agreementID uint64
	maxHolders  int

	totalShares *big.Int
	balances    map[common.Address]*big.Int
	isHolder    map[common.Address]bool
	holders     []common.Address
	unclaimed   map[common.Address]*big.Int

	// reserve funds withdrawn from the agreement registry, held pending a
	// governance-triggered distribution
	custody *big.Int

	// outstanding allocations left by an aborted reserve distribution; a
	// retry completes these instead of re-dividing custody
	pendingReserve []Allocation

	asset  Asset
	gate   TransferGate
	now    func() time.Time
	logger *logrus.Logger
}

func NewLedger(agreementID uint64, asset Asset) *Ledger {
	return &Ledger{
		agreementID: agreementID,
		maxHolders:  DefaultMaxShareholders,
		totalShares: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		isHolder:    make(map[common.Address]bool),
		unclaimed:   make(map[common.Address]*big.Int),
		custody:     new(big.Int),
		asset:       asset,
		now:         time.Now,
		logger:      log.New(),
	}
}

// SetTransferGate attaches the restriction pipeline. A nil gate disables all
// holder-to-holder checks.
func (l *Ledger) SetTransferGate(gate TransferGate) {
	l.gate = gate
}

func (l *Ledger) SetMaxShareholders(max int) {
	l.maxHolders = max
}

func (l *Ledger) AgreementID() uint64 {
	return l.agreementID
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (l *Ledger) TotalShares() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalShares)
}

func (l *Ledger) HolderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders)
}

// Holders returns a copy of the enumeration list. Order is not meaningful.
func (l *Ledger) Holders() []common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]common.Address, len(l.holders))
	copy(out, l.holders)
	return out
}

func (l *Ledger) Unclaimed(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.unclaimed[addr]; ok {
		return new(big.Int).Set(u)
	}
	return new(big.Int)
}

func (l *Ledger) ReserveCustody() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.custody)
}

// Mint issues new shares to a holder. Restriction checks do not apply to
// minting, but a configured holding period still timestamps the recipient.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	defer l.mu.Unlock()

	return l.mintLocked(to, amount)
}

func (l *Ledger) mintLocked(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := l.creditLocked(to, amount); err != nil {
		return err
	}
	if l.gate != nil && l.gate.HoldingPeriodActive() {
		l.gate.RecordInbound(to, l.now())
	}
	l.totalShares.Add(l.totalShares, amount)
	return nil
}

// Burn retires shares from a holder, bypassing restriction checks.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	defer l.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	bal, ok := l.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		l.removeHolderLocked(from)
	}
	l.totalShares.Sub(l.totalShares, amount)
	return nil
}

// Transfer moves shares between two current or prospective holders, running
// the full restriction pipeline when a gate is attached.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	defer l.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	bal, ok := l.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}

	if l.gate != nil {
		toBal := new(big.Int)
		if b, ok := l.balances[to]; ok {
			toBal.Set(b)
		}
		allowed, reason := l.gate.Check(from, to, amount, toBal, l.totalShares, l.now())
		if !allowed {
			return errors.Wrap(ErrTransferRestricted, reason)
		}
	}

	if err := l.creditLocked(to, amount); err != nil {
		return err
	}
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		l.removeHolderLocked(from)
	}
	if l.gate != nil {
		l.gate.RecordInbound(to, l.now())
	}
	return nil
}

// creditLocked adds to a balance, registering the holder first and enforcing
// the shareholder cap for new entrants.
func (l *Ledger) creditLocked(to common.Address, amount *big.Int) error {
	if !l.isHolder[to] {
		if len(l.holders)+1 > l.maxHolders {
			return ErrMaxShareholders
		}
		l.isHolder[to] = true
		l.holders = append(l.holders, to)
		l.balances[to] = new(big.Int)
	}
	l.balances[to].Add(l.balances[to], amount)
	return nil
}

// removeHolderLocked drops a zero-balance holder via swap-and-pop, keeping
// the membership map and enumeration list in lockstep.
func (l *Ledger) removeHolderLocked(addr common.Address) {
	delete(l.balances, addr)
	delete(l.isHolder, addr)
	for i, h := range l.holders {
		if h == addr {
			last := len(l.holders) - 1
			l.holders[i] = l.holders[last]
			l.holders = l.holders[:last]
			return
		}
	}
}

// Claim pays out a holder's accrued unclaimed remainder through the asset
// primitive. A failed delivery leaves the balance intact for a later retry.
func (l *Ledger) Claim(holder common.Address) (*big.Int, error) {
	if !l.mu.TryLock() {
		return nil, ErrReentrantCall
	}
	defer l.mu.Unlock()

	owed, ok := l.unclaimed[holder]
	if !ok || owed.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	amount := new(big.Int).Set(owed)
	if !l.asset.Transfer(holder, amount) {
		return nil, errors.Wrapf(ErrClaimDeliveryFailed, "holder %s, amount %s", holder.Hex(), amount)
	}
	delete(l.unclaimed, holder)
	l.logger.WithFields(logrus.Fields{
		"agreement": l.agreementID,
		"holder":    holder.Hex(),
		"amount":    amount.String(),
	}).Info("unclaimed remainder claimed")
	return amount, nil
}
