package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Allocation is one holder's cut of a distribution.
type Allocation struct {
	Holder common.Address
	Amount *big.Int
}

// Contribution is one party's share of pooled capital for minting.
type Contribution struct {
	Contributor common.Address
	Amount      *big.Int
}

// DistributionReport records what a distribution run did. Reference carries
// the full amount originally due when only a partial payment was distributed;
// it is audit context only and never feeds the per-holder math.
type DistributionReport struct {
	AgreementID   uint64
	Total         *big.Int
	Reference     *big.Int
	Paid          []Allocation
	Accrued       []Allocation
	Remainder     *big.Int
	LargestHolder common.Address
}

// allocateLocked splits amount pro rata over current holders:
// floor(amount*balance/totalShares) each, with the division remainder awarded
// whole to the largest holder (first encountered on ties).
func (l *Ledger) allocateLocked(amount *big.Int) ([]Allocation, *big.Int, common.Address) {
	allocs := make([]Allocation, 0, len(l.holders))
	distributed := new(big.Int)
	for _, h := range l.holders {
		cut := new(big.Int).Mul(amount, l.balances[h])
		cut.Div(cut, l.totalShares)
		distributed.Add(distributed, cut)
		allocs = append(allocs, Allocation{Holder: h, Amount: cut})
	}

	remainder := new(big.Int).Sub(amount, distributed)
	largest := lo.MaxBy(l.holders, func(a, b common.Address) bool {
		return l.balances[a].Cmp(l.balances[b]) > 0
	})
	if remainder.Sign() > 0 {
		for i := range allocs {
			if allocs[i].Holder == largest {
				allocs[i].Amount.Add(allocs[i].Amount, remainder)
				break
			}
		}
	}
	return allocs, remainder, largest
}

// DistributeRepayment pays a periodic income amount pro rata to current
// holders. A failed transfer is not fatal: the holder's cut accrues into
// their unclaimed remainder for a later pull-style Claim, and the
// distribution as a whole still succeeds.
func (l *Ledger) DistributeRepayment(amount *big.Int) (*DistributionReport, error) {
	return l.distributeRepayment(amount, nil)
}

// DistributePartialRepayment applies the identical pro-rata formula directly
// against the partial amount; fullDue is carried on the report for audit
// context only.
func (l *Ledger) DistributePartialRepayment(partial, fullDue *big.Int) (*DistributionReport, error) {
	return l.distributeRepayment(partial, fullDue)
}

func (l *Ledger) distributeRepayment(amount, reference *big.Int) (*DistributionReport, error) {
	if !l.mu.TryLock() {
		return nil, ErrReentrantCall
	}
	defer l.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(l.holders) == 0 || l.totalShares.Sign() == 0 {
		return nil, ErrNoShareholders
	}

	allocs, remainder, largest := l.allocateLocked(amount)
	report := &DistributionReport{
		AgreementID:   l.agreementID,
		Total:         new(big.Int).Set(amount),
		Remainder:     remainder,
		LargestHolder: largest,
	}
	if reference != nil {
		report.Reference = new(big.Int).Set(reference)
	}

	for _, a := range allocs {
		if a.Amount.Sign() == 0 {
			continue
		}
		if l.asset.Transfer(a.Holder, a.Amount) {
			report.Paid = append(report.Paid, a)
			continue
		}
		// pull-claim fallback: credit and move on
		if l.unclaimed[a.Holder] == nil {
			l.unclaimed[a.Holder] = new(big.Int)
		}
		l.unclaimed[a.Holder].Add(l.unclaimed[a.Holder], a.Amount)
		report.Accrued = append(report.Accrued, a)
		l.logger.WithFields(logrus.Fields{
			"agreement": l.agreementID,
			"holder":    a.Holder.Hex(),
			"amount":    a.Amount.String(),
		}).Warn("payout transfer failed, accrued to unclaimed remainder")
	}

	l.logger.WithFields(logrus.Fields{
		"agreement": l.agreementID,
		"amount":    amount.String(),
		"holders":   len(allocs),
		"remainder": remainder.String(),
	}).Info("repayment distributed")
	return report, nil
}

// DepositReserve places withdrawn reserve funds into the ledger's custody,
// pending a reserve distribution.
func (l *Ledger) DepositReserve(amount *big.Int) error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	defer l.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.custody.Add(l.custody, amount)
	return nil
}

// DistributeReserve pays out the custody balance pro rata. Unlike the
// repayment path this is fail-fast: a failed transfer aborts the run with
// ErrDistributionAborted and the undistributed portion stays in custody.
// The outstanding allocations are kept, so a retry completes the original
// split rather than re-dividing the remainder over all holders. There is no
// unclaimed-remainder fallback here.
func (l *Ledger) DistributeReserve() (*DistributionReport, error) {
	if !l.mu.TryLock() {
		return nil, ErrReentrantCall
	}
	defer l.mu.Unlock()

	if l.custody.Sign() == 0 {
		return nil, ErrNoReserveCustody
	}

	report := &DistributionReport{
		AgreementID: l.agreementID,
		Total:       new(big.Int).Set(l.custody),
		Remainder:   new(big.Int),
	}

	allocs := l.pendingReserve
	if allocs == nil {
		if len(l.holders) == 0 || l.totalShares.Sign() == 0 {
			return nil, ErrNoShareholders
		}
		allocs, report.Remainder, report.LargestHolder = l.allocateLocked(new(big.Int).Set(l.custody))
	}

	for i, a := range allocs {
		if a.Amount.Sign() == 0 {
			continue
		}
		if !l.asset.Transfer(a.Holder, a.Amount) {
			l.pendingReserve = allocs[i:]
			l.logger.WithFields(logrus.Fields{
				"agreement": l.agreementID,
				"holder":    a.Holder.Hex(),
				"custody":   l.custody.String(),
			}).Error("reserve distribution aborted")
			return nil, errors.Wrapf(ErrDistributionAborted, "transfer to %s failed", a.Holder.Hex())
		}
		l.custody.Sub(l.custody, a.Amount)
		report.Paid = append(report.Paid, a)
	}
	l.pendingReserve = nil
	return report, nil
}

// MintPooled issues shares 1:1 against pooled capital contributions. The
// contribution sum must reach requiredCapital within tolerance.
func (l *Ledger) MintPooled(contributions []Contribution, requiredCapital, tolerance *big.Int) error {
	return l.mintPooled(contributions, requiredCapital, tolerance)
}

// MintPooledExact is the strict variant: the contribution sum must equal
// requiredCapital exactly.
func (l *Ledger) MintPooledExact(contributions []Contribution, requiredCapital *big.Int) error {
	return l.mintPooled(contributions, requiredCapital, new(big.Int))
}

func (l *Ledger) mintPooled(contributions []Contribution, requiredCapital, tolerance *big.Int) error {
	if !l.mu.TryLock() {
		return ErrReentrantCall
	}
	defer l.mu.Unlock()

	// pre-validate so the mint loop cannot fail halfway
	newcomers := 0
	seen := make(map[common.Address]bool)
	for _, c := range contributions {
		if c.Amount == nil || c.Amount.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if !l.isHolder[c.Contributor] && !seen[c.Contributor] {
			seen[c.Contributor] = true
			newcomers++
		}
	}
	if len(l.holders)+newcomers > l.maxHolders {
		return ErrMaxShareholders
	}

	sum := lo.Reduce(contributions, func(acc *big.Int, c Contribution, _ int) *big.Int {
		return acc.Add(acc, c.Amount)
	}, new(big.Int))

	diff := new(big.Int).Sub(sum, requiredCapital)
	if diff.CmpAbs(tolerance) > 0 {
		return errors.Wrapf(ErrCapitalMismatch, "contributed %s, required %s (tolerance %s)",
			sum, requiredCapital, tolerance)
	}

	for _, c := range contributions {
		if err := l.mintLocked(c.Contributor, c.Amount); err != nil {
			return err
		}
	}
	return nil
}
