package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestDistributionExactSplit(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(600)))
	assert.Nil(t, l.Mint(h2, big.NewInt(300)))
	assert.Nil(t, l.Mint(h3, big.NewInt(100)))

	report, err := l.DistributeRepayment(big.NewInt(1000))
	assert.Nil(t, err)
	assert.Equal(t, int64(0), report.Remainder.Int64())
	assert.Equal(t, int64(600), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(300), asset.BalanceOf(h2).Int64())
	assert.Equal(t, int64(100), asset.BalanceOf(h3).Int64())
}

func TestDistributionRemainderToLargestHolder(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(333)))
	assert.Nil(t, l.Mint(h2, big.NewInt(333)))
	assert.Nil(t, l.Mint(h3, big.NewInt(334)))

	report, err := l.DistributeRepayment(big.NewInt(100))
	assert.Nil(t, err)

	// raw cuts are 33/33/33; the division remainder of 1 goes whole to the
	// largest holder
	assert.Equal(t, int64(1), report.Remainder.Int64())
	assert.Equal(t, h3, report.LargestHolder)
	assert.Equal(t, int64(33), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(33), asset.BalanceOf(h2).Int64())
	assert.Equal(t, int64(34), asset.BalanceOf(h3).Int64())
}

func TestDistributionRemainderFirstEncounteredOnTie(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(500)))
	assert.Nil(t, l.Mint(h2, big.NewInt(500)))

	report, err := l.DistributeRepayment(big.NewInt(101))
	assert.Nil(t, err)
	assert.Equal(t, int64(1), report.Remainder.Int64())
	assert.Equal(t, h1, report.LargestHolder)
	assert.Equal(t, int64(51), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(50), asset.BalanceOf(h2).Int64())
}

func TestDistributionConservation(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	balances := []int64{17, 523, 88, 1, 371}
	for i, b := range balances {
		addr := common.BigToAddress(big.NewInt(int64(i + 1)))
		assert.Nil(t, l.Mint(addr, big.NewInt(b)))
	}

	amount := big.NewInt(99991)
	report, err := l.DistributeRepayment(amount)
	assert.Nil(t, err)

	sum := new(big.Int)
	for _, a := range report.Paid {
		sum.Add(sum, a.Amount)
	}
	for _, a := range report.Accrued {
		sum.Add(sum, a.Amount)
	}
	assert.Equal(t, amount.String(), sum.String())
}

func TestRepaymentFailureAccruesUnclaimed(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(600)))
	assert.Nil(t, l.Mint(h2, big.NewInt(400)))

	asset.FailDeliveriesTo(h1, true)
	report, err := l.DistributeRepayment(big.NewInt(1000))
	assert.Nil(t, err)
	assert.Len(t, report.Accrued, 1)
	assert.Len(t, report.Paid, 1)
	assert.Equal(t, int64(600), l.Unclaimed(h1).Int64())
	assert.Equal(t, int64(400), asset.BalanceOf(h2).Int64())

	// a second failed distribution keeps accruing
	_, err = l.DistributeRepayment(big.NewInt(100))
	assert.Nil(t, err)
	assert.Equal(t, int64(660), l.Unclaimed(h1).Int64())
}

func TestReserveDistributionFailFast(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(600)))
	assert.Nil(t, l.Mint(h2, big.NewInt(400)))

	assert.Nil(t, l.DepositReserve(big.NewInt(1000)))

	asset.FailDeliveriesTo(h2, true)
	_, err := l.DistributeReserve()
	assert.True(t, errors.Is(err, ErrDistributionAborted))

	// no unclaimed fallback on the reserve path; the undistributed portion
	// stays in custody for a manual retry
	assert.Equal(t, int64(0), l.Unclaimed(h2).Int64())
	assert.Equal(t, int64(400), l.ReserveCustody().Int64())

	asset.FailDeliveriesTo(h2, false)
	report, err := l.DistributeReserve()
	assert.Nil(t, err)
	assert.Equal(t, int64(400), report.Total.Int64())
	assert.Equal(t, int64(0), l.ReserveCustody().Int64())

	// the retry pays only what is still owed
	assert.Equal(t, int64(600), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(400), asset.BalanceOf(h2).Int64())

	_, err = l.DistributeReserve()
	assert.True(t, errors.Is(err, ErrNoReserveCustody))
}

func TestReserveRetryCompletesOriginalSplit(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(600)))
	assert.Nil(t, l.Mint(h2, big.NewInt(300)))
	assert.Nil(t, l.Mint(h3, big.NewInt(100)))

	assert.Nil(t, l.DepositReserve(big.NewInt(1000)))

	// the last holder in line fails after the first two were paid
	asset.FailDeliveriesTo(h3, true)
	_, err := l.DistributeReserve()
	assert.True(t, errors.Is(err, ErrDistributionAborted))
	assert.Equal(t, int64(600), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(300), asset.BalanceOf(h2).Int64())
	assert.Equal(t, int64(100), l.ReserveCustody().Int64())

	// already-paid holders are not paid again; the failed holder receives
	// exactly the outstanding allocation
	asset.FailDeliveriesTo(h3, false)
	report, err := l.DistributeReserve()
	assert.Nil(t, err)
	assert.Len(t, report.Paid, 1)
	assert.Equal(t, int64(600), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(300), asset.BalanceOf(h2).Int64())
	assert.Equal(t, int64(100), asset.BalanceOf(h3).Int64())
	assert.Equal(t, int64(0), l.ReserveCustody().Int64())
}

func TestPartialRepaymentUsesPartialAmount(t *testing.T) {
	asset := NewMemoryAsset()
	l := NewLedger(1, asset)

	assert.Nil(t, l.Mint(h1, big.NewInt(600)))
	assert.Nil(t, l.Mint(h2, big.NewInt(400)))

	report, err := l.DistributePartialRepayment(big.NewInt(500), big.NewInt(2000))
	assert.Nil(t, err)
	assert.Equal(t, int64(500), report.Total.Int64())
	assert.Equal(t, int64(2000), report.Reference.Int64())

	// per-holder math runs against the partial amount only
	assert.Equal(t, int64(300), asset.BalanceOf(h1).Int64())
	assert.Equal(t, int64(200), asset.BalanceOf(h2).Int64())
}

func TestMintPooledWithinTolerance(t *testing.T) {
	l := NewLedger(1, NewMemoryAsset())

	contributions := []Contribution{
		{Contributor: h1, Amount: big.NewInt(600)},
		{Contributor: h2, Amount: big.NewInt(395)},
	}
	err := l.MintPooled(contributions, big.NewInt(1000), big.NewInt(10))
	assert.Nil(t, err)
	assert.Equal(t, int64(995), l.TotalShares().Int64())
	assert.Equal(t, int64(600), l.BalanceOf(h1).Int64())

	err = l.MintPooled([]Contribution{{Contributor: h3, Amount: big.NewInt(500)}}, big.NewInt(1000), big.NewInt(10))
	assert.True(t, errors.Is(err, ErrCapitalMismatch))
}

func TestMintPooledExactRequiresEquality(t *testing.T) {
	l := NewLedger(1, NewMemoryAsset())

	err := l.MintPooledExact([]Contribution{
		{Contributor: h1, Amount: big.NewInt(999)},
	}, big.NewInt(1000))
	assert.True(t, errors.Is(err, ErrCapitalMismatch))

	err = l.MintPooledExact([]Contribution{
		{Contributor: h1, Amount: big.NewInt(600)},
		{Contributor: h2, Amount: big.NewInt(400)},
	}, big.NewInt(1000))
	assert.Nil(t, err)
	assert.Equal(t, int64(1000), l.TotalShares().Int64())
}

func TestMintPooledRespectsCap(t *testing.T) {
	l := NewLedger(1, NewMemoryAsset())
	l.SetMaxShareholders(1)

	err := l.MintPooledExact([]Contribution{
		{Contributor: h1, Amount: big.NewInt(600)},
		{Contributor: h2, Amount: big.NewInt(400)},
	}, big.NewInt(1000))
	assert.True(t, errors.Is(err, ErrMaxShareholders))
	assert.Equal(t, 0, l.HolderCount())
}

func TestDistributionRequiresHolders(t *testing.T) {
	l := NewLedger(1, NewMemoryAsset())

	_, err := l.DistributeRepayment(big.NewInt(100))
	assert.True(t, errors.Is(err, ErrNoShareholders))
}
