package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/agreement"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/governance"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/ledger"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/repo"
)

func newTestSystem(t *testing.T, mode string) (*System, *agreement.MemoryRegistry, *ledger.MemoryAsset) {
	cfg := repo.DefaultConfig(t.TempDir())
	cfg.Ledger.Mode = mode

	reg := agreement.NewMemoryRegistry()
	reg.Register(&agreement.Agreement{
		ID:             1,
		UpfrontCapital: big.NewInt(1_000_000),
		CurrentRateBP:  500,
	})

	asset := ledger.NewMemoryAsset()
	sys, err := NewSystem(cfg, asset, reg)
	assert.Nil(t, err)
	return sys, reg, asset
}

func TestOpenAgreementDedicated(t *testing.T) {
	sys, _, _ := newTestSystem(t, repo.LedgerModeDedicated)

	led, err := sys.OpenAgreement(1, 0)
	assert.Nil(t, err)
	assert.NotNil(t, led)
	assert.Equal(t, led, sys.Ledger(1))
	assert.NotNil(t, sys.Restrictions(1))

	_, err = sys.OpenAgreement(1, 0)
	assert.NotNil(t, err)

	_, err = sys.OpenAgreement(2, 0)
	assert.True(t, errors.Is(err, agreement.ErrAgreementNotFound))
}

func TestOpenAgreementShared(t *testing.T) {
	sys, _, _ := newTestSystem(t, repo.LedgerModeShared)

	holder := common.HexToAddress("0x01")
	led, err := sys.OpenAgreement(1, 7)
	assert.Nil(t, err)
	assert.Nil(t, led.Mint(holder, big.NewInt(100)))
	assert.Equal(t, int64(100), led.BalanceOf(holder).Int64())
}

func TestSystemTransfersRunKYCGate(t *testing.T) {
	sys, _, _ := newTestSystem(t, repo.LedgerModeDedicated)
	led, err := sys.OpenAgreement(1, 0)
	assert.Nil(t, err)

	seller := common.HexToAddress("0x01")
	buyer := common.HexToAddress("0x02")
	assert.Nil(t, led.Mint(seller, big.NewInt(100)))

	err = led.Transfer(seller, buyer, big.NewInt(10))
	assert.True(t, errors.Is(err, ledger.ErrTransferRestricted))

	assert.Nil(t, sys.KYC.AddToWhitelist(buyer))
	assert.Nil(t, led.Transfer(seller, buyer, big.NewInt(10)))
	assert.Equal(t, int64(10), led.BalanceOf(buyer).Int64())
}

func TestSystemGovernanceBindings(t *testing.T) {
	sys, _, _ := newTestSystem(t, repo.LedgerModeDedicated)
	led, err := sys.OpenAgreement(1, 0)
	assert.Nil(t, err)

	proposer := common.HexToAddress("0x01")
	assert.Nil(t, led.Mint(proposer, big.NewInt(1000)))

	// the power source resolves against the opened ledger
	p, err := sys.Governance.CreateProposal(proposer, 1, governance.ROIAdjustmentPayload{RateBP: 600}, "raise the rate")
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), p.ID)
}

func TestUnknownLedgerModeRejected(t *testing.T) {
	cfg := repo.DefaultConfig(t.TempDir())
	cfg.Ledger.Mode = "hybrid"

	_, err := NewSystem(cfg, ledger.NewMemoryAsset(), agreement.NewMemoryRegistry())
	assert.NotNil(t, err)
}
