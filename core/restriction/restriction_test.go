package restriction

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	sender    = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	recipient = common.HexToAddress("0xbb00000000000000000000000000000000000002")

	now = time.Unix(1700000000, 0)
)

func check(v *Validator, at time.Time) (bool, string) {
	return v.Check(sender, recipient, big.NewInt(100), big.NewInt(0), big.NewInt(1000), at)
}

func TestUnrestrictedTransferPasses(t *testing.T) {
	v := NewValidator(Params{})

	ok, reason := check(v, now)
	assert.True(t, ok)
	assert.Equal(t, "", reason)
}

func TestPauseShortCircuitsFirst(t *testing.T) {
	v := NewValidator(Params{
		TransferPaused:     true,
		LockupEndTimestamp: now.Unix() + 1000,
	})

	ok, reason := check(v, now)
	assert.False(t, ok)
	assert.Equal(t, "transfers are paused", reason)
}

func TestLockupExpiry(t *testing.T) {
	v := NewValidator(Params{LockupEndTimestamp: now.Unix() + 100})

	ok, reason := check(v, now)
	assert.False(t, ok)
	assert.Equal(t, "lockup period has not ended", reason)

	ok, _ = check(v, now.Add(100*time.Second))
	assert.True(t, ok)
}

func TestHoldingPeriodOnSender(t *testing.T) {
	v := NewValidator(Params{MinHoldingPeriodSeconds: 3600})

	// a sender that never received is not held
	ok, _ := check(v, now)
	assert.True(t, ok)

	v.RecordInbound(sender, now)
	ok, reason := check(v, now.Add(30*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, "sender minimum holding period has not elapsed", reason)

	ok, _ = check(v, now.Add(time.Hour))
	assert.True(t, ok)
}

func TestConcentrationLimit(t *testing.T) {
	v := NewValidator(Params{MaxSharesPerInvestorBP: 2500})

	// 100 incoming on a 150 balance out of 1000 total = 25.0%, at the cap
	ok, _ := v.Check(sender, recipient, big.NewInt(100), big.NewInt(150), big.NewInt(1000), now)
	assert.True(t, ok)

	ok, reason := v.Check(sender, recipient, big.NewInt(101), big.NewInt(150), big.NewInt(1000), now)
	assert.False(t, ok)
	assert.Equal(t, "recipient would exceed max shares per investor", reason)
}

func TestKYCGateRunsAheadOfChecklist(t *testing.T) {
	v := NewValidator(Params{TransferPaused: true})
	v.AttachKYC(stubKYC{whitelisted: map[common.Address]bool{}})

	// recipient not whitelisted is reported before the pause
	ok, reason := check(v, now)
	assert.False(t, ok)
	assert.Equal(t, "recipient is not KYC whitelisted", reason)
}

func TestBlacklistChecksBothParties(t *testing.T) {
	kyc := stubKYC{
		whitelisted: map[common.Address]bool{sender: true, recipient: true},
		blacklisted: map[common.Address]bool{sender: true},
	}
	v := NewValidator(Params{BlacklistEnabled: true})
	v.AttachKYC(kyc)

	ok, reason := check(v, now)
	assert.False(t, ok)
	assert.Equal(t, "sender is KYC blacklisted", reason)
}

func TestApplyParamBounds(t *testing.T) {
	v := NewValidator(Params{})

	assert.NotNil(t, v.ApplyParam(ParamLockupEnd, big.NewInt(now.Unix()-1), now))
	assert.Nil(t, v.ApplyParam(ParamLockupEnd, big.NewInt(now.Unix()+100), now))
	assert.Equal(t, now.Unix()+100, v.Params().LockupEndTimestamp)

	assert.NotNil(t, v.ApplyParam(ParamMaxSharesPerInvestor, big.NewInt(99), now))
	assert.NotNil(t, v.ApplyParam(ParamMaxSharesPerInvestor, big.NewInt(10001), now))
	assert.Nil(t, v.ApplyParam(ParamMaxSharesPerInvestor, big.NewInt(0), now))
	assert.Nil(t, v.ApplyParam(ParamMaxSharesPerInvestor, big.NewInt(100), now))

	year := int64(365 * 24 * 3600)
	assert.NotNil(t, v.ApplyParam(ParamMinHoldingPeriod, big.NewInt(year+1), now))
	assert.Nil(t, v.ApplyParam(ParamMinHoldingPeriod, big.NewInt(year), now))

	assert.NotNil(t, v.ApplyParam(7, big.NewInt(1), now))
}

type stubKYC struct {
	whitelisted map[common.Address]bool
	blacklisted map[common.Address]bool
}

func (s stubKYC) IsWhitelisted(addr common.Address) bool { return s.whitelisted[addr] }
func (s stubKYC) IsBlacklisted(addr common.Address) bool { return s.blacklisted[addr] }
