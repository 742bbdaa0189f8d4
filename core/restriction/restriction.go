package restriction

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Parameter ids accepted by ApplyParam, mirroring the governance
// TransferRestrictionUpdate selector.
const (
	ParamLockupEnd uint8 = iota
	ParamMaxSharesPerInvestor
	ParamMinHoldingPeriod
)

// MaxHoldingPeriod bounds the configurable minimum holding period.
const MaxHoldingPeriod = 365 * 24 * time.Hour

// KYC is the identity collaborator surface the validator consumes. Both
// queries are expected to resolve permissively when the backing list is
// disabled, and must never fail.
type KYC interface {
	IsWhitelisted(addr common.Address) bool
	IsBlacklisted(addr common.Address) bool
}

// Params is the mutable restriction state for one agreement's ownership
// token. A zero value disables the corresponding check.
type Params struct {
	LockupEndTimestamp      int64
	MaxSharesPerInvestorBP  uint64
	MinHoldingPeriodSeconds int64
	TransferPaused          bool
	WhitelistEnabled        bool
	BlacklistEnabled        bool
}

// Validator runs the ordered, short-circuiting restriction checklist over
// holder-to-holder share movement. Mint and burn are expected to bypass it.
type Validator struct {
	mu          sync.Mutex
	params      Params
	lastInbound map[common.Address]int64
	kyc         KYC
}

func NewValidator(params Params) *Validator {
	return &Validator{
		params:      params,
		lastInbound: make(map[common.Address]int64),
	}
}

// AttachKYC layers the identity gate ahead of the parameterised checklist.
func (v *Validator) AttachKYC(kyc KYC) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.kyc = kyc
}

func (v *Validator) Params() Params {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

func (v *Validator) SetTransferPaused(paused bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params.TransferPaused = paused
}

func (v *Validator) SetWhitelistEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params.WhitelistEnabled = enabled
}

func (v *Validator) SetBlacklistEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params.BlacklistEnabled = enabled
}

// LastInbound reports the unix timestamp of an address's last inbound
// transfer, zero if it never received one.
func (v *Validator) LastInbound(addr common.Address) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastInbound[addr]
}

// ValidateParam checks a restriction-parameter update against its bounds:
// lockup must be zero or in the future, the concentration cap zero or within
// [100,10000] bp, the holding period at most a year.
func ValidateParam(id uint8, value *big.Int, now time.Time) error {
	switch id {
	case ParamLockupEnd:
		if value.Sign() != 0 && value.Cmp(big.NewInt(now.Unix())) <= 0 {
			return errors.New("lockup end must be zero or in the future")
		}
	case ParamMaxSharesPerInvestor:
		if value.Sign() != 0 && (value.Cmp(big.NewInt(100)) < 0 || value.Cmp(big.NewInt(10000)) > 0) {
			return errors.New("max shares per investor must be zero or within [100,10000] bp")
		}
	case ParamMinHoldingPeriod:
		if value.Cmp(big.NewInt(int64(MaxHoldingPeriod/time.Second))) > 0 {
			return errors.New("min holding period must not exceed 365 days")
		}
	default:
		return errors.Errorf("unknown restriction parameter id %d", id)
	}
	return nil
}

// ApplyParam validates and applies a parameter update.
func (v *Validator) ApplyParam(id uint8, value *big.Int, now time.Time) error {
	if err := ValidateParam(id, value, now); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	switch id {
	case ParamLockupEnd:
		v.params.LockupEndTimestamp = value.Int64()
	case ParamMaxSharesPerInvestor:
		v.params.MaxSharesPerInvestorBP = value.Uint64()
	case ParamMinHoldingPeriod:
		v.params.MinHoldingPeriodSeconds = value.Int64()
	}
	return nil
}

// RecordInbound timestamps a recipient's inbound movement for the holding
// period check.
func (v *Validator) RecordInbound(to common.Address, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastInbound[to] = now.Unix()
}

// HoldingPeriodActive reports whether a minimum holding period is configured.
func (v *Validator) HoldingPeriodActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params.MinHoldingPeriodSeconds > 0
}

// Check runs the restriction checklist for a prospective transfer and
// reports the first violated rule. The KYC gate, when attached, runs ahead
// of the parameterised rules regardless of the whitelist/blacklist flags.
func (v *Validator) Check(from, to common.Address, amount, recipientBalance, totalShares *big.Int, now time.Time) (bool, string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.kyc != nil {
		if !v.kyc.IsWhitelisted(to) {
			return false, "recipient is not KYC whitelisted"
		}
		if v.kyc.IsBlacklisted(to) {
			return false, "recipient is KYC blacklisted"
		}
		if v.kyc.IsBlacklisted(from) {
			return false, "sender is KYC blacklisted"
		}
	}

	if v.params.TransferPaused {
		return false, "transfers are paused"
	}
	if v.params.LockupEndTimestamp != 0 && now.Unix() < v.params.LockupEndTimestamp {
		return false, "lockup period has not ended"
	}
	if v.params.MinHoldingPeriodSeconds > 0 {
		if last := v.lastInbound[from]; last != 0 && now.Unix()-last < v.params.MinHoldingPeriodSeconds {
			return false, "sender minimum holding period has not elapsed"
		}
	}
	if v.params.MaxSharesPerInvestorBP > 0 && totalShares.Sign() > 0 {
		post := new(big.Int).Add(recipientBalance, amount)
		post.Mul(post, big.NewInt(10000))
		limit := new(big.Int).Mul(totalShares, new(big.Int).SetUint64(v.params.MaxSharesPerInvestorBP))
		if post.Cmp(limit) > 0 {
			return false, "recipient would exceed max shares per investor"
		}
	}
	if v.params.WhitelistEnabled && v.kyc != nil && !v.kyc.IsWhitelisted(to) {
		return false, "recipient is not whitelisted"
	}
	if v.params.BlacklistEnabled && v.kyc != nil {
		if v.kyc.IsBlacklisted(to) {
			return false, "recipient is blacklisted"
		}
		if v.kyc.IsBlacklisted(from) {
			return false, "sender is blacklisted"
		}
	}
	return true, ""
}
