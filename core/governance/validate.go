package governance

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/agreement"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/restriction"
)

const (
	minROIBP          = 100
	maxROIBP          = 5000
	maxROIDeviationBP = 500

	// reserve allocations are capped at 20% of the agreement's upfront capital
	maxReserveAllocationBP = 2000
)

// validatePayload applies the type-specific creation rules. Every violation
// wraps ErrParameterOutOfBounds with a distinguishable reason.
func (g *Governance) validatePayload(agreementID uint64, payload Payload, now time.Time) error {
	switch v := payload.(type) {
	case ROIAdjustmentPayload:
		if v.RateBP < minROIBP || v.RateBP > maxROIBP {
			return errors.Wrapf(ErrParameterOutOfBounds, "roi rate %d bp outside [%d,%d]", v.RateBP, minROIBP, maxROIBP)
		}
		a, err := g.registry.GetAgreement(agreementID)
		if err != nil {
			return errors.Wrapf(ErrParameterOutOfBounds, "agreement %d does not exist", agreementID)
		}
		deviation := int64(v.RateBP) - int64(a.CurrentRateBP)
		if deviation < -maxROIDeviationBP || deviation > maxROIDeviationBP {
			return errors.Wrapf(ErrParameterOutOfBounds, "roi rate %d bp deviates more than %d bp from current %d bp",
				v.RateBP, maxROIDeviationBP, a.CurrentRateBP)
		}

	case ReserveAllocationPayload:
		if v.Amount == nil || v.Amount.Sign() <= 0 {
			return errors.Wrap(ErrParameterOutOfBounds, "allocation amount must be positive")
		}
		a, err := g.registry.GetAgreement(agreementID)
		if err != nil {
			return errors.Wrapf(ErrParameterOutOfBounds, "agreement %d does not exist", agreementID)
		}
		// amount * 10000 <= capital * 2000
		lhs := new(big.Int).Mul(v.Amount, big.NewInt(10000))
		rhs := new(big.Int).Mul(a.UpfrontCapital, big.NewInt(maxReserveAllocationBP))
		if lhs.Cmp(rhs) > 0 {
			return errors.Wrapf(ErrParameterOutOfBounds, "allocation %s exceeds %d bp of upfront capital %s",
				v.Amount, maxReserveAllocationBP, a.UpfrontCapital)
		}

	case ReserveWithdrawalPayload:
		if v.Amount == nil || v.Amount.Sign() <= 0 {
			return errors.Wrap(ErrParameterOutOfBounds, "withdrawal amount must be positive")
		}
		if _, err := g.registry.GetAgreement(agreementID); err != nil {
			return errors.Wrapf(ErrParameterOutOfBounds, "agreement %d does not exist", agreementID)
		}

	case GovernanceParamPayload:
		if err := validateGovParam(v.ParamID, v.Value); err != nil {
			return err
		}

	case AgreementParamPayload:
		if _, err := g.registry.GetAgreement(agreementID); err != nil {
			return errors.Wrapf(ErrParameterOutOfBounds, "agreement %d does not exist", agreementID)
		}
		if err := agreement.ValidateParam(v.ParamID, v.Value); err != nil {
			return errors.Wrap(ErrParameterOutOfBounds, err.Error())
		}

	case RestrictionParamPayload:
		if err := restriction.ValidateParam(v.ParamID, v.Value, now); err != nil {
			return errors.Wrap(ErrParameterOutOfBounds, err.Error())
		}

	case KYCWhitelistPayload:
		if v.Target == (common.Address{}) {
			return errors.Wrap(ErrParameterOutOfBounds, "target address must be non-zero")
		}

	default:
		return errors.Errorf("unknown payload type %T", payload)
	}
	return nil
}

func validateGovParam(id uint8, value *big.Int) error {
	inRange := func(lo, hi int64) bool {
		return value.Cmp(big.NewInt(lo)) >= 0 && value.Cmp(big.NewInt(hi)) <= 0
	}
	switch id {
	case GovParamVotingDelay:
		if !inRange(3600, 7*86400) {
			return errors.Wrap(ErrParameterOutOfBounds, "voting delay must be within [1h,7d]")
		}
	case GovParamVotingPeriod:
		if !inRange(86400, 30*86400) {
			return errors.Wrap(ErrParameterOutOfBounds, "voting period must be within [1d,30d]")
		}
	case GovParamQuorumBP:
		if !inRange(500, 5000) {
			return errors.Wrap(ErrParameterOutOfBounds, "quorum must be within [500,5000] bp")
		}
	case GovParamThresholdBP:
		if !inRange(10, 1000) {
			return errors.Wrap(ErrParameterOutOfBounds, "proposal threshold must be within [10,1000] bp")
		}
	default:
		return errors.Wrapf(ErrParameterOutOfBounds, "unknown governance parameter id %d", id)
	}
	return nil
}
