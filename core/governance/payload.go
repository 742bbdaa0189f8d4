package governance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Payload is the typed view of a proposal's action. The packed integer
// encoding survives only at the storage boundary (Proposal.TargetValue);
// everything above it works with these variants.
type Payload interface {
	ProposalType() ProposalType
}

type ROIAdjustmentPayload struct {
	RateBP uint64
}

type ReserveAllocationPayload struct {
	Amount *big.Int
}

type ReserveWithdrawalPayload struct {
	Amount *big.Int
}

type GovernanceParamPayload struct {
	ParamID uint8
	Value   *big.Int
}

type AgreementParamPayload struct {
	ParamID uint8
	Value   *big.Int
}

type RestrictionParamPayload struct {
	ParamID uint8
	Value   *big.Int
}

type KYCWhitelistPayload struct {
	Target common.Address
	Add    bool
}

func (ROIAdjustmentPayload) ProposalType() ProposalType     { return ROIAdjustment }
func (ReserveAllocationPayload) ProposalType() ProposalType { return ReserveAllocation }
func (ReserveWithdrawalPayload) ProposalType() ProposalType { return ReserveWithdrawal }
func (GovernanceParamPayload) ProposalType() ProposalType   { return GovernanceParameterUpdate }
func (AgreementParamPayload) ProposalType() ProposalType    { return AgreementParameterUpdate }
func (RestrictionParamPayload) ProposalType() ProposalType  { return TransferRestrictionUpdate }
func (KYCWhitelistPayload) ProposalType() ProposalType      { return KYCWhitelistUpdate }

var mask128 = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), 128),
	uint256.NewInt(1),
)

// packParam packs (parameterId << 128) | value.
func packParam(paramID uint8, value *big.Int) (*big.Int, error) {
	if value == nil || value.Sign() < 0 {
		return nil, errors.Wrap(ErrParameterOutOfBounds, "packed value must be non-negative")
	}
	v, overflow := uint256.FromBig(value)
	if overflow || v.BitLen() > 128 {
		return nil, errors.Wrap(ErrParameterOutOfBounds, "packed value exceeds 128 bits")
	}
	packed := new(uint256.Int).Lsh(uint256.NewInt(uint64(paramID)), 128)
	packed.Or(packed, v)
	return packed.ToBig(), nil
}

func unpackParam(targetValue *big.Int) (uint8, *big.Int, error) {
	t, overflow := uint256.FromBig(targetValue)
	if overflow {
		return 0, nil, errors.New("target value exceeds 256 bits")
	}
	id := new(uint256.Int).Rsh(t, 128)
	if !id.IsUint64() || id.Uint64() > 255 {
		return 0, nil, errors.New("parameter id exceeds 8 bits")
	}
	value := new(uint256.Int).And(t, mask128)
	return uint8(id.Uint64()), value.ToBig(), nil
}

// packAddressFlag packs (addressAsInt << 96) | addFlag, addFlag on bit 0.
func packAddressFlag(addr common.Address, add bool) *big.Int {
	packed := new(uint256.Int).Lsh(new(uint256.Int).SetBytes(addr.Bytes()), 96)
	if add {
		packed.Or(packed, uint256.NewInt(1))
	}
	return packed.ToBig()
}

func unpackAddressFlag(targetValue *big.Int) (common.Address, bool, error) {
	t, overflow := uint256.FromBig(targetValue)
	if overflow {
		return common.Address{}, false, errors.New("target value exceeds 256 bits")
	}
	addrInt := new(uint256.Int).Rsh(t, 96)
	addr := common.BytesToAddress(addrInt.Bytes())
	add := t.Uint64()&1 == 1
	return addr, add, nil
}

// encodePayload writes a payload into the proposal's persisted shape. For
// GovernanceParamPayload the AgreementID field becomes the parameter
// selector; for KYCWhitelistPayload it is forced to 0.
func encodePayload(p *Proposal, payload Payload) error {
	p.Type = payload.ProposalType()
	switch v := payload.(type) {
	case ROIAdjustmentPayload:
		p.TargetValue = new(big.Int).SetUint64(v.RateBP)
	case ReserveAllocationPayload:
		p.TargetValue = new(big.Int).Set(v.Amount)
	case ReserveWithdrawalPayload:
		p.TargetValue = new(big.Int).Set(v.Amount)
	case GovernanceParamPayload:
		p.AgreementID = uint64(v.ParamID)
		p.TargetValue = new(big.Int).Set(v.Value)
	case AgreementParamPayload:
		packed, err := packParam(v.ParamID, v.Value)
		if err != nil {
			return err
		}
		p.TargetValue = packed
	case RestrictionParamPayload:
		packed, err := packParam(v.ParamID, v.Value)
		if err != nil {
			return err
		}
		p.TargetValue = packed
	case KYCWhitelistPayload:
		p.AgreementID = 0
		p.TargetValue = packAddressFlag(v.Target, v.Add)
	default:
		return errors.Errorf("unknown payload type %T", payload)
	}
	return nil
}

// Payload decodes the proposal's persisted shape back into its typed view.
func (p *Proposal) Payload() (Payload, error) {
	switch p.Type {
	case ROIAdjustment:
		if !p.TargetValue.IsUint64() {
			return nil, errors.New("roi rate exceeds uint64")
		}
		return ROIAdjustmentPayload{RateBP: p.TargetValue.Uint64()}, nil
	case ReserveAllocation:
		return ReserveAllocationPayload{Amount: new(big.Int).Set(p.TargetValue)}, nil
	case ReserveWithdrawal:
		return ReserveWithdrawalPayload{Amount: new(big.Int).Set(p.TargetValue)}, nil
	case GovernanceParameterUpdate:
		if p.AgreementID > 255 {
			return nil, errors.New("governance parameter id exceeds 8 bits")
		}
		return GovernanceParamPayload{
			ParamID: uint8(p.AgreementID),
			Value:   new(big.Int).Set(p.TargetValue),
		}, nil
	case AgreementParameterUpdate:
		id, value, err := unpackParam(p.TargetValue)
		if err != nil {
			return nil, err
		}
		return AgreementParamPayload{ParamID: id, Value: value}, nil
	case TransferRestrictionUpdate:
		id, value, err := unpackParam(p.TargetValue)
		if err != nil {
			return nil, err
		}
		return RestrictionParamPayload{ParamID: id, Value: value}, nil
	case KYCWhitelistUpdate:
		addr, add, err := unpackAddressFlag(p.TargetValue)
		if err != nil {
			return nil, err
		}
		return KYCWhitelistPayload{Target: addr, Add: add}, nil
	default:
		return nil, errors.Errorf("unknown proposal type %d", p.Type)
	}
}
