package governance

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPackedParamLayout(t *testing.T) {
	packed, err := packParam(2, big.NewInt(86400))
	assert.Nil(t, err)

	// parameterId lives above bit 128, the value below it
	expected := new(big.Int).Lsh(big.NewInt(2), 128)
	expected.Or(expected, big.NewInt(86400))
	assert.Equal(t, expected.String(), packed.String())

	id, value, err := unpackParam(packed)
	assert.Nil(t, err)
	assert.Equal(t, uint8(2), id)
	assert.Equal(t, int64(86400), value.Int64())
}

func TestPackedParamRejectsOversizedValue(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := packParam(1, huge)
	assert.True(t, errors.Is(err, ErrParameterOutOfBounds))

	_, err = packParam(1, big.NewInt(-1))
	assert.True(t, errors.Is(err, ErrParameterOutOfBounds))
}

func TestPackedAddressFlagLayout(t *testing.T) {
	target := common.HexToAddress("0xabcdef0123456789abcdef0123456789abcdef01")

	packed := packAddressFlag(target, true)
	assert.Equal(t, int64(1), new(big.Int).And(packed, big.NewInt(1)).Int64())

	addr, add, err := unpackAddressFlag(packed)
	assert.Nil(t, err)
	assert.Equal(t, target, addr)
	assert.True(t, add)

	packed = packAddressFlag(target, false)
	addr, add, err = unpackAddressFlag(packed)
	assert.Nil(t, err)
	assert.Equal(t, target, addr)
	assert.False(t, add)
}

func TestPayloadRoundTrip(t *testing.T) {
	target := common.HexToAddress("0xabcdef0123456789abcdef0123456789abcdef01")

	payloads := []Payload{
		ROIAdjustmentPayload{RateBP: 750},
		ReserveAllocationPayload{Amount: big.NewInt(123456)},
		ReserveWithdrawalPayload{Amount: big.NewInt(654321)},
		GovernanceParamPayload{ParamID: GovParamQuorumBP, Value: big.NewInt(2500)},
		AgreementParamPayload{ParamID: 1, Value: big.NewInt(500)},
		RestrictionParamPayload{ParamID: 2, Value: big.NewInt(86400)},
		KYCWhitelistPayload{Target: target, Add: true},
	}

	for _, payload := range payloads {
		p := &Proposal{AgreementID: 42}
		err := encodePayload(p, payload)
		assert.Nil(t, err)
		assert.Equal(t, payload.ProposalType(), p.Type)

		decoded, err := p.Payload()
		assert.Nil(t, err)
		assert.Equal(t, payload.ProposalType(), decoded.ProposalType())
	}
}

func TestGovernanceParamRepurposesAgreementID(t *testing.T) {
	p := &Proposal{AgreementID: 42}
	err := encodePayload(p, GovernanceParamPayload{ParamID: GovParamVotingPeriod, Value: big.NewInt(86400)})
	assert.Nil(t, err)
	assert.Equal(t, uint64(GovParamVotingPeriod), p.AgreementID)

	decoded, err := p.Payload()
	assert.Nil(t, err)
	gp := decoded.(GovernanceParamPayload)
	assert.Equal(t, GovParamVotingPeriod, gp.ParamID)
	assert.Equal(t, int64(86400), gp.Value.Int64())
}

func TestKYCPayloadForcesAgreementZero(t *testing.T) {
	p := &Proposal{AgreementID: 42}
	err := encodePayload(p, KYCWhitelistPayload{Target: common.HexToAddress("0x01"), Add: false})
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), p.AgreementID)
}
