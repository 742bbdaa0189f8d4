package governance

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/ledger"
)

func TestDedicatedSourceResolvesBoundLedger(t *testing.T) {
	holder := common.HexToAddress("0x01")

	l := ledger.NewLedger(7, ledger.NewMemoryAsset())
	assert.Nil(t, l.Mint(holder, big.NewInt(400)))

	src := NewDedicatedLedgerSource()
	src.Bind(7, l)

	assert.Equal(t, int64(400), src.BalanceOf(holder, 7).Int64())
	assert.Equal(t, int64(400), src.TotalSupply(7).Int64())
}

func TestDedicatedSourceUnknownAgreementIsZero(t *testing.T) {
	src := NewDedicatedLedgerSource()
	assert.Equal(t, int64(0), src.BalanceOf(common.HexToAddress("0x01"), 99).Int64())
	assert.Equal(t, int64(0), src.TotalSupply(99).Int64())
}

func TestSharedSourceResolvesThroughTokenMapping(t *testing.T) {
	holder := common.HexToAddress("0x01")

	shared := ledger.NewSharedLedger(ledger.NewMemoryAsset())
	_, err := shared.CreateBook(11, 7)
	assert.Nil(t, err)
	assert.Nil(t, shared.Mint(11, holder, big.NewInt(250)))

	src := NewSharedLedgerSource(shared)
	src.Bind(7, 11)

	assert.Equal(t, int64(250), src.BalanceOf(holder, 7).Int64())
	assert.Equal(t, int64(250), src.TotalSupply(7).Int64())

	// agreement without a token mapping resolves to zero
	assert.Equal(t, int64(0), src.BalanceOf(holder, 8).Int64())
	assert.Equal(t, int64(0), src.TotalSupply(8).Int64())
}
