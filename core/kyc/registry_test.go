package kyc

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var (
	investor = common.HexToAddress("0xcc00000000000000000000000000000000000001")
	other    = common.HexToAddress("0xdd00000000000000000000000000000000000002")
)

func TestSingleWhitelistOpsAreStrict(t *testing.T) {
	r := NewRegistry(true, true)

	assert.False(t, r.IsWhitelisted(investor))
	assert.Nil(t, r.AddToWhitelist(investor))
	assert.True(t, r.IsWhitelisted(investor))

	// strict toggle: re-adding fails
	err := r.AddToWhitelist(investor)
	assert.True(t, errors.Is(err, ErrAlreadyWhitelisted))

	assert.Nil(t, r.RemoveFromWhitelist(investor))
	assert.False(t, r.IsWhitelisted(investor))

	err = r.RemoveFromWhitelist(investor)
	assert.True(t, errors.Is(err, ErrNotWhitelisted))
}

func TestBatchWhitelistOpsAreIdempotent(t *testing.T) {
	r := NewRegistry(true, true)

	assert.Nil(t, r.AddToWhitelist(investor))

	// the batch skips the already-whitelisted entry instead of failing
	r.BatchAddToWhitelist([]common.Address{investor, other})
	assert.True(t, r.IsWhitelisted(investor))
	assert.True(t, r.IsWhitelisted(other))

	r.BatchRemoveFromWhitelist([]common.Address{investor, other})
	r.BatchRemoveFromWhitelist([]common.Address{investor})
	assert.False(t, r.IsWhitelisted(investor))
	assert.False(t, r.IsWhitelisted(other))
}

func TestDisabledListsAnswerUnconditionally(t *testing.T) {
	r := NewRegistry(false, false)

	assert.True(t, r.IsWhitelisted(investor))
	assert.False(t, r.IsBlacklisted(investor))

	// membership is still tracked underneath
	assert.Nil(t, r.AddToBlacklist(investor))
	assert.False(t, r.IsBlacklisted(investor))
}

func TestBlacklistStrictToggle(t *testing.T) {
	r := NewRegistry(true, true)

	assert.Nil(t, r.AddToBlacklist(investor))
	assert.True(t, r.IsBlacklisted(investor))
	assert.True(t, errors.Is(r.AddToBlacklist(investor), ErrAlreadyBlacklisted))

	assert.Nil(t, r.RemoveFromBlacklist(investor))
	assert.True(t, errors.Is(r.RemoveFromBlacklist(investor), ErrNotBlacklisted))
}

func TestTierLabels(t *testing.T) {
	r := NewRegistry(true, true)

	assert.Equal(t, "", r.Tier(investor))
	r.SetTier(investor, "accredited")
	assert.Equal(t, "accredited", r.Tier(investor))
}
