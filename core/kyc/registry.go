package kyc

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyWhitelisted = errors.New("address already whitelisted")
	ErrNotWhitelisted     = errors.New("address not whitelisted")
	ErrAlreadyBlacklisted = errors.New("address already blacklisted")
	ErrNotBlacklisted     = errors.New("address not blacklisted")
)

// Registry is the identity collaborator: whitelist and blacklist membership
// plus an informational tier label per address. Caller authorization is
// assumed to have happened upstream.
//
// The single-address mutators are strict toggles and fail when the address
// is already in the target state; the batch variants deliberately skip
// already-set entries instead of failing. Callers depend on both behaviors.
type Registry struct {
	mu sync.Mutex

	whitelistEnabled bool
	blacklistEnabled bool
	whitelist        mapset.Set[common.Address]
	blacklist        mapset.Set[common.Address]
	tiers            map[common.Address]string
}

func NewRegistry(whitelistEnabled, blacklistEnabled bool) *Registry {
	return &Registry{
		whitelistEnabled: whitelistEnabled,
		blacklistEnabled: blacklistEnabled,
		whitelist:        mapset.NewSet[common.Address](),
		blacklist:        mapset.NewSet[common.Address](),
		tiers:            make(map[common.Address]string),
	}
}

// IsWhitelisted reports membership, or true unconditionally when the
// whitelist is disabled.
func (r *Registry) IsWhitelisted(addr common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.whitelistEnabled {
		return true
	}
	return r.whitelist.Contains(addr)
}

// IsBlacklisted reports membership, or false unconditionally when the
// blacklist is disabled.
func (r *Registry) IsBlacklisted(addr common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.blacklistEnabled {
		return false
	}
	return r.blacklist.Contains(addr)
}

func (r *Registry) AddToWhitelist(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.whitelist.Contains(addr) {
		return errors.Wrap(ErrAlreadyWhitelisted, addr.Hex())
	}
	r.whitelist.Add(addr)
	return nil
}

func (r *Registry) RemoveFromWhitelist(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.whitelist.Contains(addr) {
		return errors.Wrap(ErrNotWhitelisted, addr.Hex())
	}
	r.whitelist.Remove(addr)
	return nil
}

// BatchAddToWhitelist adds every address, silently skipping entries that are
// already whitelisted.
func (r *Registry) BatchAddToWhitelist(addrs []common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addr := range addrs {
		r.whitelist.Add(addr)
	}
}

// BatchRemoveFromWhitelist removes every address, silently skipping entries
// that are not whitelisted.
func (r *Registry) BatchRemoveFromWhitelist(addrs []common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addr := range addrs {
		r.whitelist.Remove(addr)
	}
}

func (r *Registry) AddToBlacklist(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blacklist.Contains(addr) {
		return errors.Wrap(ErrAlreadyBlacklisted, addr.Hex())
	}
	r.blacklist.Add(addr)
	return nil
}

func (r *Registry) RemoveFromBlacklist(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.blacklist.Contains(addr) {
		return errors.Wrap(ErrNotBlacklisted, addr.Hex())
	}
	r.blacklist.Remove(addr)
	return nil
}

func (r *Registry) SetTier(addr common.Address, tier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[addr] = tier
}

func (r *Registry) Tier(addr common.Address) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tiers[addr]
}
