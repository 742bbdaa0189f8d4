package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var ErrUnknownToken = errors.New("unknown secondary token id")

// SharedLedger is the multi-agreement variant: one instance keeps a book per
// secondary token id instead of one ledger instance per agreement. Each book
// is a full Ledger, so restriction gates, distributions and claims work per
// token exactly as on the dedicated variant.
type SharedLedger struct {
	mu    sync.Mutex
	asset Asset
	books map[uint64]*Ledger
}

func NewSharedLedger(asset Asset) *SharedLedger {
	return &SharedLedger{
		asset: asset,
		books: make(map[uint64]*Ledger),
	}
}

// CreateBook opens the book for a secondary token id, bound to the given
// agreement. Opening an already-open book is an error.
func (s *SharedLedger) CreateBook(tokenID, agreementID uint64) (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[tokenID]; ok {
		return nil, errors.Errorf("book for token %d already exists", tokenID)
	}
	book := NewLedger(agreementID, s.asset)
	s.books[tokenID] = book
	return book, nil
}

// Book returns the ledger behind a token id, or nil if never created.
func (s *SharedLedger) Book(tokenID uint64) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[tokenID]
}

// BalanceOf never errors: an unknown token id resolves to zero.
func (s *SharedLedger) BalanceOf(addr common.Address, tokenID uint64) *big.Int {
	book := s.Book(tokenID)
	if book == nil {
		return new(big.Int)
	}
	return book.BalanceOf(addr)
}

// TotalSupply never errors: an unknown token id resolves to zero.
func (s *SharedLedger) TotalSupply(tokenID uint64) *big.Int {
	book := s.Book(tokenID)
	if book == nil {
		return new(big.Int)
	}
	return book.TotalShares()
}

func (s *SharedLedger) Mint(tokenID uint64, to common.Address, amount *big.Int) error {
	book := s.Book(tokenID)
	if book == nil {
		return errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	return book.Mint(to, amount)
}

func (s *SharedLedger) Burn(tokenID uint64, from common.Address, amount *big.Int) error {
	book := s.Book(tokenID)
	if book == nil {
		return errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	return book.Burn(from, amount)
}

func (s *SharedLedger) Transfer(tokenID uint64, from, to common.Address, amount *big.Int) error {
	book := s.Book(tokenID)
	if book == nil {
		return errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	return book.Transfer(from, to, amount)
}
