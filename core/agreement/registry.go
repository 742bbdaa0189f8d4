package agreement

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Parameter ids accepted by SetParameter, mirroring the governance
// AgreementParameterUpdate selector.
const (
	ParamGracePeriodDays uint8 = iota
	ParamLatePenaltyBP
	ParamDefaultThresholdMonths
	ParamAutoRenewalEnabled
	ParamEarlyRepaymentAllowed
)

var ErrAgreementNotFound = errors.New("agreement not found")

// Agreement is one funded asset position: the rental agreement whose yield
// the ownership token fractionalises.
type Agreement struct {
	ID             uint64
	Property       common.Address
	UpfrontCapital *big.Int
	CurrentRateBP  uint64
	ReserveBalance *big.Int

	GracePeriodDays        uint64
	LatePenaltyBP          uint64
	DefaultThresholdMonths uint64
	AutoRenewalEnabled     bool
	EarlyRepaymentAllowed  bool
}

// Registry is the agreement collaborator surface consumed by governance
// dispatch. Calls are treated as opaque: they succeed or the whole dispatch
// step fails.
type Registry interface {
	GetAgreement(id uint64) (*Agreement, error)
	SetAgreementROI(id uint64, rateBP uint64) error
	AllocateReserve(id uint64, amount *big.Int) error
	WithdrawReserve(id uint64, amount *big.Int) error
	SetParameter(id uint64, paramID uint8, value *big.Int) error
}

// MemoryRegistry is the in-process Registry used by tests and the local
// deployment mode.
type MemoryRegistry struct {
	mu         sync.Mutex
	agreements map[uint64]*Agreement
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{agreements: make(map[uint64]*Agreement)}
}

func (m *MemoryRegistry) Register(a *Agreement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ReserveBalance == nil {
		a.ReserveBalance = new(big.Int)
	}
	if a.UpfrontCapital == nil {
		a.UpfrontCapital = new(big.Int)
	}
	m.agreements[a.ID] = a
}

func (m *MemoryRegistry) GetAgreement(id uint64) (*Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return nil, errors.Wrapf(ErrAgreementNotFound, "id %d", id)
	}
	cp := *a
	cp.UpfrontCapital = new(big.Int).Set(a.UpfrontCapital)
	cp.ReserveBalance = new(big.Int).Set(a.ReserveBalance)
	return &cp, nil
}

func (m *MemoryRegistry) SetAgreementROI(id uint64, rateBP uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return errors.Wrapf(ErrAgreementNotFound, "id %d", id)
	}
	a.CurrentRateBP = rateBP
	return nil
}

// AllocateReserve moves funds into the agreement's reserve custody.
func (m *MemoryRegistry) AllocateReserve(id uint64, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return errors.Wrapf(ErrAgreementNotFound, "id %d", id)
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("allocation amount must be positive")
	}
	a.ReserveBalance.Add(a.ReserveBalance, amount)
	return nil
}

// WithdrawReserve releases funds from the agreement's reserve custody.
func (m *MemoryRegistry) WithdrawReserve(id uint64, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return errors.Wrapf(ErrAgreementNotFound, "id %d", id)
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("withdrawal amount must be positive")
	}
	if a.ReserveBalance.Cmp(amount) < 0 {
		return errors.Errorf("reserve balance %s below withdrawal %s", a.ReserveBalance, amount)
	}
	a.ReserveBalance.Sub(a.ReserveBalance, amount)
	return nil
}

func (m *MemoryRegistry) SetParameter(id uint64, paramID uint8, value *big.Int) error {
	if err := ValidateParam(paramID, value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return errors.Wrapf(ErrAgreementNotFound, "id %d", id)
	}
	switch paramID {
	case ParamGracePeriodDays:
		a.GracePeriodDays = value.Uint64()
	case ParamLatePenaltyBP:
		a.LatePenaltyBP = value.Uint64()
	case ParamDefaultThresholdMonths:
		a.DefaultThresholdMonths = value.Uint64()
	case ParamAutoRenewalEnabled:
		a.AutoRenewalEnabled = value.Sign() != 0
	case ParamEarlyRepaymentAllowed:
		a.EarlyRepaymentAllowed = value.Sign() != 0
	}
	return nil
}

// ValidateParam checks an agreement-parameter update against its bounds.
func ValidateParam(paramID uint8, value *big.Int) error {
	inRange := func(lo, hi int64) bool {
		return value.Cmp(big.NewInt(lo)) >= 0 && value.Cmp(big.NewInt(hi)) <= 0
	}
	switch paramID {
	case ParamGracePeriodDays:
		if !inRange(1, 90) {
			return errors.New("grace period must be within [1,90] days")
		}
	case ParamLatePenaltyBP:
		if !inRange(100, 2000) {
			return errors.New("late penalty must be within [100,2000] bp")
		}
	case ParamDefaultThresholdMonths:
		if !inRange(1, 12) {
			return errors.New("default threshold must be within [1,12] months")
		}
	case ParamAutoRenewalEnabled, ParamEarlyRepaymentAllowed:
		if !inRange(0, 1) {
			return errors.New("boolean parameter must be 0 or 1")
		}
	default:
		return errors.Errorf("unknown agreement parameter id %d", paramID)
	}
	return nil
}
