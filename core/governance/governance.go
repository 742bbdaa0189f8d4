package governance

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/axiom-kit/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/agreement"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/kyc"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/ledger"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/restriction"
)

// registry calls are opaque remote operations, retried a few times before
// the dispatch step is failed
const (
	registryRetryLimit   = 3
	registryRetryBackoff = 200 * time.Millisecond
)

type Config struct {
	Parameters Parameters

	// SnapshotVoting freezes each voter's power at their first power query
	// per proposal instead of reading live balances. Off by default: a
	// holder's power at vote time reflects their current balance.
	SnapshotVoting bool

	Logger *logrus.Logger
}

// Governance is the proposal state machine: creation, weighted voting,
// quorum/majority evaluation and dispatch of approved actions into the
// ledger, restriction parameters and external collaborators.
type Governance struct {
	mu sync.Mutex

	params         Parameters
	snapshotVoting bool

	power    VotingPowerSource
	registry agreement.Registry
	kyc      *kyc.Registry

	restrictions map[uint64]*restriction.Validator
	ledgers      map[uint64]*ledger.Ledger

	proposals map[uint64]*Proposal
	nextID    uint64
	voted     map[uint64]map[common.Address]bool
	snapshots map[uint64]map[common.Address]*big.Int

	store  *Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewGovernance wires the state machine to its collaborators. A nil store
// keeps everything in memory; with a store, previously persisted proposals
// are restored.
func NewGovernance(cfg Config, power VotingPowerSource, registry agreement.Registry, kycReg *kyc.Registry, store *Store) (*Governance, error) {
	if err := cfg.Parameters.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New()
	}
	g := &Governance{
		params:         cfg.Parameters,
		snapshotVoting: cfg.SnapshotVoting,
		power:          power,
		registry:       registry,
		kyc:            kycReg,
		restrictions:   make(map[uint64]*restriction.Validator),
		ledgers:        make(map[uint64]*ledger.Ledger),
		proposals:      make(map[uint64]*Proposal),
		nextID:         1,
		voted:          make(map[uint64]map[common.Address]bool),
		snapshots:      make(map[uint64]map[common.Address]*big.Int),
		store:          store,
		logger:         logger,
		now:            time.Now,
	}
	if store != nil {
		restored, err := store.Proposals()
		if err != nil {
			return nil, errors.Wrap(err, "restore proposals")
		}
		for _, p := range restored {
			g.proposals[p.ID] = p
		}
		g.nextID = store.LastProposalID() + 1
	}
	return g, nil
}

// BindLedger attaches the ledger that receives reserve distributions for an
// agreement.
func (g *Governance) BindLedger(agreementID uint64, l *ledger.Ledger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ledgers[agreementID] = l
}

// BindRestrictions attaches the restriction validator that
// TransferRestrictionUpdate proposals for an agreement mutate.
func (g *Governance) BindRestrictions(agreementID uint64, v *restriction.Validator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restrictions[agreementID] = v
}

func (g *Governance) Params() Parameters {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params
}

func (g *Governance) GetProposal(id uint64) (*Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return nil, errors.Wrapf(ErrProposalNotFound, "id %d", id)
	}
	return p.clone(), nil
}

// Proposals returns every proposal in id order.
func (g *Governance) Proposals() []*Proposal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Proposal, 0, len(g.proposals))
	for _, p := range g.proposals {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HasVoted reports whether a voter's vote is already recorded.
func (g *Governance) HasVoted(proposalID uint64, voter common.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasVotedLocked(proposalID, voter)
}

// CreateProposal opens a proposal for voting. The proposer must hold at
// least totalSupply * proposalThresholdBP / 10000 voting power on the target
// agreement. KYC whitelist proposals go through
// CreateKYCWhitelistProposal instead, which skips the threshold check.
func (g *Governance) CreateProposal(proposer common.Address, agreementID uint64, payload Payload, description string) (*Proposal, error) {
	if !g.mu.TryLock() {
		return nil, ErrReentrantCall
	}
	defer g.mu.Unlock()

	if _, ok := payload.(KYCWhitelistPayload); ok {
		return nil, errors.New("kyc whitelist proposals must go through CreateKYCWhitelistProposal")
	}

	// GovernanceParameterUpdate repurposes the agreement id as the
	// parameter selector; threshold and quorum resolve against it as-is
	effectiveID := agreementID
	if gp, ok := payload.(GovernanceParamPayload); ok {
		effectiveID = uint64(gp.ParamID)
	}

	supply := g.power.TotalSupply(effectiveID)
	required := new(big.Int).Mul(supply, big.NewInt(int64(g.params.ProposalThresholdBP)))
	required.Div(required, big.NewInt(10000))
	if g.power.BalanceOf(proposer, effectiveID).Cmp(required) < 0 {
		return nil, errors.Wrapf(ErrThresholdNotMet, "required %s voting power on agreement %d", required, effectiveID)
	}

	if err := g.validatePayload(effectiveID, payload, g.now()); err != nil {
		return nil, err
	}
	return g.openLocked(proposer, agreementID, payload, description)
}

// CreateKYCWhitelistProposal opens a whitelist add/remove proposal. The
// agreement id is fixed to 0 and no proposal threshold applies.
func (g *Governance) CreateKYCWhitelistProposal(proposer, target common.Address, add bool, description string) (*Proposal, error) {
	if !g.mu.TryLock() {
		return nil, ErrReentrantCall
	}
	defer g.mu.Unlock()

	payload := KYCWhitelistPayload{Target: target, Add: add}
	if err := g.validatePayload(0, payload, g.now()); err != nil {
		return nil, err
	}
	return g.openLocked(proposer, 0, payload, description)
}

func (g *Governance) openLocked(proposer common.Address, agreementID uint64, payload Payload, description string) (*Proposal, error) {
	now := g.now().Unix()
	p := &Proposal{
		ID:           g.nextID,
		Proposer:     proposer,
		AgreementID:  agreementID,
		Description:  description,
		VotingStart:  now + int64(g.params.VotingDelay/time.Second),
		ForVotes:     new(big.Int),
		AgainstVotes: new(big.Int),
		AbstainVotes: new(big.Int),
	}
	p.VotingEnd = p.VotingStart + int64(g.params.VotingPeriod/time.Second)
	if err := encodePayload(p, payload); err != nil {
		return nil, err
	}
	g.nextID++
	g.proposals[p.ID] = p

	if err := g.persistLocked(p); err != nil {
		return nil, err
	}
	g.journalLocked(&Event{
		Type:       EventProposalCreated,
		ProposalID: p.ID,
		At:         now,
	})
	g.logger.WithFields(logrus.Fields{
		"proposal":  p.ID,
		"type":      p.Type.String(),
		"agreement": p.AgreementID,
		"proposer":  proposer.Hex(),
	}).Info("proposal created")
	return p.clone(), nil
}

// CastVote records a weighted vote. The window is inclusive of votingEnd;
// each voter may vote at most once per proposal and the chosen direction is
// folded into the aggregate tallies only (the journal keeps the per-voter
// record).
func (g *Governance) CastVote(voter common.Address, proposalID uint64, support VoteSupport) error {
	if !g.mu.TryLock() {
		return ErrReentrantCall
	}
	defer g.mu.Unlock()

	p, ok := g.proposals[proposalID]
	if !ok {
		return errors.Wrapf(ErrProposalNotFound, "id %d", proposalID)
	}
	if support > VoteAbstain {
		return errors.Wrapf(ErrInvalidSupport, "support %d", support)
	}
	now := g.now().Unix()
	if now < p.VotingStart || now > p.VotingEnd {
		return errors.Wrapf(ErrProposalNotActive, "voting window [%d,%d], now %d", p.VotingStart, p.VotingEnd, now)
	}
	if g.hasVotedLocked(proposalID, voter) {
		return errors.Wrap(ErrAlreadyVoted, voter.Hex())
	}

	weight := g.votingPowerLocked(p, voter)
	if weight.Sign() == 0 {
		return errors.Wrap(ErrInsufficientVotingPower, voter.Hex())
	}

	if g.voted[proposalID] == nil {
		g.voted[proposalID] = make(map[common.Address]bool)
	}
	g.voted[proposalID][voter] = true
	switch support {
	case VoteFor:
		p.ForVotes.Add(p.ForVotes, weight)
	case VoteAgainst:
		p.AgainstVotes.Add(p.AgainstVotes, weight)
	case VoteAbstain:
		p.AbstainVotes.Add(p.AbstainVotes, weight)
	}

	if err := g.persistLocked(p); err != nil {
		return err
	}
	if g.store != nil {
		g.store.PutVote(proposalID, voter)
	}
	g.journalLocked(&Event{
		Type:       EventVoteCast,
		ProposalID: proposalID,
		Voter:      voter,
		Support:    support,
		Weight:     new(big.Int).Set(weight),
		At:         now,
	})
	g.logger.WithFields(logrus.Fields{
		"proposal": proposalID,
		"voter":    voter.Hex(),
		"support":  support,
		"weight":   weight.String(),
	}).Info("vote cast")
	return nil
}

// ExecuteProposal evaluates a proposal once its voting window has closed
// (strictly after votingEnd). A quorum or majority failure marks the
// proposal defeated without error, and a later call re-evaluates it; only a
// successful execution is terminal.
func (g *Governance) ExecuteProposal(proposalID uint64) error {
	if !g.mu.TryLock() {
		return ErrReentrantCall
	}
	defer g.mu.Unlock()

	p, ok := g.proposals[proposalID]
	if !ok {
		return errors.Wrapf(ErrProposalNotFound, "id %d", proposalID)
	}
	if p.Executed {
		return errors.Wrapf(ErrProposalAlreadyExecuted, "id %d", proposalID)
	}
	now := g.now().Unix()
	if now <= p.VotingEnd {
		return errors.Wrapf(ErrVotingNotEnded, "voting ends at %d, now %d", p.VotingEnd, now)
	}

	supply := g.power.TotalSupply(p.AgreementID)
	required := new(big.Int).Mul(supply, big.NewInt(int64(g.params.QuorumPercentageBP)))
	required.Div(required, big.NewInt(10000))

	total := new(big.Int).Add(p.ForVotes, p.AgainstVotes)
	total.Add(total, p.AbstainVotes)
	p.QuorumReached = total.Cmp(required) >= 0

	if !p.QuorumReached {
		return g.defeatLocked(p, "quorum not reached", now)
	}
	if p.ForVotes.Cmp(p.AgainstVotes) <= 0 {
		return g.defeatLocked(p, "majority not reached", now)
	}

	payload, err := p.Payload()
	if err != nil {
		return err
	}

	p.Executed = true
	if err := g.dispatchLocked(p, payload); err != nil {
		// an aborted reserve distribution leaves the withdrawn funds in
		// ledger custody; the execution itself has committed and the
		// distribution is retried on the ledger
		if !errors.Is(err, ledger.ErrDistributionAborted) {
			p.Executed = false
		}
		if perr := g.persistLocked(p); perr != nil {
			g.logger.WithError(perr).Error("persist proposal after failed dispatch")
		}
		return err
	}

	if err := g.persistLocked(p); err != nil {
		return err
	}
	g.journalLocked(&Event{
		Type:       EventProposalExecuted,
		ProposalID: p.ID,
		At:         now,
	})
	g.logger.WithFields(logrus.Fields{
		"proposal": p.ID,
		"type":     p.Type.String(),
	}).Info("proposal executed")
	return nil
}

// defeatLocked records a non-reverting defeat. Defeat is not an error and
// not terminal: it may be recomputed on a later ExecuteProposal call.
func (g *Governance) defeatLocked(p *Proposal, reason string, now int64) error {
	p.Defeated = true
	if err := g.persistLocked(p); err != nil {
		return err
	}
	g.journalLocked(&Event{
		Type:       EventProposalDefeated,
		ProposalID: p.ID,
		Reason:     reason,
		At:         now,
	})
	g.logger.WithFields(logrus.Fields{
		"proposal": p.ID,
		"reason":   reason,
	}).Info("proposal defeated")
	return nil
}

func (g *Governance) dispatchLocked(p *Proposal, payload Payload) error {
	switch v := payload.(type) {
	case ROIAdjustmentPayload:
		return g.retryRegistry(func() error {
			return g.registry.SetAgreementROI(p.AgreementID, v.RateBP)
		})

	case ReserveAllocationPayload:
		return g.retryRegistry(func() error {
			return g.registry.AllocateReserve(p.AgreementID, v.Amount)
		})

	case ReserveWithdrawalPayload:
		led := g.ledgers[p.AgreementID]
		if led == nil {
			return errors.Wrapf(ErrNoLedgerBound, "agreement %d", p.AgreementID)
		}
		if err := g.retryRegistry(func() error {
			return g.registry.WithdrawReserve(p.AgreementID, v.Amount)
		}); err != nil {
			return err
		}
		if err := led.DepositReserve(v.Amount); err != nil {
			return err
		}
		report, err := led.DistributeReserve()
		if err != nil {
			return err
		}
		g.logger.WithFields(logrus.Fields{
			"proposal":  p.ID,
			"agreement": p.AgreementID,
			"amount":    report.Total.String(),
			"paid":      len(report.Paid),
		}).Info("reserve withdrawal distributed")
		return nil

	case GovernanceParamPayload:
		return g.applyGovParamLocked(v)

	case AgreementParamPayload:
		return g.retryRegistry(func() error {
			return g.registry.SetParameter(p.AgreementID, v.ParamID, v.Value)
		})

	case RestrictionParamPayload:
		r := g.restrictions[p.AgreementID]
		if r == nil {
			return errors.Wrapf(ErrNoRestrictionsBound, "agreement %d", p.AgreementID)
		}
		return r.ApplyParam(v.ParamID, v.Value, g.now())

	case KYCWhitelistPayload:
		if g.kyc == nil {
			return ErrNoKYCBound
		}
		if v.Add {
			return g.kyc.AddToWhitelist(v.Target)
		}
		return g.kyc.RemoveFromWhitelist(v.Target)

	default:
		return errors.Errorf("unknown payload type %T", payload)
	}
}

func (g *Governance) applyGovParamLocked(v GovernanceParamPayload) error {
	if err := validateGovParam(v.ParamID, v.Value); err != nil {
		return err
	}
	switch v.ParamID {
	case GovParamVotingDelay:
		g.params.VotingDelay = time.Duration(v.Value.Int64()) * time.Second
	case GovParamVotingPeriod:
		g.params.VotingPeriod = time.Duration(v.Value.Int64()) * time.Second
	case GovParamQuorumBP:
		g.params.QuorumPercentageBP = uint16(v.Value.Uint64())
	case GovParamThresholdBP:
		g.params.ProposalThresholdBP = uint16(v.Value.Uint64())
	}
	return nil
}

func (g *Governance) retryRegistry(op func() error) error {
	return retry.Retry(func(attempt uint) error {
		return op()
	}, strategy.Limit(registryRetryLimit), strategy.Backoff(backoff.Fibonacci(registryRetryBackoff)))
}

func (g *Governance) hasVotedLocked(proposalID uint64, voter common.Address) bool {
	if g.voted[proposalID][voter] {
		return true
	}
	if g.store != nil && g.store.HasVote(proposalID, voter) {
		return true
	}
	return false
}

func (g *Governance) votingPowerLocked(p *Proposal, voter common.Address) *big.Int {
	if !g.snapshotVoting {
		return g.power.BalanceOf(voter, p.AgreementID)
	}
	snap := g.snapshots[p.ID]
	if snap == nil {
		snap = make(map[common.Address]*big.Int)
		g.snapshots[p.ID] = snap
	}
	if w, ok := snap[voter]; ok {
		return new(big.Int).Set(w)
	}
	w := g.power.BalanceOf(voter, p.AgreementID)
	snap[voter] = new(big.Int).Set(w)
	return w
}

func (g *Governance) persistLocked(p *Proposal) error {
	if g.store == nil {
		return nil
	}
	return g.store.PutProposal(p)
}

func (g *Governance) journalLocked(e *Event) {
	if g.store == nil {
		return
	}
	if err := g.store.AppendEvent(e); err != nil {
		g.logger.WithError(err).Error("append governance event")
	}
}
