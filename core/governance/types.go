package governance

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type ProposalType uint8

const (
	// ROIAdjustment changes an agreement's yield rate.
	ROIAdjustment ProposalType = iota

	// ReserveAllocation moves funds into the agreement's reserve custody.
	ReserveAllocation

	// ReserveWithdrawal releases reserve funds and distributes them pro rata
	// to current holders.
	ReserveWithdrawal

	// GovernanceParameterUpdate changes one of the process-wide voting
	// parameters. The proposal's AgreementID field is repurposed as the
	// parameter selector.
	GovernanceParameterUpdate

	// AgreementParameterUpdate changes one agreement-level parameter.
	AgreementParameterUpdate

	// TransferRestrictionUpdate changes one transfer-restriction parameter.
	TransferRestrictionUpdate

	// KYCWhitelistUpdate adds or removes a whitelist entry on the identity
	// collaborator.
	KYCWhitelistUpdate
)

func (t ProposalType) String() string {
	switch t {
	case ROIAdjustment:
		return "roi_adjustment"
	case ReserveAllocation:
		return "reserve_allocation"
	case ReserveWithdrawal:
		return "reserve_withdrawal"
	case GovernanceParameterUpdate:
		return "governance_parameter_update"
	case AgreementParameterUpdate:
		return "agreement_parameter_update"
	case TransferRestrictionUpdate:
		return "transfer_restriction_update"
	case KYCWhitelistUpdate:
		return "kyc_whitelist_update"
	default:
		return "unknown"
	}
}

type VoteSupport uint8

const (
	VoteAgainst VoteSupport = iota
	VoteFor
	VoteAbstain
)

// Governance parameter ids, the selector carried in a
// GovernanceParameterUpdate proposal's AgreementID field.
const (
	GovParamVotingDelay uint8 = iota
	GovParamVotingPeriod
	GovParamQuorumBP
	GovParamThresholdBP
)

var (
	ErrProposalNotFound        = errors.New("proposal does not exist")
	ErrProposalNotActive       = errors.New("proposal is not active")
	ErrProposalAlreadyExecuted = errors.New("proposal already executed")
	ErrInsufficientVotingPower = errors.New("insufficient voting power")
	ErrAlreadyVoted            = errors.New("already voted")
	ErrThresholdNotMet         = errors.New("proposal threshold not met")
	ErrParameterOutOfBounds    = errors.New("parameter out of bounds")
	ErrVotingNotEnded          = errors.New("voting period not ended")
	ErrInvalidSupport          = errors.New("invalid vote support value")
	ErrReentrantCall           = errors.New("reentrant call")
	ErrNoLedgerBound           = errors.New("no ledger bound for agreement")
	ErrNoRestrictionsBound     = errors.New("no restriction validator bound for agreement")
	ErrNoKYCBound              = errors.New("no kyc registry bound")
)

// Parameters is the process-wide governance configuration. It is mutated
// only through an executed GovernanceParameterUpdate proposal.
type Parameters struct {
	VotingDelay         time.Duration
	VotingPeriod        time.Duration
	QuorumPercentageBP  uint16
	ProposalThresholdBP uint16
}

// Validate checks every field against its governance bounds.
func (p Parameters) Validate() error {
	if p.VotingDelay < time.Hour || p.VotingDelay > 7*24*time.Hour {
		return errors.Wrap(ErrParameterOutOfBounds, "voting delay must be within [1h,7d]")
	}
	if p.VotingPeriod < 24*time.Hour || p.VotingPeriod > 30*24*time.Hour {
		return errors.Wrap(ErrParameterOutOfBounds, "voting period must be within [1d,30d]")
	}
	if p.QuorumPercentageBP < 500 || p.QuorumPercentageBP > 5000 {
		return errors.Wrap(ErrParameterOutOfBounds, "quorum must be within [500,5000] bp")
	}
	if p.ProposalThresholdBP < 10 || p.ProposalThresholdBP > 1000 {
		return errors.Wrap(ErrParameterOutOfBounds, "proposal threshold must be within [10,1000] bp")
	}
	return nil
}

// Proposal is one governance action moving through the voting lifecycle.
// Ids are monotonic from 1; 0 is the "none" sentinel. AgreementID is dual
// purpose: the target agreement, or a repurposed parameter selector for
// GovernanceParameterUpdate (and fixed to 0 for KYCWhitelistUpdate).
type Proposal struct {
	ID          uint64         `json:"id"`
	Proposer    common.Address `json:"proposer"`
	AgreementID uint64         `json:"agreement_id"`
	Type        ProposalType   `json:"type"`
	TargetValue *big.Int       `json:"target_value"`
	Description string         `json:"description"`

	VotingStart int64 `json:"voting_start"`
	VotingEnd   int64 `json:"voting_end"`

	ForVotes     *big.Int `json:"for_votes"`
	AgainstVotes *big.Int `json:"against_votes"`
	AbstainVotes *big.Int `json:"abstain_votes"`

	// Executed is write-once; Defeated is informational and does not gate
	// re-evaluation; QuorumReached caches the last evaluation.
	Executed      bool `json:"executed"`
	Defeated      bool `json:"defeated"`
	QuorumReached bool `json:"quorum_reached"`
}

func (p *Proposal) clone() *Proposal {
	cp := *p
	cp.TargetValue = new(big.Int).Set(p.TargetValue)
	cp.ForVotes = new(big.Int).Set(p.ForVotes)
	cp.AgainstVotes = new(big.Int).Set(p.AgainstVotes)
	cp.AbstainVotes = new(big.Int).Set(p.AbstainVotes)
	return &cp
}
