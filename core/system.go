package core

import (
	"path/filepath"
	"sync"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/agreement"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/governance"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/kyc"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/ledger"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/restriction"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/repo"
)

// System assembles the governance core from configuration: the ledger
// variant selected by the mode flag, the restriction pipeline, the KYC
// collaborator and the proposal state machine, persisted through one
// leveldb handle under the repo root.
type System struct {
	Config     *repo.Config
	Logger     *logrus.Logger
	DB         storage.Storage
	Asset      ledger.Asset
	Registry   agreement.Registry
	KYC        *kyc.Registry
	Governance *governance.Governance

	mu           sync.Mutex
	shared       *ledger.SharedLedger
	dedicated    *governance.DedicatedLedgerSource
	sharedSource *governance.SharedLedgerSource
	ledgers      map[uint64]*ledger.Ledger
	restrictions map[uint64]*restriction.Validator
}

func NewSystem(cfg *repo.Config, asset ledger.Asset, registry agreement.Registry) (*System, error) {
	logger := log.New()
	logger.SetLevel(log.ParseLevel(cfg.Log.Level))

	db, err := leveldb.New(filepath.Join(cfg.RepoRoot, repo.StorageDirName))
	if err != nil {
		return nil, err
	}

	kycReg := kyc.NewRegistry(cfg.KYC.WhitelistEnabled, cfg.KYC.BlacklistEnabled)

	s := &System{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Asset:        asset,
		Registry:     registry,
		KYC:          kycReg,
		ledgers:      make(map[uint64]*ledger.Ledger),
		restrictions: make(map[uint64]*restriction.Validator),
	}

	var power governance.VotingPowerSource
	switch cfg.Ledger.Mode {
	case repo.LedgerModeDedicated:
		s.dedicated = governance.NewDedicatedLedgerSource()
		power = s.dedicated
	case repo.LedgerModeShared:
		s.shared = ledger.NewSharedLedger(asset)
		s.sharedSource = governance.NewSharedLedgerSource(s.shared)
		power = s.sharedSource
	default:
		return nil, errors.Errorf("unknown ledger mode %q", cfg.Ledger.Mode)
	}

	gov, err := governance.NewGovernance(governance.Config{
		Parameters: governance.Parameters{
			VotingDelay:         cfg.Governance.VotingDelay,
			VotingPeriod:        cfg.Governance.VotingPeriod,
			QuorumPercentageBP:  cfg.Governance.QuorumPercentageBP,
			ProposalThresholdBP: cfg.Governance.ProposalThresholdBP,
		},
		SnapshotVoting: cfg.Governance.SnapshotVoting,
		Logger:         logger,
	}, power, registry, kycReg, governance.NewStore(db))
	if err != nil {
		return nil, err
	}
	s.Governance = gov

	return s, nil
}

// OpenAgreement wires the ledger, restriction pipeline and governance
// bindings for one agreement. In shared mode, tokenID is the secondary
// token the agreement maps to; in dedicated mode it is ignored.
func (s *System) OpenAgreement(agreementID, tokenID uint64) (*ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledgers[agreementID]; ok {
		return nil, errors.Errorf("agreement %d already open", agreementID)
	}
	if _, err := s.Registry.GetAgreement(agreementID); err != nil {
		return nil, err
	}

	validator := restriction.NewValidator(restriction.Params{
		LockupEndTimestamp:      s.Config.Restriction.LockupEndTimestamp,
		MaxSharesPerInvestorBP:  s.Config.Restriction.MaxSharesPerInvestorBP,
		MinHoldingPeriodSeconds: s.Config.Restriction.MinHoldingPeriodSeconds,
		TransferPaused:          s.Config.Restriction.TransferPaused,
		WhitelistEnabled:        s.Config.Restriction.WhitelistEnabled,
		BlacklistEnabled:        s.Config.Restriction.BlacklistEnabled,
	})
	validator.AttachKYC(s.KYC)

	var led *ledger.Ledger
	switch s.Config.Ledger.Mode {
	case repo.LedgerModeDedicated:
		led = ledger.NewLedger(agreementID, s.Asset)
		s.dedicated.Bind(agreementID, led)
	case repo.LedgerModeShared:
		book, err := s.shared.CreateBook(tokenID, agreementID)
		if err != nil {
			return nil, err
		}
		s.sharedSource.Bind(agreementID, tokenID)
		led = book
	}
	led.SetMaxShareholders(s.Config.Ledger.MaxShareholders)
	led.SetTransferGate(validator)

	s.Governance.BindLedger(agreementID, led)
	s.Governance.BindRestrictions(agreementID, validator)
	s.ledgers[agreementID] = led
	s.restrictions[agreementID] = validator

	s.Logger.WithField("agreement", agreementID).Info("agreement opened")
	return led, nil
}

func (s *System) Ledger(agreementID uint64) *ledger.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgers[agreementID]
}

func (s *System) Restrictions(agreementID uint64) *restriction.Validator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restrictions[agreementID]
}
