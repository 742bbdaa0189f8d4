package repo

import (
	"time"
)

type Config struct {
	RepoRoot    string      `mapstructure:"-" toml:"-"`
	Log         Log         `mapstructure:"log" toml:"log"`
	Governance  Governance  `mapstructure:"governance" toml:"governance"`
	Ledger      Ledger      `mapstructure:"ledger" toml:"ledger"`
	Restriction Restriction `mapstructure:"restriction" toml:"restriction"`
	KYC         KYC         `mapstructure:"kyc" toml:"kyc"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

type Governance struct {
	VotingDelay         time.Duration `mapstructure:"voting_delay" toml:"voting_delay"`
	VotingPeriod        time.Duration `mapstructure:"voting_period" toml:"voting_period"`
	QuorumPercentageBP  uint16        `mapstructure:"quorum_percentage_bp" toml:"quorum_percentage_bp"`
	ProposalThresholdBP uint16        `mapstructure:"proposal_threshold_bp" toml:"proposal_threshold_bp"`
	// SnapshotVoting opts into per-proposal voting-power snapshots instead
	// of live balances.
	SnapshotVoting bool `mapstructure:"snapshot_voting" toml:"snapshot_voting"`
}

type Ledger struct {
	// Mode selects the ledger variant: "dedicated" keeps one ledger per
	// agreement, "shared" keeps one multi-token ledger for all agreements.
	Mode            string `mapstructure:"mode" toml:"mode"`
	MaxShareholders int    `mapstructure:"max_shareholders" toml:"max_shareholders"`
}

// Restriction holds the initial transfer-restriction parameters applied to
// every newly opened agreement. Zero disables the corresponding check.
type Restriction struct {
	LockupEndTimestamp      int64  `mapstructure:"lockup_end_timestamp" toml:"lockup_end_timestamp"`
	MaxSharesPerInvestorBP  uint64 `mapstructure:"max_shares_per_investor_bp" toml:"max_shares_per_investor_bp"`
	MinHoldingPeriodSeconds int64  `mapstructure:"min_holding_period_seconds" toml:"min_holding_period_seconds"`
	TransferPaused          bool   `mapstructure:"transfer_paused" toml:"transfer_paused"`
	WhitelistEnabled        bool   `mapstructure:"whitelist_enabled" toml:"whitelist_enabled"`
	BlacklistEnabled        bool   `mapstructure:"blacklist_enabled" toml:"blacklist_enabled"`
}

type KYC struct {
	WhitelistEnabled bool `mapstructure:"whitelist_enabled" toml:"whitelist_enabled"`
	BlacklistEnabled bool `mapstructure:"blacklist_enabled" toml:"blacklist_enabled"`
}

const (
	LedgerModeDedicated = "dedicated"
	LedgerModeShared    = "shared"
)

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		Log: Log{
			Level:        "info",
			Filename:     "assessor.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Governance: Governance{
			VotingDelay:         24 * time.Hour,
			VotingPeriod:        7 * 24 * time.Hour,
			QuorumPercentageBP:  1000,
			ProposalThresholdBP: 100,
			SnapshotVoting:      false,
		},
		Ledger: Ledger{
			Mode:            LedgerModeDedicated,
			MaxShareholders: 1000,
		},
		Restriction: Restriction{},
		KYC: KYC{
			WhitelistEnabled: true,
			BlacklistEnabled: true,
		},
	}
}
