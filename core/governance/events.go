package governance

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type EventType string

const (
	EventProposalCreated  EventType = "proposal_created"
	EventVoteCast         EventType = "vote_cast"
	EventProposalExecuted EventType = "proposal_executed"
	EventProposalDefeated EventType = "proposal_defeated"
)

// Event is one entry of the append-only governance journal. VoteCast entries
// are the system of record for per-voter vote direction, which the proposal
// state itself deliberately discards.
type Event struct {
	ID         string         `json:"id"`
	Seq        uint64         `json:"seq"`
	Type       EventType      `json:"type"`
	ProposalID uint64         `json:"proposal_id"`
	Voter      common.Address `json:"voter,omitempty"`
	Support    VoteSupport    `json:"support,omitempty"`
	Weight     *big.Int       `json:"weight,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	At         int64          `json:"at"`
}

// eventID derives a stable identifier from the journal position and payload.
func eventID(seq uint64, typ EventType, proposalID uint64, voter common.Address) string {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], seq)
	binary.BigEndian.PutUint64(buf[8:], proposalID)
	buf = append(buf, []byte(typ)...)
	buf = append(buf, voter.Bytes()...)
	return hexutil.Encode(crypto.Keccak256(buf))
}
