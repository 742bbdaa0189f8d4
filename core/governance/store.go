package governance

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	lastProposalIDKey = "lastProposalID"
	lastEventSeqKey   = "lastEventSeq"
)

// Store persists proposals, vote records and the event journal to a
// key-value backend. Ledger balances are deliberately not persisted here.
type Store struct {
	db storage.Storage
}

func NewStore(db storage.Storage) *Store {
	return &Store{db: db}
}

func proposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf("proposal:%020d", id))
}

func voteKey(proposalID uint64, voter common.Address) []byte {
	return []byte(fmt.Sprintf("vote:%020d:%s", proposalID, voter.Hex()))
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("event:%020d", seq))
}

func (s *Store) PutProposal(p *Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshal proposal")
	}
	s.db.Put(proposalKey(p.ID), data)
	if p.ID > s.LastProposalID() {
		s.putCounter(lastProposalIDKey, p.ID)
	}
	return nil
}

func (s *Store) GetProposal(id uint64) (*Proposal, error) {
	data := s.db.Get(proposalKey(id))
	if data == nil {
		return nil, errors.Wrapf(ErrProposalNotFound, "id %d", id)
	}
	p := &Proposal{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal")
	}
	return p, nil
}

// Proposals loads every persisted proposal in id order.
func (s *Store) Proposals() ([]*Proposal, error) {
	last := s.LastProposalID()
	out := make([]*Proposal, 0, last)
	for id := uint64(1); id <= last; id++ {
		p, err := s.GetProposal(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) LastProposalID() uint64 {
	return s.getCounter(lastProposalIDKey)
}

func (s *Store) PutVote(proposalID uint64, voter common.Address) {
	s.db.Put(voteKey(proposalID, voter), []byte{1})
}

func (s *Store) HasVote(proposalID uint64, voter common.Address) bool {
	return s.db.Get(voteKey(proposalID, voter)) != nil
}

// AppendEvent journals an event at the next sequence position, filling in
// Seq and ID.
func (s *Store) AppendEvent(e *Event) error {
	seq := s.getCounter(lastEventSeqKey) + 1
	e.Seq = seq
	e.ID = eventID(seq, e.Type, e.ProposalID, e.Voter)
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	s.db.Put(eventKey(seq), data)
	s.putCounter(lastEventSeqKey, seq)
	return nil
}

// Events loads the journal in append order.
func (s *Store) Events() ([]*Event, error) {
	last := s.getCounter(lastEventSeqKey)
	out := make([]*Event, 0, last)
	for seq := uint64(1); seq <= last; seq++ {
		data := s.db.Get(eventKey(seq))
		if data == nil {
			continue
		}
		e := &Event{}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, errors.Wrap(err, "unmarshal event")
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) getCounter(key string) uint64 {
	data := s.db.Get([]byte(key))
	if data == nil {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func (s *Store) putCounter(key string, value uint64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	s.db.Put([]byte(key), buf)
}
