package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownStake = errors.New("unknown stake token")

// StakeLedger is the non-fungible ownership ledger for stake tokens:
// sequential ids, one owner each, with per-id and per-operator approvals.
type StakeLedger struct {
	owners    map[uint64]common.Address
	approved  map[uint64]common.Address
	operators map[common.Address]map[common.Address]bool
	nextID    uint64
}

func NewStakeLedger() *StakeLedger {
	return &StakeLedger{
		owners:    make(map[uint64]common.Address),
		approved:  make(map[uint64]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
		nextID:    1,
	}
}

// NextID returns the id the next Mint will assign.
func (s *StakeLedger) NextID() uint64 { return s.nextID }

// Mint issues a fresh stake token to owner and returns its id.
func (s *StakeLedger) Mint(owner common.Address) uint64 {
	id := s.nextID
	s.nextID++
	s.owners[id] = owner
	return id
}

func (s *StakeLedger) OwnerOf(id uint64) (common.Address, error) {
	owner, ok := s.owners[id]
	if !ok {
		return common.Address{}, fmt.Errorf("id %d: %w", id, ErrUnknownStake)
	}
	return owner, nil
}

// Approve lets spender act on a single stake token. Only the owner may set it.
func (s *StakeLedger) Approve(caller, spender common.Address, id uint64) error {
	owner, err := s.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("approve by %s: not the owner of id %d", caller.Hex(), id)
	}
	s.approved[id] = spender
	return nil
}

// SetApprovalForAll lets operator act on every stake token of the caller.
func (s *StakeLedger) SetApprovalForAll(caller, operator common.Address, approved bool) {
	ops, ok := s.operators[caller]
	if !ok {
		ops = make(map[common.Address]bool)
		s.operators[caller] = ops
	}
	ops[operator] = approved
}

// IsAuthorized reports whether caller is the owner, the per-id approved
// spender, or an approved operator for the token's owner.
func (s *StakeLedger) IsAuthorized(caller common.Address, id uint64) bool {
	owner, ok := s.owners[id]
	if !ok {
		return false
	}
	if caller == owner || s.approved[id] == caller {
		return true
	}
	return s.operators[owner][caller]
}

// Transfer moves ownership of a stake token and clears its approval.
func (s *StakeLedger) Transfer(caller, to common.Address, id uint64) error {
	if _, err := s.OwnerOf(id); err != nil {
		return err
	}
	if !s.IsAuthorized(caller, id) {
		return fmt.Errorf("transfer by %s: not authorized for id %d", caller.Hex(), id)
	}
	s.owners[id] = to
	delete(s.approved, id)
	return nil
}
