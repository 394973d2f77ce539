package registry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"rangeswap/internal/amm"
	"rangeswap/internal/ledger"
	"rangeswap/internal/model"
	"rangeswap/internal/storage"
)

var (
	// ErrTokenOrder rejects unsorted (or identical) asset pairs.
	ErrTokenOrder = errors.New("token0 must sort before token1")

	// ErrParamMismatch rejects a repeat creation whose range or initial
	// price differs from the existing pool.
	ErrParamMismatch = errors.New("parameters mismatch existing pool")

	// ErrUnknownPool is returned by lookups that find nothing.
	ErrUnknownPool = errors.New("unknown pool")
)

// Pair is an ordered asset pair.
type Pair struct {
	Token0 common.Address
	Token1 common.Address
}

// CreateParams fully describes a pool to create.
type CreateParams struct {
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	TickLower    int
	TickUpper    int
	SqrtPriceX96 *uint256.Int
}

// PoolInfo is a pool descriptor: cached creation parameters plus live state.
type PoolInfo struct {
	Address      common.Address
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	TickLower    int
	TickUpper    int
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
}

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    uint32
}

type entry struct {
	pool         *amm.Pool
	initialPrice *uint256.Int
}

// Registry creates and deduplicates pool instances keyed by asset pair and
// fee tier. Pools are never removed.
type Registry struct {
	bank    *ledger.Bank
	journal storage.Journal

	byKey  map[poolKey]*entry
	byPair map[Pair][]*amm.Pool
	pairs  []Pair     // first-seen order
	pools  []*amm.Pool // creation order
}

// NewRegistry builds a registry over the given token ledgers. journal may
// be nil to disable the creation record.
func NewRegistry(bank *ledger.Bank, journal storage.Journal) *Registry {
	return &Registry{
		bank:    bank,
		journal: journal,
		byKey:   make(map[poolKey]*entry),
		byPair:  make(map[Pair][]*amm.Pool),
	}
}

// CreateAndInitializePoolIfNecessary returns the pool for the pair and fee
// tier, creating and initializing it on first sight. A repeat call with
// identical parameters is a no-op returning the existing pool; a repeat
// call with a different range or initial price fails with ErrParamMismatch.
func (r *Registry) CreateAndInitializePoolIfNecessary(params CreateParams) (*amm.Pool, error) {
	if bytes.Compare(params.Token0.Bytes(), params.Token1.Bytes()) >= 0 {
		return nil, fmt.Errorf("%s / %s: %w", params.Token0.Hex(), params.Token1.Hex(), ErrTokenOrder)
	}
	if params.SqrtPriceX96 == nil || params.SqrtPriceX96.IsZero() {
		return nil, fmt.Errorf("initial price: %w", amm.ErrZeroAmount)
	}

	key := poolKey{token0: params.Token0, token1: params.Token1, fee: params.Fee}
	if existing, ok := r.byKey[key]; ok {
		if existing.pool.TickLower() != params.TickLower ||
			existing.pool.TickUpper() != params.TickUpper ||
			!existing.initialPrice.Eq(params.SqrtPriceX96) {
			return nil, fmt.Errorf("pool %s: %w", existing.pool.Address().Hex(), ErrParamMismatch)
		}
		return existing.pool, nil
	}

	ledger0, err := r.bank.Token(params.Token0)
	if err != nil {
		return nil, fmt.Errorf("token0 ledger: %w", err)
	}
	ledger1, err := r.bank.Token(params.Token1)
	if err != nil {
		return nil, fmt.Errorf("token1 ledger: %w", err)
	}

	pool, err := amm.NewPool(amm.Config{
		Address:   PoolAddress(params.Token0, params.Token1, params.Fee),
		Token0:    params.Token0,
		Token1:    params.Token1,
		Fee:       params.Fee,
		TickLower: params.TickLower,
		TickUpper: params.TickUpper,
		Ledger0:   ledger0,
		Ledger1:   ledger1,
	})
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Initialize(params.SqrtPriceX96); err != nil {
		return nil, fmt.Errorf("initialize pool: %w", err)
	}

	// The creation record is how external callers learn the pool address,
	// so it must land before the pool becomes resolvable: a failed append
	// leaves the registry untouched and the caller free to retry.
	if r.journal != nil {
		record := model.Event{
			EventName: model.EventPoolCreated,
			Pool:      pool.Address().Hex(),
			Data: model.PoolCreatedData{
				Token0:       params.Token0.Hex(),
				Token1:       params.Token1.Hex(),
				Fee:          params.Fee,
				TickLower:    params.TickLower,
				TickUpper:    params.TickUpper,
				SqrtPriceX96: params.SqrtPriceX96.Dec(),
				Pool:         pool.Address().Hex(),
			},
		}
		if err := r.journal.AppendEvents([]model.Event{record}); err != nil {
			return nil, fmt.Errorf("journal pool creation: %w", err)
		}
	}

	pair := Pair{Token0: params.Token0, Token1: params.Token1}
	if _, seen := r.byPair[pair]; !seen {
		r.pairs = append(r.pairs, pair)
	}
	r.byKey[key] = &entry{pool: pool, initialPrice: params.SqrtPriceX96.Clone()}
	r.byPair[pair] = append(r.byPair[pair], pool)
	r.pools = append(r.pools, pool)

	return pool, nil
}

// Pairs returns the distinct asset pairs in first-seen order.
func (r *Registry) Pairs() []Pair {
	out := make([]Pair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// AllPools returns descriptors for every pool in creation order.
func (r *Registry) AllPools() []PoolInfo {
	out := make([]PoolInfo, 0, len(r.pools))
	for _, pool := range r.pools {
		out = append(out, PoolInfo{
			Address:      pool.Address(),
			Token0:       pool.Token0(),
			Token1:       pool.Token1(),
			Fee:          pool.Fee(),
			TickLower:    pool.TickLower(),
			TickUpper:    pool.TickUpper(),
			SqrtPriceX96: pool.SqrtPriceX96(),
			Liquidity:    pool.Liquidity(),
		})
	}
	return out
}

// Pools returns the live pool instances in creation order.
func (r *Registry) Pools() []*amm.Pool {
	out := make([]*amm.Pool, len(r.pools))
	copy(out, r.pools)
	return out
}

// Pool returns the pool for an exact (token0, token1, fee) key.
func (r *Registry) Pool(token0, token1 common.Address, fee uint32) (*amm.Pool, error) {
	existing, ok := r.byKey[poolKey{token0: token0, token1: token1, fee: fee}]
	if !ok {
		return nil, fmt.Errorf("%s/%s fee %d: %w", token0.Hex(), token1.Hex(), fee, ErrUnknownPool)
	}
	return existing.pool, nil
}

// PoolAt returns the index-th pool created for a pair.
func (r *Registry) PoolAt(token0, token1 common.Address, index int) (*amm.Pool, error) {
	pools := r.byPair[Pair{Token0: token0, Token1: token1}]
	if index < 0 || index >= len(pools) {
		return nil, fmt.Errorf("%s/%s index %d: %w", token0.Hex(), token1.Hex(), index, ErrUnknownPool)
	}
	return pools[index], nil
}

// PoolAddress derives the deterministic address of a pool from its key.
func PoolAddress(token0, token1 common.Address, fee uint32) common.Address {
	feeBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(feeBytes, fee)
	hash := crypto.Keccak256(token0.Bytes(), token1.Bytes(), feeBytes)
	return common.BytesToAddress(hash[12:])
}
