package registry

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"rangeswap/internal/ledger"
	"rangeswap/internal/model"
	"rangeswap/internal/storage"
)

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	tokenC = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	priceX96 = uint256.MustFromDecimal("7922816251426433759354395033600")
)

func newTestRegistry() (*Registry, *storage.MemoryJournal) {
	bank := ledger.NewBank()
	bank.Register(ledger.NewToken(tokenA))
	bank.Register(ledger.NewToken(tokenB))
	bank.Register(ledger.NewToken(tokenC))
	journal := storage.NewMemoryJournal()
	return NewRegistry(bank, journal), journal
}

func baseParams() CreateParams {
	return CreateParams{
		Token0:       tokenA,
		Token1:       tokenB,
		Fee:          3000,
		TickLower:    0,
		TickUpper:    105971,
		SqrtPriceX96: priceX96,
	}
}

func TestCreatePool(t *testing.T) {
	reg, journal := newTestRegistry()

	pool, err := reg.CreateAndInitializePoolIfNecessary(baseParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pool.Token0() != tokenA || pool.Token1() != tokenB || pool.Fee() != 3000 {
		t.Fatalf("pool key: %s/%s fee %d", pool.Token0().Hex(), pool.Token1().Hex(), pool.Fee())
	}
	if !pool.SqrtPriceX96().Eq(priceX96) {
		t.Fatalf("initial price: %s", pool.SqrtPriceX96().Dec())
	}
	if pool.Address() != PoolAddress(tokenA, tokenB, 3000) {
		t.Fatalf("pool address not derived from key")
	}

	records := journal.Events()
	if len(records) != 1 || records[0].EventName != model.EventPoolCreated {
		t.Fatalf("creation record: %+v", records)
	}
}

type failingJournal struct{}

func (failingJournal) AppendEvents([]model.Event) error {
	return errors.New("journal unavailable")
}

func TestCreatePoolJournalFailure(t *testing.T) {
	bank := ledger.NewBank()
	bank.Register(ledger.NewToken(tokenA))
	bank.Register(ledger.NewToken(tokenB))
	reg := NewRegistry(bank, failingJournal{})

	if _, err := reg.CreateAndInitializePoolIfNecessary(baseParams()); err == nil {
		t.Fatalf("create succeeded without a creation record")
	}

	// The failed create must not register anything: a retry has to go
	// through the full creation path so the record gets another chance.
	if got := len(reg.Pools()); got != 0 {
		t.Fatalf("failed create left %d pool(s) registered", got)
	}
	if got := len(reg.Pairs()); got != 0 {
		t.Fatalf("failed create left %d pair(s) registered", got)
	}
	if _, err := reg.Pool(tokenA, tokenB, 3000); !errors.Is(err, ErrUnknownPool) {
		t.Fatalf("failed create is resolvable: %v", err)
	}
}

func TestCreatePoolDedup(t *testing.T) {
	reg, journal := newTestRegistry()

	first, err := reg.CreateAndInitializePoolIfNecessary(baseParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := reg.CreateAndInitializePoolIfNecessary(baseParams())
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}
	if first != second {
		t.Fatalf("dedup returned a new instance")
	}
	if len(reg.Pools()) != 1 || len(reg.Pairs()) != 1 {
		t.Fatalf("pool count %d, pair count %d", len(reg.Pools()), len(reg.Pairs()))
	}
	if len(journal.Events()) != 1 {
		t.Fatalf("repeat create journaled again")
	}
}

func TestCreatePoolParamMismatch(t *testing.T) {
	reg, _ := newTestRegistry()
	if _, err := reg.CreateAndInitializePoolIfNecessary(baseParams()); err != nil {
		t.Fatalf("create: %v", err)
	}

	shifted := baseParams()
	shifted.TickUpper = 200000
	if _, err := reg.CreateAndInitializePoolIfNecessary(shifted); !errors.Is(err, ErrParamMismatch) {
		t.Fatalf("range mismatch: %v", err)
	}

	repriced := baseParams()
	repriced.SqrtPriceX96 = new(uint256.Int).AddUint64(priceX96, 1)
	if _, err := reg.CreateAndInitializePoolIfNecessary(repriced); !errors.Is(err, ErrParamMismatch) {
		t.Fatalf("price mismatch: %v", err)
	}
}

func TestCreatePoolTokenOrder(t *testing.T) {
	reg, _ := newTestRegistry()

	reversed := baseParams()
	reversed.Token0, reversed.Token1 = tokenB, tokenA
	if _, err := reg.CreateAndInitializePoolIfNecessary(reversed); !errors.Is(err, ErrTokenOrder) {
		t.Fatalf("reversed pair: %v", err)
	}

	identical := baseParams()
	identical.Token1 = tokenA
	if _, err := reg.CreateAndInitializePoolIfNecessary(identical); !errors.Is(err, ErrTokenOrder) {
		t.Fatalf("identical pair: %v", err)
	}
}

func TestLookups(t *testing.T) {
	reg, _ := newTestRegistry()

	ab3000, err := reg.CreateAndInitializePoolIfNecessary(baseParams())
	if err != nil {
		t.Fatalf("create ab/3000: %v", err)
	}
	ab500Params := baseParams()
	ab500Params.Fee = 500
	ab500, err := reg.CreateAndInitializePoolIfNecessary(ab500Params)
	if err != nil {
		t.Fatalf("create ab/500: %v", err)
	}
	bcParams := baseParams()
	bcParams.Token0, bcParams.Token1 = tokenB, tokenC
	if _, err := reg.CreateAndInitializePoolIfNecessary(bcParams); err != nil {
		t.Fatalf("create bc: %v", err)
	}

	pairs := reg.Pairs()
	if len(pairs) != 2 || pairs[0].Token0 != tokenA || pairs[1].Token0 != tokenB {
		t.Fatalf("pairs not in first-seen order: %+v", pairs)
	}

	got, err := reg.Pool(tokenA, tokenB, 500)
	if err != nil || got != ab500 {
		t.Fatalf("exact lookup: %v", err)
	}
	if _, err := reg.Pool(tokenA, tokenB, 10000); !errors.Is(err, ErrUnknownPool) {
		t.Fatalf("missing fee tier: %v", err)
	}

	got, err = reg.PoolAt(tokenA, tokenB, 0)
	if err != nil || got != ab3000 {
		t.Fatalf("index 0: %v", err)
	}
	got, err = reg.PoolAt(tokenA, tokenB, 1)
	if err != nil || got != ab500 {
		t.Fatalf("index 1: %v", err)
	}
	if _, err := reg.PoolAt(tokenA, tokenB, 2); !errors.Is(err, ErrUnknownPool) {
		t.Fatalf("index out of range: %v", err)
	}

	infos := reg.AllPools()
	if len(infos) != 3 || infos[0].Address != ab3000.Address() {
		t.Fatalf("descriptors: %+v", infos)
	}
}

func TestPoolAddressDeterministic(t *testing.T) {
	first := PoolAddress(tokenA, tokenB, 3000)
	if first != PoolAddress(tokenA, tokenB, 3000) {
		t.Fatalf("address not stable")
	}
	if first == PoolAddress(tokenA, tokenB, 500) {
		t.Fatalf("fee tier not part of the address")
	}
	if first == PoolAddress(tokenA, tokenC, 3000) {
		t.Fatalf("pair not part of the address")
	}
}
