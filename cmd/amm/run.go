package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rangeswap/internal/config"
	"rangeswap/internal/ledger"
	"rangeswap/internal/model"
	"rangeswap/internal/registry"
	"rangeswap/internal/storage"
	"rangeswap/internal/storage/postgres"
	"rangeswap/internal/vault"
)

// vaultAddress is the synthetic account the position vault spends
// allowances from.
var vaultAddress = common.HexToAddress("0x00000000000000000000000000000000000000a1")

// scriptOp is one line of the scenario script.
type scriptOp struct {
	Op string `json:"op"`

	Token  string `json:"token,omitempty"`
	Token0 string `json:"token0,omitempty"`
	Token1 string `json:"token1,omitempty"`

	Fee          uint32 `json:"fee,omitempty"`
	TickLower    int    `json:"tick_lower,omitempty"`
	TickUpper    int    `json:"tick_upper,omitempty"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`

	Caller    string `json:"caller,omitempty"`
	To        string `json:"to,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Spender   string `json:"spender,omitempty"`
	Amount    string `json:"amount,omitempty"`

	Index          int    `json:"index,omitempty"`
	Amount0Desired string `json:"amount0_desired,omitempty"`
	Amount1Desired string `json:"amount1_desired,omitempty"`
	Deadline       int64  `json:"deadline,omitempty"`
	TokenID        uint64 `json:"token_id,omitempty"`

	AmountSpecified   string `json:"amount_specified,omitempty"`
	SqrtPriceLimitX96 string `json:"sqrt_price_limit_x96,omitempty"`
	ZeroForOne        bool   `json:"zero_for_one,omitempty"`
}

// executor applies script operations to one in-memory system instance.
type executor struct {
	bank    *ledger.Bank
	reg     *registry.Registry
	vault   *vault.Vault
	journal *storage.MemoryJournal
	logger  *zap.Logger
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Script == "" {
		return fmt.Errorf("script path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bank := ledger.NewBank()
	journal := storage.NewMemoryJournal()
	reg := registry.NewRegistry(bank, journal)
	positionVault := vault.NewVault(vaultAddress, reg, bank, ledger.NewStakeLedger())

	exec := &executor{
		bank:    bank,
		reg:     reg,
		vault:   positionVault,
		journal: journal,
		logger:  logger,
	}

	scriptFile, err := os.Open(cfg.Script)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer scriptFile.Close()

	logger.Info("run start",
		zap.String("script", cfg.Script),
		zap.String("out", cfg.Out),
		zap.String("snapshots", cfg.Snapshots),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	scanner := bufio.NewScanner(scriptFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var op scriptOp
		if err := json.Unmarshal(line, &op); err != nil {
			return fmt.Errorf("parse op %d: %w", total, err)
		}
		if err := exec.apply(op); err != nil {
			return fmt.Errorf("op %d (%s): %w", total, op.Op, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan script: %w", err)
	}

	events := journal.Events()
	if err := storage.NewJsonlJournal(cfg.Out).AppendEvents(events); err != nil {
		return err
	}

	snapshots := snapshotPools(reg)
	if err := writeSnapshots(cfg.Snapshots, snapshots); err != nil {
		return err
	}

	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.UpsertPoolSnapshots(ctx, snapshots); err != nil {
			return fmt.Errorf("upsert snapshots: %w", err)
		}
		if err := store.InsertEvents(ctx, events); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}

	logger.Info("run complete",
		zap.Int("ops", total),
		zap.Int("events", len(events)),
		zap.Int("pools", len(snapshots)),
	)

	return nil
}

func (e *executor) apply(op scriptOp) error {
	switch op.Op {
	case "create-pool":
		token0, err := parseAddress(op.Token0)
		if err != nil {
			return err
		}
		token1, err := parseAddress(op.Token1)
		if err != nil {
			return err
		}
		sqrtPrice, err := parseAmount(op.SqrtPriceX96)
		if err != nil {
			return err
		}
		e.bank.Ensure(token0)
		e.bank.Ensure(token1)
		pool, err := e.reg.CreateAndInitializePoolIfNecessary(registry.CreateParams{
			Token0:       token0,
			Token1:       token1,
			Fee:          op.Fee,
			TickLower:    op.TickLower,
			TickUpper:    op.TickUpper,
			SqrtPriceX96: sqrtPrice,
		})
		if err != nil {
			return err
		}
		e.logger.Info("pool ready", zap.String("pool", pool.Address().Hex()), zap.Uint32("fee", op.Fee))
		return nil

	case "fund":
		token, err := parseAddress(op.Token)
		if err != nil {
			return err
		}
		to, err := parseAddress(op.To)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		e.bank.Ensure(token).Mint(to, amount)
		return nil

	case "approve":
		token, err := parseAddress(op.Token)
		if err != nil {
			return err
		}
		caller, err := parseAddress(op.Caller)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		spender := vaultAddress
		if op.Spender != "" {
			if spender, err = parseAddress(op.Spender); err != nil {
				return err
			}
		}
		ledgerToken, err := e.bank.Token(token)
		if err != nil {
			return err
		}
		ledgerToken.Approve(caller, spender, amount)
		return nil

	case "mint":
		return e.applyMint(op)

	case "burn":
		return e.applyBurn(op)

	case "collect":
		return e.applyCollect(op)

	case "swap":
		return e.applySwap(op)

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

func (e *executor) applyMint(op scriptOp) error {
	token0, err := parseAddress(op.Token0)
	if err != nil {
		return err
	}
	token1, err := parseAddress(op.Token1)
	if err != nil {
		return err
	}
	caller, err := parseAddress(op.Caller)
	if err != nil {
		return err
	}
	recipient, err := parseAddress(op.Recipient)
	if err != nil {
		return err
	}
	amount0Desired, err := parseAmount(op.Amount0Desired)
	if err != nil {
		return err
	}
	amount1Desired, err := parseAmount(op.Amount1Desired)
	if err != nil {
		return err
	}

	tokenID, liquidity, amount0, amount1, err := e.vault.Mint(caller, vault.MintParams{
		Token0:         token0,
		Token1:         token1,
		Index:          op.Index,
		Recipient:      recipient,
		Amount0Desired: amount0Desired,
		Amount1Desired: amount1Desired,
		Deadline:       op.Deadline,
	})
	if err != nil {
		return err
	}

	pool, err := e.reg.PoolAt(token0, token1, op.Index)
	if err != nil {
		return err
	}
	e.record(model.Event{
		EventName: model.EventMint,
		Pool:      pool.Address().Hex(),
		Data: model.MintEventData{
			Owner:     recipient.Hex(),
			Liquidity: liquidity.Dec(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
		},
	})
	e.logger.Info("minted stake",
		zap.Uint64("token_id", tokenID),
		zap.String("liquidity", liquidity.Dec()),
	)
	return nil
}

func (e *executor) applyBurn(op scriptOp) error {
	caller, err := parseAddress(op.Caller)
	if err != nil {
		return err
	}
	liquidity, err := e.vault.Liquidity(op.TokenID)
	if err != nil {
		return err
	}
	amount0, amount1, err := e.vault.Burn(caller, op.TokenID)
	if err != nil {
		return err
	}
	e.record(model.Event{
		EventName: model.EventBurn,
		Data: model.BurnEventData{
			Owner:     caller.Hex(),
			Liquidity: liquidity.Dec(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
		},
	})
	return nil
}

func (e *executor) applyCollect(op scriptOp) error {
	caller, err := parseAddress(op.Caller)
	if err != nil {
		return err
	}
	recipient, err := parseAddress(op.Recipient)
	if err != nil {
		return err
	}
	amount0, amount1, err := e.vault.Collect(caller, op.TokenID, recipient)
	if err != nil {
		return err
	}
	e.record(model.Event{
		EventName: model.EventCollect,
		Data: model.CollectEventData{
			Owner:     caller.Hex(),
			Recipient: recipient.Hex(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
		},
	})
	return nil
}

func (e *executor) applySwap(op scriptOp) error {
	token0, err := parseAddress(op.Token0)
	if err != nil {
		return err
	}
	token1, err := parseAddress(op.Token1)
	if err != nil {
		return err
	}
	caller, err := parseAddress(op.Caller)
	if err != nil {
		return err
	}
	recipient := caller
	if op.Recipient != "" {
		if recipient, err = parseAddress(op.Recipient); err != nil {
			return err
		}
	}
	amountSpecified, err := parseAmount(op.AmountSpecified)
	if err != nil {
		return err
	}
	limit, err := parseAmount(op.SqrtPriceLimitX96)
	if err != nil {
		return err
	}
	pool, err := e.reg.PoolAt(token0, token1, op.Index)
	if err != nil {
		return err
	}

	inToken, err := e.bank.Token(pool.Token0())
	if err != nil {
		return err
	}
	if !op.ZeroForOne {
		if inToken, err = e.bank.Token(pool.Token1()); err != nil {
			return err
		}
	}
	pay := func(amount0, amount1 *uint256.Int) error {
		amount := amount0
		if !op.ZeroForOne {
			amount = amount1
		}
		return inToken.Transfer(caller, pool.Address(), amount)
	}

	amountIn, amountOut, err := pool.Swap(recipient, amountSpecified, limit, op.ZeroForOne, pay)
	if err != nil {
		return err
	}
	e.record(model.Event{
		EventName: model.EventSwap,
		Pool:      pool.Address().Hex(),
		Data: model.SwapEventData{
			Recipient:    recipient.Hex(),
			ZeroForOne:   op.ZeroForOne,
			AmountIn:     amountIn.Dec(),
			AmountOut:    amountOut.Dec(),
			SqrtPriceX96: pool.SqrtPriceX96().Dec(),
			Liquidity:    pool.Liquidity().Dec(),
		},
	})
	return nil
}

func (e *executor) record(event model.Event) {
	// MemoryJournal never fails.
	_ = e.journal.AppendEvents([]model.Event{event})
}

func snapshotPools(reg *registry.Registry) []model.PoolSnapshot {
	pools := reg.Pools()
	snapshots := make([]model.PoolSnapshot, 0, len(pools))
	for _, pool := range pools {
		snapshots = append(snapshots, model.PoolSnapshot{
			Address:              pool.Address().Hex(),
			Token0:               pool.Token0().Hex(),
			Token1:               pool.Token1().Hex(),
			Fee:                  pool.Fee(),
			TickLower:            pool.TickLower(),
			TickUpper:            pool.TickUpper(),
			SqrtPriceX96:         pool.SqrtPriceX96().Dec(),
			Liquidity:            pool.Liquidity().Dec(),
			FeeGrowthGlobal0X128: pool.FeeGrowthGlobal0X128().Dec(),
			FeeGrowthGlobal1X128: pool.FeeGrowthGlobal1X128().Dec(),
		})
	}
	return snapshots
}

func writeSnapshots(path string, snapshots []model.PoolSnapshot) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshots dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshots file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, snapshot := range snapshots {
		line, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}
	return writer.Flush()
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address %q", input)
	}
	return common.HexToAddress(input), nil
}

func parseAmount(input string) (*uint256.Int, error) {
	if input == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	return amount, nil
}
