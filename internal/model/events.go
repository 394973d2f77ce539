package model

// Event is a journaled state transition of one pool, with a typed payload.
type Event struct {
	EventName string      `json:"event_name"`
	Pool      string      `json:"pool"`
	Data      interface{} `json:"data"`
}

// Event names used in journals.
const (
	EventPoolCreated = "PoolCreated"
	EventMint        = "Mint"
	EventBurn        = "Burn"
	EventCollect     = "Collect"
	EventSwap        = "Swap"
)

// PoolCreatedData records a new pool instance. Cross-service callers read
// the pool address from this record.
type PoolCreatedData struct {
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Fee          uint32 `json:"fee"`
	TickLower    int    `json:"tick_lower"`
	TickUpper    int    `json:"tick_upper"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Pool         string `json:"pool"`
}

// MintEventData records a liquidity deposit.
type MintEventData struct {
	Owner     string `json:"owner"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData records a liquidity withdrawal into owed balances.
type BurnEventData struct {
	Owner     string `json:"owner"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectEventData records an owed-balance payout.
type CollectEventData struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// SwapEventData records a trade and the resulting pool state.
type SwapEventData struct {
	Recipient    string `json:"recipient"`
	ZeroForOne   bool   `json:"zero_for_one"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
}
