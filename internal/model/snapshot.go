package model

// PoolSnapshot is the full serializable state of one pool for storage.
type PoolSnapshot struct {
	Address              string `json:"address"`
	Token0               string `json:"token0"`
	Token1               string `json:"token1"`
	Fee                  uint32 `json:"fee"`
	TickLower            int    `json:"tick_lower"`
	TickUpper            int    `json:"tick_upper"`
	SqrtPriceX96         string `json:"sqrt_price_x96"`
	Liquidity            string `json:"liquidity"`
	FeeGrowthGlobal0X128 string `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string `json:"fee_growth_global1_x128"`
}
