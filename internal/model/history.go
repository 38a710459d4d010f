package model

import "time"

// TokenHistory carries the externally supplied series used for trending:
// current and previous prices, volumes and swap counts per token.
type TokenHistory struct {
	TokenID          string `json:"token_id"`
	CurrentPrice     string `json:"current_price"`
	PricePrev24h     string `json:"price_prev_24h"`
	PricePrev7d      string `json:"price_prev_7d"`
	VolumeCurrent24h string `json:"volume_current_24h"`
	VolumePrev24h    string `json:"volume_prev_24h"`
	SwapsCurrent     uint64 `json:"swaps_current"`
	SwapsPrev        uint64 `json:"swaps_prev"`
}

// TrendingScore is the computed momentum score for a token.
type TrendingScore struct {
	TokenID        string    `json:"token_id"`
	VolumeChange   float64   `json:"volume_change"`
	PriceChange24h float64   `json:"price_change_24h"`
	PriceChange7d  float64   `json:"price_change_7d"`
	TradeChange    float64   `json:"trade_change"`
	Score          float64   `json:"score"`
	ComputedAt     time.Time `json:"computed_at"`
}
