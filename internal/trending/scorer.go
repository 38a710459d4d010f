package trending

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"valuationScope/internal/model"
)

const (
	// Floors keep near-dead denominators from exploding the ratios.
	minVolumeFloor = 100.0
	minTradeFloor  = 10.0

	weightVolume = 0.4
	weightPrice  = 0.4
	weightTrades = 0.2

	// logSentinel substitutes log of a non-positive change so decline is
	// penalized deterministically without a domain error.
	logSentinel = -10.0
)

// Scorer computes trading-momentum scores from historical series.
type Scorer struct {
	logger *zap.Logger
}

func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger}
}

// Score computes the momentum score for one token's history. The score is a
// ranking signal with no natural bound.
func (s *Scorer) Score(history model.TokenHistory, now time.Time) (model.TrendingScore, error) {
	currentVolume, err := parseSeries(history.VolumeCurrent24h)
	if err != nil {
		return model.TrendingScore{}, fmt.Errorf("token %s current volume: %w", history.TokenID, err)
	}
	previousVolume, err := parseSeries(history.VolumePrev24h)
	if err != nil {
		return model.TrendingScore{}, fmt.Errorf("token %s previous volume: %w", history.TokenID, err)
	}
	currentPrice, err := parseSeries(history.CurrentPrice)
	if err != nil {
		return model.TrendingScore{}, fmt.Errorf("token %s current price: %w", history.TokenID, err)
	}
	price24h, err := parseSeries(history.PricePrev24h)
	if err != nil {
		return model.TrendingScore{}, fmt.Errorf("token %s 24h price: %w", history.TokenID, err)
	}
	price7d, err := parseSeries(history.PricePrev7d)
	if err != nil {
		return model.TrendingScore{}, fmt.Errorf("token %s 7d price: %w", history.TokenID, err)
	}

	volumeChange := 0.0
	if currentVolume > 0 {
		volumeChange = currentVolume / math.Max(previousVolume, minVolumeFloor)
	}
	tradeChange := float64(history.SwapsCurrent) / math.Max(float64(history.SwapsPrev), minTradeFloor)

	score := weightVolume*safeLog(volumeChange) +
		weightPrice*safeLog(priceChange(currentPrice, price24h)) +
		weightTrades*safeLog(tradeChange)

	return model.TrendingScore{
		TokenID:        history.TokenID,
		VolumeChange:   volumeChange,
		PriceChange24h: priceChange(currentPrice, price24h),
		PriceChange7d:  priceChange(currentPrice, price7d),
		TradeChange:    tradeChange,
		Score:          score,
		ComputedAt:     now.UTC(),
	}, nil
}

// ScoreAll scores every history row, skipping rows that fail to parse so one
// bad series cannot block the rest.
func (s *Scorer) ScoreAll(histories []model.TokenHistory, now time.Time) []model.TrendingScore {
	scores := make([]model.TrendingScore, 0, len(histories))
	for _, history := range histories {
		score, err := s.Score(history, now)
		if err != nil {
			s.logger.Warn("score token", zap.String("token", history.TokenID), zap.Error(err))
			continue
		}
		scores = append(scores, score)
	}
	return scores
}

func priceChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return current / previous
}

func safeLog(change float64) float64 {
	if change <= 0 {
		return logSentinel
	}
	result := math.Log(change)
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return logSentinel
	}
	return result
}

func parseSeries(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	f, _ := parsed.Float64()
	return f, nil
}
