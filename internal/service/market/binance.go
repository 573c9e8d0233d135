package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	"TurtleDesk/pkg/util"

	"github.com/adshao/go-binance/v2"
)

const binanceKlineLimit = 1000

// Binance reads spot klines, for crypto pairs such as BTCUSDT.
type Binance struct {
	client *binance.Client
	now    func() time.Time
}

// NewBinance creates a kline reader. baseURL overrides the API host when set.
func NewBinance(apiKey, apiSecret, baseURL string) *Binance {
	c := binance.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	return &Binance{client: c, now: time.Now}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error) {
	now := b.now()
	from, err := util.ParsePeriod(period, now)
	if err != nil {
		return nil, err
	}
	iv, err := binanceInterval(interval)
	if err != nil {
		return nil, err
	}

	var candles []models.Candle
	start := from.UnixMilli()
	for {
		klines, err := b.client.NewKlinesService().
			Symbol(strings.ReplaceAll(symbol, "-", "")).
			Interval(iv).
			StartTime(start).
			EndTime(now.UnixMilli()).
			Limit(binanceKlineLimit).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
		}
		for _, k := range klines {
			candles = append(candles, models.Candle{
				Time:   time.UnixMilli(k.OpenTime).UTC(),
				Open:   parseFloat(k.Open),
				High:   parseFloat(k.High),
				Low:    parseFloat(k.Low),
				Close:  parseFloat(k.Close),
				Volume: parseFloat(k.Volume),
			})
		}
		if len(klines) < binanceKlineLimit {
			break
		}
		start = klines[len(klines)-1].CloseTime + 1
	}
	return finalize(candles, from)
}

func binanceInterval(interval string) (string, error) {
	switch interval {
	case "1m", "5m", "15m", "30m", "1h", "1d":
		return interval, nil
	case "1wk":
		return "1w", nil
	case "1mo":
		return "1M", nil
	}
	return "", fmt.Errorf("binance: unsupported interval %q", interval)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
