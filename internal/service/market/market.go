// Package market loads OHLCV history from Yahoo Finance, Binance or Finnhub.
package market

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	"TurtleDesk/pkg/config"
	xhttp "TurtleDesk/pkg/http"
)

const userAgent = "Mozilla/5.0 (compatible; TurtleDesk/1.0)"

// New builds the provider named in market.provider.
func New(c *config.Config) (domrepo.MarketData, error) {
	cfg := c.Market
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent(userAgent))

	switch strings.ToLower(cfg.Provider) {
	case "", "yahoo":
		return NewYahoo(client, cfg.YahooURL), nil
	case "binance":
		return NewBinance(cfg.APIKey, cfg.APISecret, ""), nil
	case "finnhub":
		return NewFinnhub(client, cfg.FinnhubURL, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.Provider)
	}
}

// finalize sorts candles by time, drops incomplete rows and keeps those at or after from.
func finalize(candles []models.Candle, from time.Time) ([]models.Candle, error) {
	out := candles[:0]
	for _, c := range candles {
		if c.Close <= 0 || c.High <= 0 || c.Low <= 0 {
			continue
		}
		if !from.IsZero() && c.Time.Before(from) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, models.ErrNoData
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
