// Package feeoracle derives a recommended fee rate and a qualitative
// fee-environment rating from external telemetry.
package feeoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ordforge/ordforge/internal/chainindex"
	"github.com/ordforge/ordforge/internal/log"
)

// Recommended is a tiered fee-rate recommendation in sat/vB.
// Fractional rates below 1.0 are valid on quiet networks.
type Recommended struct {
	Fastest  float64 `json:"fastest"`
	HalfHour float64 `json:"half_hour"`
	Hour     float64 `json:"hour"`
	Economy  float64 `json:"economy"`
	Minimum  float64 `json:"minimum"`
}

// Health is a qualitative rating of the fee environment.
type Health string

const (
	HealthGood      Health = "good"
	HealthBusy      Health = "busy"
	HealthCongested Health = "congested"
	HealthUnknown   Health = "unknown"
)

// BlockSource supplies recent-block fee telemetry for health scoring.
type BlockSource interface {
	RecentBlocks(ctx context.Context, n int) ([]chainindex.BlockStats, error)
}

// Options configures an Oracle.
type Options struct {
	// Endpoints are fee-recommendation API URLs, tried in order.
	Endpoints []string
	// Floor is the fallback fee rate used when every endpoint fails,
	// and the lower bound applied to every recommendation tier.
	Floor float64
	// AttemptTimeout bounds each endpoint attempt. Zero means 5s.
	AttemptTimeout time.Duration
	// CacheTTL is how long a resolved recommendation is reused.
	// Zero means 60s.
	CacheTTL time.Duration
}

// Oracle resolves fee recommendations with ordered fallback across
// endpoints and caches the result. Construct one per engine; there is
// no package-level shared state, so tests can run independent
// instances.
type Oracle struct {
	endpoints      []string
	floor          float64
	attemptTimeout time.Duration
	cacheTTL       time.Duration
	http           *http.Client
	blocks         BlockSource
	logg           zerolog.Logger

	mu       sync.Mutex
	cached   *Recommended
	cachedAt time.Time
}

// New creates a fee oracle. blocks may be nil, in which case Health
// always reports unknown.
func New(opts Options, blocks BlockSource) *Oracle {
	if opts.Floor <= 0 {
		opts.Floor = 1
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}
	return &Oracle{
		endpoints:      opts.Endpoints,
		floor:          opts.Floor,
		attemptTimeout: opts.AttemptTimeout,
		cacheTTL:       opts.CacheTTL,
		http:           &http.Client{Timeout: opts.AttemptTimeout},
		blocks:         blocks,
		logg:           log.Oracle,
	}
}

// feeResponse is the recommendation document the fee APIs serve.
type feeResponse struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// Recommend returns the current recommendation, serving the cache when
// fresh and resolving through the endpoint list otherwise. It never
// fails: when every endpoint is down it returns the configured floor
// for every tier.
func (o *Oracle) Recommend(ctx context.Context) *Recommended {
	o.mu.Lock()
	if o.cached != nil && time.Since(o.cachedAt) < o.cacheTTL {
		rec := *o.cached
		o.mu.Unlock()
		return &rec
	}
	o.mu.Unlock()

	rec := o.resolve(ctx)

	o.mu.Lock()
	o.cached = rec
	o.cachedAt = time.Now()
	o.mu.Unlock()

	out := *rec
	return &out
}

// Invalidate discards the cached recommendation so the next Recommend
// resolves fresh.
func (o *Oracle) Invalidate() {
	o.mu.Lock()
	o.cached = nil
	o.mu.Unlock()
}

// resolve tries each endpoint in order with a per-attempt timeout and
// falls back to the floor when all fail.
func (o *Oracle) resolve(ctx context.Context) *Recommended {
	for _, ep := range o.endpoints {
		rec, err := o.fetch(ctx, ep)
		if err != nil {
			o.logg.Warn().Err(err).Str("endpoint", ep).Msg("fee endpoint failed, trying next")
			continue
		}
		return o.clamp(rec)
	}
	o.logg.Warn().Float64("floor", o.floor).Msg("all fee endpoints failed, using floor")
	return &Recommended{
		Fastest:  o.floor,
		HalfHour: o.floor,
		Hour:     o.floor,
		Economy:  o.floor,
		Minimum:  o.floor,
	}
}

func (o *Oracle) fetch(ctx context.Context, endpoint string) (*Recommended, error) {
	ctx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fee request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fee endpoint status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var fr feeResponse
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &Recommended{
		Fastest:  fr.FastestFee,
		HalfHour: fr.HalfHourFee,
		Hour:     fr.HourFee,
		Economy:  fr.EconomyFee,
		Minimum:  fr.MinimumFee,
	}, nil
}

// clamp raises every tier to at least the floor.
func (o *Oracle) clamp(rec *Recommended) *Recommended {
	for _, f := range []*float64{&rec.Fastest, &rec.HalfHour, &rec.Hour, &rec.Economy, &rec.Minimum} {
		if *f < o.floor {
			*f = o.floor
		}
	}
	return rec
}

// Health rates the fee environment by comparing the fastest
// recommendation against the median fee of recent blocks.
func (o *Oracle) Health(ctx context.Context) Health {
	if o.blocks == nil {
		return HealthUnknown
	}
	blocks, err := o.blocks.RecentBlocks(ctx, 6)
	if err != nil || len(blocks) == 0 {
		o.logg.Warn().Err(err).Msg("no recent-block telemetry for health rating")
		return HealthUnknown
	}

	fees := make([]float64, len(blocks))
	for i, b := range blocks {
		fees[i] = b.MedianFee
	}
	sort.Float64s(fees)
	median := fees[len(fees)/2]
	if median < o.floor {
		median = o.floor
	}

	fastest := o.Recommend(ctx).Fastest
	switch ratio := fastest / median; {
	case ratio < 1.5:
		return HealthGood
	case ratio < 3:
		return HealthBusy
	default:
		return HealthCongested
	}
}
