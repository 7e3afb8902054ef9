package feeoracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ordforge/ordforge/internal/chainindex"
)

const feeDoc = `{"fastestFee":12,"halfHourFee":8,"hourFee":5,"economyFee":2,"minimumFee":1}`

func feeServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecommendFromFirstEndpoint(t *testing.T) {
	srv := feeServer(t, feeDoc, http.StatusOK)
	o := New(Options{Endpoints: []string{srv.URL}, Floor: 1}, nil)

	rec := o.Recommend(context.Background())
	if rec.Fastest != 12 || rec.HalfHour != 8 || rec.Hour != 5 {
		t.Fatalf("unexpected tiers: %+v", rec)
	}
	if rec.Economy != 2 || rec.Minimum != 1 {
		t.Fatalf("unexpected low tiers: %+v", rec)
	}
}

func TestRecommendFallsBackAcrossEndpoints(t *testing.T) {
	bad := feeServer(t, "down", http.StatusInternalServerError)
	good := feeServer(t, feeDoc, http.StatusOK)
	o := New(Options{Endpoints: []string{bad.URL, good.URL}, Floor: 1}, nil)

	rec := o.Recommend(context.Background())
	if rec.Fastest != 12 {
		t.Fatalf("expected fallback endpoint recommendation, got %+v", rec)
	}
}

func TestRecommendFloorWhenAllFail(t *testing.T) {
	bad := feeServer(t, "down", http.StatusInternalServerError)
	o := New(Options{Endpoints: []string{bad.URL}, Floor: 2.5}, nil)

	rec := o.Recommend(context.Background())
	if rec.Fastest != 2.5 || rec.Minimum != 2.5 {
		t.Fatalf("expected floor on every tier, got %+v", rec)
	}
}

func TestRecommendClampsBelowFloor(t *testing.T) {
	srv := feeServer(t, `{"fastestFee":0.3,"halfHourFee":0.2,"hourFee":0.1,"economyFee":0.1,"minimumFee":0.1}`, http.StatusOK)
	o := New(Options{Endpoints: []string{srv.URL}, Floor: 0.5}, nil)

	rec := o.Recommend(context.Background())
	if rec.Fastest != 0.5 || rec.Minimum != 0.5 {
		t.Fatalf("expected tiers clamped to floor, got %+v", rec)
	}
}

func TestRecommendCachesAndInvalidates(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(feeDoc))
	}))
	defer srv.Close()

	o := New(Options{Endpoints: []string{srv.URL}, Floor: 1, CacheTTL: time.Minute}, nil)
	o.Recommend(context.Background())
	o.Recommend(context.Background())
	if hits != 1 {
		t.Fatalf("expected one upstream hit while cached, got %d", hits)
	}

	o.Invalidate()
	o.Recommend(context.Background())
	if hits != 2 {
		t.Fatalf("expected refetch after invalidate, got %d hits", hits)
	}
}

type fakeBlocks struct {
	stats []chainindex.BlockStats
	err   error
}

func (f *fakeBlocks) RecentBlocks(ctx context.Context, n int) ([]chainindex.BlockStats, error) {
	return f.stats, f.err
}

func TestHealthRatings(t *testing.T) {
	blocks := func(median float64) *fakeBlocks {
		return &fakeBlocks{stats: []chainindex.BlockStats{
			{Height: 1, MedianFee: median},
			{Height: 2, MedianFee: median},
			{Height: 3, MedianFee: median},
		}}
	}

	tests := []struct {
		name   string
		median float64
		want   Health
	}{
		{"good when fastest near median", 10, HealthGood},
		{"busy when fastest roughly double", 6, HealthBusy},
		{"congested when fastest far above", 2, HealthCongested},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := feeServer(t, feeDoc, http.StatusOK)
			o := New(Options{Endpoints: []string{srv.URL}, Floor: 1}, blocks(tt.median))
			if got := o.Health(context.Background()); got != tt.want {
				t.Fatalf("Health() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthUnknownWithoutTelemetry(t *testing.T) {
	srv := feeServer(t, feeDoc, http.StatusOK)

	o := New(Options{Endpoints: []string{srv.URL}, Floor: 1}, nil)
	if got := o.Health(context.Background()); got != HealthUnknown {
		t.Fatalf("Health() without block source = %q, want unknown", got)
	}

	o = New(Options{Endpoints: []string{srv.URL}, Floor: 1}, &fakeBlocks{err: context.DeadlineExceeded})
	if got := o.Health(context.Background()); got != HealthUnknown {
		t.Fatalf("Health() with failing block source = %q, want unknown", got)
	}
}
