package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carlyzach/houserank/internal/enrich"
)

// --- モック定義 ---

type mockHouseLister struct {
	zpids []string
	err   error

	mu        sync.Mutex
	olderThan time.Time
	limit     int
}

func (m *mockHouseLister) ListStaleZpids(_ context.Context, olderThan time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	m.olderThan = olderThan
	m.limit = limit
	m.mu.Unlock()
	return m.zpids, m.err
}

type mockResolver struct {
	failZpids map[string]bool

	calls      atomic.Int64
	concurrent atomic.Int64
	maxSeen    atomic.Int64
}

func (m *mockResolver) Resolve(_ context.Context, zpid string) (*enrich.Resolved, error) {
	m.calls.Add(1)

	// 並列度の観測
	cur := m.concurrent.Add(1)
	for {
		max := m.maxSeen.Load()
		if cur <= max || m.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	m.concurrent.Add(-1)

	if m.failZpids[zpid] {
		return nil, errors.New("upstream unavailable")
	}
	return &enrich.Resolved{Zpid: zpid}, nil
}

type mockMetrics struct {
	success atomic.Int64
	failure atomic.Int64
}

func (m *mockMetrics) RecordRefreshSuccess() { m.success.Add(1) }
func (m *mockMetrics) RecordRefreshFailure() { m.failure.Add(1) }

func newTestScheduler(lister *mockHouseLister, resolver *mockResolver, metrics *mockMetrics, cfg Config) *Scheduler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewScheduler(lister, resolver, metrics, logger, cfg)
}

func TestRunOnce_RefreshesAllStaleHouses(t *testing.T) {
	lister := &mockHouseLister{zpids: []string{"1", "2", "3"}}
	resolver := &mockResolver{}
	metrics := &mockMetrics{}
	s := newTestScheduler(lister, resolver, metrics, Config{
		Staleness: 24 * time.Hour, BatchSize: 20, MaxConcurrency: 2,
	})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if got := resolver.calls.Load(); got != 3 {
		t.Errorf("Resolve呼び出し回数 = %d, want 3", got)
	}
	if got := metrics.success.Load(); got != 3 {
		t.Errorf("成功メトリクス = %d, want 3", got)
	}
	if lister.limit != 20 {
		t.Errorf("limit = %d, want 20", lister.limit)
	}
}

func TestRunOnce_StalenessWindowApplied(t *testing.T) {
	lister := &mockHouseLister{}
	s := newTestScheduler(lister, &mockResolver{}, &mockMetrics{}, Config{
		Staleness: 48 * time.Hour, BatchSize: 10, MaxConcurrency: 1,
	})
	fixed := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	want := fixed.Add(-48 * time.Hour)
	if !lister.olderThan.Equal(want) {
		t.Errorf("olderThan = %v, want %v", lister.olderThan, want)
	}
}

func TestRunOnce_PartialFailureContinues(t *testing.T) {
	lister := &mockHouseLister{zpids: []string{"1", "2", "3"}}
	resolver := &mockResolver{failZpids: map[string]bool{"2": true}}
	metrics := &mockMetrics{}
	s := newTestScheduler(lister, resolver, metrics, Config{
		Staleness: 24 * time.Hour, BatchSize: 20, MaxConcurrency: 2,
	})

	// 個々の失敗はRunOnceのエラーにならない
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if got := metrics.success.Load(); got != 2 {
		t.Errorf("成功メトリクス = %d, want 2", got)
	}
	if got := metrics.failure.Load(); got != 1 {
		t.Errorf("失敗メトリクス = %d, want 1", got)
	}
}

func TestRunOnce_ListerErrorPropagates(t *testing.T) {
	lister := &mockHouseLister{err: errors.New("db down")}
	s := newTestScheduler(lister, &mockResolver{}, &mockMetrics{}, Config{})

	if err := s.RunOnce(context.Background()); err == nil {
		t.Error("リスト取得エラーが伝播しなかった")
	}
}

func TestRunOnce_ConcurrencyBounded(t *testing.T) {
	zpids := make([]string, 12)
	for i := range zpids {
		zpids[i] = string(rune('a' + i))
	}
	lister := &mockHouseLister{zpids: zpids}
	resolver := &mockResolver{}
	s := newTestScheduler(lister, resolver, &mockMetrics{}, Config{
		Staleness: 24 * time.Hour, BatchSize: 20, MaxConcurrency: 3,
	})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if got := resolver.maxSeen.Load(); got > 3 {
		t.Errorf("並列度の最大観測値 = %d, want <= 3", got)
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	lister := &mockHouseLister{}
	s := newTestScheduler(lister, &mockResolver{}, &mockMetrics{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("コンテキストキャンセル後にStartが終了しなかった")
	}
}

func TestNewScheduler_AppliesDefaults(t *testing.T) {
	s := newTestScheduler(&mockHouseLister{}, &mockResolver{}, &mockMetrics{}, Config{})

	if s.cfg.Staleness != 24*time.Hour {
		t.Errorf("Staleness = %v, want 24h", s.cfg.Staleness)
	}
	if s.cfg.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", s.cfg.BatchSize)
	}
	if s.cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", s.cfg.MaxConcurrency)
	}
}
