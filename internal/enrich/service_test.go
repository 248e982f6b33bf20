package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carlyzach/houserank/internal/model"
)

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// mockHouseRepo はHouseRepositoryのテスト用実装。
type mockHouseRepo struct {
	house      *model.House
	findErr    error
	persistErr error

	pricingWrites  []json.RawMessage
	propertyWrites []json.RawMessage
}

func (m *mockHouseRepo) FindByZpid(ctx context.Context, zpid string) (*model.House, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.house, nil
}

func (m *mockHouseRepo) EnsureByZpid(ctx context.Context, zpid string) (*model.House, error) {
	return m.house, nil
}

func (m *mockHouseRepo) UpdatePricing(ctx context.Context, zpid string, doc json.RawMessage, updatedAt time.Time) error {
	if m.persistErr != nil {
		return m.persistErr
	}
	m.pricingWrites = append(m.pricingWrites, doc)
	return nil
}

func (m *mockHouseRepo) UpdateProperty(ctx context.Context, zpid string, doc json.RawMessage, updatedAt time.Time) error {
	if m.persistErr != nil {
		return m.persistErr
	}
	m.propertyWrites = append(m.propertyWrites, doc)
	return nil
}

func (m *mockHouseRepo) ListStaleZpids(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	return nil, nil
}

// mockFetcher はFetcherのテスト用実装。
type mockFetcher struct {
	pricingDoc  json.RawMessage
	pricingErr  error
	propertyDoc json.RawMessage
	propertyErr error

	pricingCalls  atomic.Int64
	propertyCalls atomic.Int64
}

func (m *mockFetcher) Pricing(ctx context.Context, zpid string) (json.RawMessage, error) {
	m.pricingCalls.Add(1)
	return m.pricingDoc, m.pricingErr
}

func (m *mockFetcher) Property(ctx context.Context, zpid string) (json.RawMessage, error) {
	m.propertyCalls.Add(1)
	return m.propertyDoc, m.propertyErr
}

// markerSanitizer はサニタイズ結果を検証用マーカーで包む。
type markerSanitizer struct{}

func (markerSanitizer) Sanitize(raw string) string {
	return "sanitized:" + raw
}

var testConfig = Config{
	PricingTTL:     48 * time.Hour,
	PricingJitter:  120 * time.Minute,
	PropertyTTL:    24 * time.Hour,
	PropertyJitter: 120 * time.Minute,
}

func newTestService(repo *mockHouseRepo, fetcher *mockFetcher, now time.Time, jitter time.Duration) *Service {
	s := NewService(repo, fetcher, nil, nil, newTestLogger(), testConfig)
	s.now = func() time.Time { return now }
	s.jitter = func(max time.Duration) time.Duration { return jitter }
	return s
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPricing_CacheHit_NoUpstreamCall(t *testing.T) {
	// 1時間前に保存されたpricingはTTL(2日)内: キャッシュヒット
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{
		Zpid:             "100",
		PricingInfo:      json.RawMessage(`{"cached":true}`),
		PricingUpdatedAt: timePtr(now.Add(-1 * time.Hour)),
	}}
	fetcher := &mockFetcher{pricingDoc: json.RawMessage(`{"fresh":true}`)}
	s := newTestService(repo, fetcher, now, 0)

	doc, err := s.Pricing(context.Background(), "100")
	if err != nil {
		t.Fatalf("Pricing がエラーを返した: %v", err)
	}
	if string(doc) != `{"cached":true}` {
		t.Errorf("doc = %s, want キャッシュ値", string(doc))
	}
	if fetcher.pricingCalls.Load() != 0 {
		t.Errorf("アップストリーム呼び出し回数 = %d, want 0", fetcher.pricingCalls.Load())
	}
}

func TestPricing_StaleBeyondMaxJitter_Fetches(t *testing.T) {
	// 3日前の保存はジッター最大(120分)を足してもstale: 必ずミスになる
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{
		Zpid:             "100",
		PricingInfo:      json.RawMessage(`{"cached":true}`),
		PricingUpdatedAt: timePtr(now.Add(-72 * time.Hour)),
	}}
	fetcher := &mockFetcher{pricingDoc: json.RawMessage(`{"fresh":true}`)}
	s := newTestService(repo, fetcher, now, 120*time.Minute)

	doc, err := s.Pricing(context.Background(), "100")
	if err != nil {
		t.Fatalf("Pricing がエラーを返した: %v", err)
	}
	if string(doc) != `{"fresh":true}` {
		t.Errorf("doc = %s, want 取得結果", string(doc))
	}
	if fetcher.pricingCalls.Load() != 1 {
		t.Errorf("アップストリーム呼び出し回数 = %d, want 1", fetcher.pricingCalls.Load())
	}
	if len(repo.pricingWrites) != 1 {
		t.Errorf("保存回数 = %d, want 1", len(repo.pricingWrites))
	}
}

func TestPricing_NilBlob_IsMissEvenWithFreshTimestamp(t *testing.T) {
	// blobがnilならタイムスタンプが新しくてもミス扱い
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{
		Zpid:             "100",
		PricingUpdatedAt: timePtr(now.Add(-1 * time.Hour)),
	}}
	fetcher := &mockFetcher{pricingDoc: json.RawMessage(`{"fresh":true}`)}
	s := newTestService(repo, fetcher, now, 0)

	doc, err := s.Pricing(context.Background(), "100")
	if err != nil {
		t.Fatalf("Pricing がエラーを返した: %v", err)
	}
	if string(doc) != `{"fresh":true}` {
		t.Errorf("doc = %s, want 取得結果", string(doc))
	}
}

func TestPricing_CacheReadFailure_ImplicitMiss(t *testing.T) {
	// キャッシュ行の読み取り失敗は暗黙のミス: 伝播せずフェッチする
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{findErr: errors.New("house not found")}
	fetcher := &mockFetcher{pricingDoc: json.RawMessage(`{"fresh":true}`)}
	s := newTestService(repo, fetcher, now, 0)

	doc, err := s.Pricing(context.Background(), "100")
	if err != nil {
		t.Fatalf("読み取り失敗が伝播した: %v", err)
	}
	if string(doc) != `{"fresh":true}` {
		t.Errorf("doc = %s, want 取得結果", string(doc))
	}
}

func TestPricing_PersistFailure_Swallowed(t *testing.T) {
	// 保存失敗はログして握りつぶし、取得結果はそのまま返す
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{
		house:      &model.House{Zpid: "100"},
		persistErr: errors.New("db down"),
	}
	fetcher := &mockFetcher{pricingDoc: json.RawMessage(`{"fresh":true}`)}
	s := newTestService(repo, fetcher, now, 0)

	doc, err := s.Pricing(context.Background(), "100")
	if err != nil {
		t.Fatalf("保存失敗が伝播した: %v", err)
	}
	if string(doc) != `{"fresh":true}` {
		t.Errorf("doc = %s, want 取得結果", string(doc))
	}
}

func TestPricing_FetchFailure_FallsBackToStaleCache(t *testing.T) {
	// 取得失敗時、staleなキャッシュがあればそれへ縮退する
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{
		Zpid:             "100",
		PricingInfo:      json.RawMessage(`{"cached":true}`),
		PricingUpdatedAt: timePtr(now.Add(-30 * 24 * time.Hour)),
	}}
	fetcher := &mockFetcher{pricingErr: errors.New("upstream blocked")}
	s := newTestService(repo, fetcher, now, 0)

	doc, err := s.Pricing(context.Background(), "100")
	if err != nil {
		t.Fatalf("staleキャッシュがあるのにエラーが伝播した: %v", err)
	}
	if string(doc) != `{"cached":true}` {
		t.Errorf("doc = %s, want staleキャッシュ値", string(doc))
	}
}

func TestPricing_FetchFailure_NoCache_Propagates(t *testing.T) {
	// 縮退先が無ければ取得失敗は伝播する
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{Zpid: "100"}}
	fetcher := &mockFetcher{pricingErr: errors.New("upstream blocked")}
	s := newTestService(repo, fetcher, now, 0)

	if _, err := s.Pricing(context.Background(), "100"); err == nil {
		t.Fatal("縮退先が無いのにエラーが返らなかった")
	}
}

func TestProperty_SanitizesDescription(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{Zpid: "100"}}
	fetcher := &mockFetcher{propertyDoc: json.RawMessage(`{"description":"nice home","zpid":100}`)}
	s := NewService(repo, fetcher, markerSanitizer{}, nil, newTestLogger(), testConfig)
	s.now = func() time.Time { return now }
	s.jitter = func(max time.Duration) time.Duration { return 0 }

	doc, err := s.Property(context.Background(), "100")
	if err != nil {
		t.Fatalf("Property がエラーを返した: %v", err)
	}
	if !strings.Contains(string(doc), `"sanitized:nice home"`) {
		t.Errorf("doc = %s, descriptionがサニタイズされていない", string(doc))
	}
	if len(repo.propertyWrites) != 1 || !strings.Contains(string(repo.propertyWrites[0]), "sanitized:") {
		t.Errorf("保存されたドキュメントがサニタイズ済みでない: %v", repo.propertyWrites)
	}
}

func TestResolve_CombinesBothSubResources(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{
		Zpid:              "100",
		PricingInfo:       json.RawMessage(`{"pricing":true}`),
		PricingUpdatedAt:  timePtr(now.Add(-1 * time.Hour)),
		PropertyInfo:      json.RawMessage(`{"property":true}`),
		PropertyUpdatedAt: timePtr(now.Add(-1 * time.Hour)),
	}}
	fetcher := &mockFetcher{}
	s := newTestService(repo, fetcher, now, 0)

	got, err := s.Resolve(context.Background(), "100")
	if err != nil {
		t.Fatalf("Resolve がエラーを返した: %v", err)
	}
	if string(got.Pricing) != `{"pricing":true}` {
		t.Errorf("Pricing = %s, want キャッシュ値", string(got.Pricing))
	}
	if string(got.Property) != `{"property":true}` {
		t.Errorf("Property = %s, want キャッシュ値", string(got.Property))
	}
}

func TestResolve_OneFailure_ReturnsPartialView(t *testing.T) {
	// 片方の失敗はもう片方の成功を破棄しない
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{
		Zpid:             "100",
		PricingInfo:      json.RawMessage(`{"pricing":true}`),
		PricingUpdatedAt: timePtr(now.Add(-1 * time.Hour)),
	}}
	fetcher := &mockFetcher{propertyErr: errors.New("upstream blocked")}
	s := newTestService(repo, fetcher, now, 0)

	got, err := s.Resolve(context.Background(), "100")
	if err != nil {
		t.Fatalf("部分失敗がエラーとして伝播した: %v", err)
	}
	if string(got.Pricing) != `{"pricing":true}` {
		t.Errorf("Pricing = %s, want キャッシュ値", string(got.Pricing))
	}
	if got.Property != nil {
		t.Errorf("Property = %s, want nil", string(got.Property))
	}
}

func TestResolve_BothFailures_ReturnsError(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockHouseRepo{house: &model.House{Zpid: "100"}}
	fetcher := &mockFetcher{
		pricingErr:  fmt.Errorf("upstream blocked"),
		propertyErr: fmt.Errorf("upstream blocked"),
	}
	s := newTestService(repo, fetcher, now, 0)

	if _, err := s.Resolve(context.Background(), "100"); err == nil {
		t.Fatal("両サブリソース失敗でエラーが返らなかった")
	}
}
