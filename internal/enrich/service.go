// Package enrich は物件のpricing/propertyドキュメントの解決を提供する。
// サブリソースごとに独立した鮮度判定付きキャッシュ（リレーショナルストア上の
// House行）を持ち、ヒット時はアップストリームを呼ばずに返す。
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/carlyzach/houserank/internal/repository"
	"github.com/carlyzach/houserank/internal/security"
)

// Fetcher はアップストリームからのドキュメント取得インターフェース。
// zillow.Clientが実装する。
type Fetcher interface {
	// Pricing は物件の価格・税履歴ドキュメントを取得する。
	Pricing(ctx context.Context, zpid string) (json.RawMessage, error)

	// Property は物件の詳細ドキュメントを取得する。
	Property(ctx context.Context, zpid string) (json.RawMessage, error)
}

// CacheMetrics はキャッシュ判定のメトリクス記録インターフェース。
type CacheMetrics interface {
	RecordCacheLookup(resource, outcome string)
}

// キャッシュ判定のoutcomeラベル。
const (
	outcomeHit           = "hit"
	outcomeMiss          = "miss"
	outcomeImplicitMiss  = "implicit_miss"
	outcomeStaleFallback = "stale_fallback"
)

// Config はServiceの鮮度判定設定。
// ジッターは判定のたびに引き直され、多数の物件が同時にstaleになって
// アップストリームへ殺到するのを防ぐ。
type Config struct {
	PricingTTL     time.Duration
	PricingJitter  time.Duration
	PropertyTTL    time.Duration
	PropertyJitter time.Duration
}

// Service は物件エンリッチメントのサービス。
type Service struct {
	houses    repository.HouseRepository
	fetcher   Fetcher
	sanitizer security.DescriptionSanitizerService
	metrics   CacheMetrics
	logger    *slog.Logger
	cfg       Config

	// テストから差し替え可能な時刻・乱数ソース
	now    func() time.Time
	jitter func(max time.Duration) time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	houses repository.HouseRepository,
	fetcher Fetcher,
	sanitizer security.DescriptionSanitizerService,
	metrics CacheMetrics,
	logger *slog.Logger,
	cfg Config,
) *Service {
	return &Service{
		houses:    houses,
		fetcher:   fetcher,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Resolved は1物件の結合ビュー。
// 片方のサブリソースだけ解決できた場合、解決できなかった側はnilになる。
type Resolved struct {
	Zpid     string
	Pricing  json.RawMessage
	Property json.RawMessage
}

// Pricing は物件のpricingドキュメントを解決する。
// キャッシュヒット時（保存時刻がTTL+ジッター以内かつblobが非nil）は
// アップストリームを呼ばずにキャッシュを返す。ミス時はアップストリームから
// 取得し、ベストエフォートで保存してから取得結果を返す。
// キャッシュ行の読み取り失敗は暗黙のミスとして扱い、伝播しない。
// 取得失敗時はstaleなキャッシュがあればそれへ縮退し、無ければ伝播する。
func (s *Service) Pricing(ctx context.Context, zpid string) (json.RawMessage, error) {
	return s.resolveResource(ctx, zpid, resourcePricing)
}

// Property は物件のpropertyドキュメントを解決する。鮮度判定はPricingと
// 同じ仕組みで、TTLとジッターのみ異なる。取得したドキュメントの
// descriptionはサニタイズされてから保存・返却される。
func (s *Service) Property(ctx context.Context, zpid string) (json.RawMessage, error) {
	return s.resolveResource(ctx, zpid, resourceProperty)
}

// Resolve はpricingとpropertyを並行に解決し、結合ビューを返す。
// 両方の完了を待ってから結果を組み立てる。片方の失敗はもう片方の成功を
// 破棄せず、失敗した側のフィールドはnilのまま返す。両方失敗した場合のみ
// エラーを返す。
func (s *Service) Resolve(ctx context.Context, zpid string) (*Resolved, error) {
	type result struct {
		doc json.RawMessage
		err error
	}

	pricingCh := make(chan result, 1)
	propertyCh := make(chan result, 1)

	go func() {
		doc, err := s.Pricing(ctx, zpid)
		pricingCh <- result{doc: doc, err: err}
	}()
	go func() {
		doc, err := s.Property(ctx, zpid)
		propertyCh <- result{doc: doc, err: err}
	}()

	pricing := <-pricingCh
	property := <-propertyCh

	if pricing.err != nil && property.err != nil {
		return nil, fmt.Errorf("failed to resolve house %s: %w", zpid, pricing.err)
	}
	if pricing.err != nil {
		s.logger.Warn("pricing resolution failed, returning partial view",
			slog.String("zpid", zpid),
			slog.String("error", pricing.err.Error()),
		)
	}
	if property.err != nil {
		s.logger.Warn("property resolution failed, returning partial view",
			slog.String("zpid", zpid),
			slog.String("error", property.err.Error()),
		)
	}

	return &Resolved{
		Zpid:     zpid,
		Pricing:  pricing.doc,
		Property: property.doc,
	}, nil
}

// resource はサブリソースの種別。
type resource string

const (
	resourcePricing  resource = "pricing"
	resourceProperty resource = "property"
)

// resolveResource はサブリソース1つ分の解決を行う。
func (s *Service) resolveResource(ctx context.Context, zpid string, res resource) (json.RawMessage, error) {
	cached, fresh := s.readCache(ctx, zpid, res)
	if fresh {
		s.recordLookup(res, outcomeHit)
		s.logger.Info("cache hit",
			slog.String("resource", string(res)),
			slog.String("zpid", zpid),
		)
		return cached, nil
	}

	if cached == nil {
		s.recordLookup(res, outcomeMiss)
	}
	s.logger.Info("requesting upstream",
		slog.String("resource", string(res)),
		slog.String("zpid", zpid),
	)

	doc, err := s.fetch(ctx, zpid, res)
	if err != nil {
		// 取得失敗: staleなキャッシュがあればそれへ縮退する
		if cached != nil {
			s.recordLookup(res, outcomeStaleFallback)
			s.logger.Warn("upstream fetch failed, falling back to stale cache",
				slog.String("resource", string(res)),
				slog.String("zpid", zpid),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		return nil, err
	}

	if res == resourceProperty {
		doc = s.sanitizeDescription(doc)
	}

	// 保存失敗はログして握りつぶす。レスポンスは取得結果をそのまま返す。
	if err := s.persist(ctx, zpid, res, doc); err != nil {
		s.logger.Warn("failed to persist fetched document",
			slog.String("resource", string(res)),
			slog.String("zpid", zpid),
			slog.String("error", err.Error()),
		)
	}

	return doc, nil
}

// readCache はキャッシュ行を読み、(キャッシュ値, 鮮度) を返す。
// 行の読み取り失敗は暗黙のミスとして扱う。
func (s *Service) readCache(ctx context.Context, zpid string, res resource) (json.RawMessage, bool) {
	house, err := s.houses.FindByZpid(ctx, zpid)
	if err != nil {
		s.recordLookup(res, outcomeImplicitMiss)
		s.logger.Info("cache read failed, treating as miss",
			slog.String("resource", string(res)),
			slog.String("zpid", zpid),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	var blob json.RawMessage
	var updatedAt *time.Time
	var ttl, maxJitter time.Duration
	switch res {
	case resourcePricing:
		blob = house.PricingInfo
		updatedAt = house.PricingUpdatedAt
		ttl = s.cfg.PricingTTL
		maxJitter = s.cfg.PricingJitter
	case resourceProperty:
		blob = house.PropertyInfo
		updatedAt = house.PropertyUpdatedAt
		ttl = s.cfg.PropertyTTL
		maxJitter = s.cfg.PropertyJitter
	}

	if blob == nil || updatedAt == nil {
		return nil, false
	}

	deadline := updatedAt.Add(ttl).Add(s.jitter(maxJitter))
	return blob, s.now().Before(deadline)
}

// fetch はサブリソースに対応するアップストリーム呼び出しを行う。
func (s *Service) fetch(ctx context.Context, zpid string, res resource) (json.RawMessage, error) {
	if res == resourcePricing {
		return s.fetcher.Pricing(ctx, zpid)
	}
	return s.fetcher.Property(ctx, zpid)
}

// persist はサブリソースに対応するキャッシュ書き込みを行う。
func (s *Service) persist(ctx context.Context, zpid string, res resource, doc json.RawMessage) error {
	now := s.now()
	if res == resourcePricing {
		return s.houses.UpdatePricing(ctx, zpid, doc, now)
	}
	return s.houses.UpdateProperty(ctx, zpid, doc, now)
}

// sanitizeDescription はpropertyドキュメント内のdescriptionをサニタイズする。
// ドキュメントがオブジェクトでない、またはdescriptionが文字列でない場合は
// そのまま返す。
func (s *Service) sanitizeDescription(doc json.RawMessage) json.RawMessage {
	if s.sanitizer == nil {
		return doc
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(doc, &payload); err != nil {
		return doc
	}
	raw, ok := payload["description"]
	if !ok {
		return doc
	}
	var description string
	if err := json.Unmarshal(raw, &description); err != nil {
		return doc
	}

	sanitized, err := json.Marshal(s.sanitizer.Sanitize(description))
	if err != nil {
		return doc
	}
	payload["description"] = sanitized

	out, err := json.Marshal(payload)
	if err != nil {
		return doc
	}
	return out
}

// recordLookup はメトリクスが設定されている場合に記録する。
func (s *Service) recordLookup(res resource, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheLookup(string(res), outcome)
}
