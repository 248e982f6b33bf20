// Package zillow は外部不動産プロバイダーへのスクレイピングクライアントを提供する。
// プロバイダーのAPIは非公式・非公開のWebページ内部クエリであり、
// ブラウザを装ったヘッダーとレート制限を前提に呼び出す。
package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultGraphQLEndpoint は物件単位クエリ（pricing/property）のエンドポイント。
	defaultGraphQLEndpoint = "https://www.zillow.com/graphql/"
	// defaultSearchEndpoint は地図検索のエンドポイント。
	defaultSearchEndpoint = "https://www.zillow.com/search/GetResults.htm"
	// defaultAddressEndpoint は住所検索のエンドポイント。
	defaultAddressEndpoint = "https://www.zillow.com/webservice/GetSearchResults.htm"
)

// browserHeaders はスクレイピング先に送るブラウザ偽装ヘッダー。
var browserHeaders = map[string]string{
	"accept":          "*/*",
	"dnt":             "1",
	"cookie":          "JSESSIONID=",
	"accept-language": "en-US,en;q=0.9",
	"origin":          "https://www.zillow.com",
	"referer":         "https://www.zillow.com/homes/for_sale/",
	"user-agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/70.0.3538.67 Safari/537.36",
}

// MetricsRecorder はアップストリーム呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordUpstreamRequest(operation, outcome string)
	RecordUpstreamLatency(operation string, d time.Duration)
}

// Config はClientの設定。
type Config struct {
	ZWSID string
	// BaseURL はプロバイダーエンドポイントのベースURLを差し替える。
	// 空の場合はデフォルトのエンドポイントを使用する。
	BaseURL   string
	Rate      float64 // 秒間リクエスト上限。0以下で制限なし
	RateBurst int
}

// Client は外部プロバイダーへのHTTPクライアント。
// 全呼び出しはrate.Limiterを通過し、レート制限に敏感な相手への
// リクエスト密度を抑える。エンドポイントはテスト用に差し替え可能。
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    MetricsRecorder
	zwsid      string

	graphqlEndpoint string
	searchEndpoint  string
	addressEndpoint string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはsecurity.NewOutboundClientで生成した
// ハードニング済みクライアントを渡すことを想定している。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder, cfg Config) *Client {
	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	c := &Client{
		httpClient:      httpClient,
		limiter:         limiter,
		logger:          logger,
		metrics:         metrics,
		zwsid:           cfg.ZWSID,
		graphqlEndpoint: defaultGraphQLEndpoint,
		searchEndpoint:  defaultSearchEndpoint,
		addressEndpoint: defaultAddressEndpoint,
	}
	if cfg.BaseURL != "" {
		base := strings.TrimSuffix(cfg.BaseURL, "/")
		c.graphqlEndpoint = base + "/graphql/"
		c.searchEndpoint = base + "/search/GetResults.htm"
		c.addressEndpoint = base + "/webservice/GetSearchResults.htm"
	}
	return c
}

// Pricing は物件の価格・税履歴ドキュメントを取得する。
func (c *Client) Pricing(ctx context.Context, zpid string) (json.RawMessage, error) {
	return c.propertyQuery(ctx, "pricing", priceTaxQuery(zpid))
}

// Property は物件の詳細ドキュメントを取得する。
func (c *Client) Property(ctx context.Context, zpid string) (json.RawMessage, error) {
	return c.propertyQuery(ctx, "property", fullRenderQuery(zpid))
}

// propertyQuery はGraphQL形式のクエリボディをPOSTし、data.propertyを取り出す。
// 非200またはペイロード形状の不一致はUpstreamErrorに正規化する。
func (c *Client) propertyQuery(ctx context.Context, operation string, body string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlEndpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	applyBrowserHeaders(req)
	req.Header.Set("content-type", "text/plain")

	q := req.URL.Query()
	q.Set("zws-id", c.zwsid)
	req.URL.RawQuery = q.Encode()

	status, respBody, err := c.do(ctx, operation, req)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, newUpstreamError(operation, status, respBody)
	}

	var payload struct {
		Data struct {
			Property json.RawMessage `json:"property"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil || len(payload.Data.Property) == 0 || string(payload.Data.Property) == "null" {
		return nil, newUpstreamError(operation, status, respBody)
	}

	return payload.Data.Property, nil
}

// do はレート制限を待ってからリクエストを実行し、レスポンス全体を読み取る。
// 599までのステータスは例外扱いせず、呼び出し元がステータスを検査する。
func (c *Client) do(ctx context.Context, operation string, req *http.Request) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest(operation, "transport_error", time.Since(start))
		c.logger.Error("upstream request failed",
			slog.String("operation", operation),
			slog.String("url", req.URL.Host),
			slog.String("error", err.Error()),
		)
		return 0, nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordRequest(operation, "read_error", time.Since(start))
		return resp.StatusCode, nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	outcome := "ok"
	if resp.StatusCode != http.StatusOK {
		outcome = "bad_status"
	}
	c.recordRequest(operation, outcome, time.Since(start))

	c.logger.Info("upstream request",
		slog.String("operation", operation),
		slog.Int("status", resp.StatusCode),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return resp.StatusCode, body, nil
}

// recordRequest はメトリクスが設定されている場合に記録する。
func (c *Client) recordRequest(operation, outcome string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamRequest(operation, outcome)
	c.metrics.RecordUpstreamLatency(operation, d)
}

// applyBrowserHeaders はブラウザ偽装ヘッダーをリクエストに設定する。
func applyBrowserHeaders(req *http.Request) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
}
