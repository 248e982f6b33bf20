package zillow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(serverURL string, server *httptest.Server) *Client {
	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), nil, Config{ZWSID: "test-zwsid"})
	c.graphqlEndpoint = serverURL
	c.searchEndpoint = serverURL
	c.addressEndpoint = serverURL
	return c
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), nil, Config{ZWSID: "x"})
	if c == nil {
		t.Fatal("NewClient は nil を返してはならない")
	}
}

func TestNewClient_BaseURLOverridesEndpoints(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), nil, Config{
		ZWSID:   "x",
		BaseURL: "https://mirror.example.com/",
	})

	if c.graphqlEndpoint != "https://mirror.example.com/graphql/" {
		t.Errorf("graphqlEndpoint = %s", c.graphqlEndpoint)
	}
	if c.searchEndpoint != "https://mirror.example.com/search/GetResults.htm" {
		t.Errorf("searchEndpoint = %s", c.searchEndpoint)
	}
	if c.addressEndpoint != "https://mirror.example.com/webservice/GetSearchResults.htm" {
		t.Errorf("addressEndpoint = %s", c.addressEndpoint)
	}
}

func TestClient_Pricing_Success(t *testing.T) {
	// テスト用HTTPサーバー: GraphQL形式クエリを受けてdata.propertyを返す
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("zws-id"); got != "test-zwsid" {
			t.Errorf("zws-id = %s, want test-zwsid", got)
		}
		if got := r.Header.Get("content-type"); got != "text/plain" {
			t.Errorf("content-type = %s, want text/plain", got)
		}
		if got := r.Header.Get("user-agent"); !strings.Contains(got, "Chrome/70") {
			t.Errorf("user-agent = %s, ブラウザ偽装ヘッダーが設定されていない", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"property":{"zpid":12345,"livingArea":1500}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, server)

	doc, err := c.Pricing(context.Background(), "12345")
	if err != nil {
		t.Fatalf("Pricing がエラーを返した: %v", err)
	}
	if !strings.Contains(string(doc), `"zpid":12345`) {
		t.Errorf("pricing document = %s, data.propertyの中身が返されていない", string(doc))
	}
}

func TestClient_Pricing_RequestBodyContainsZpid(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.String()
		w.Write([]byte(`{"data":{"property":{}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, server)

	if _, err := c.Pricing(context.Background(), "987654"); err != nil {
		t.Fatalf("Pricing がエラーを返した: %v", err)
	}
	if !strings.Contains(gotBody, "987654") {
		t.Errorf("リクエストボディにzpidが含まれていない: %s", gotBody)
	}
	if !strings.Contains(gotBody, "priceHistory") {
		t.Errorf("リクエストボディに価格履歴クエリが含まれていない: %s", gotBody)
	}
}

func TestClient_Property_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"data":{"message":"blocked by upstream"}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, server)

	_, err := c.Property(context.Background(), "12345")
	if err == nil {
		t.Fatal("非200レスポンスでエラーが返らなかった")
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("エラー型 = %T, want *UpstreamError", err)
	}
	if ue.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want %d", ue.StatusCode, http.StatusForbidden)
	}
	if ue.Message != "blocked by upstream" {
		t.Errorf("Message = %s, want blocked by upstream", ue.Message)
	}
	if ue.Operation != "property" {
		t.Errorf("Operation = %s, want property", ue.Operation)
	}
}

func TestClient_Property_NullProperty(t *testing.T) {
	// 200だがdata.propertyがnull: 形状不一致としてUpstreamErrorになる
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"property":null}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, server)

	_, err := c.Property(context.Background(), "12345")
	if err == nil {
		t.Fatal("data.propertyがnullのときエラーが返らなかった")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("エラー型 = %T, want *UpstreamError", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"property":{}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Pricing(ctx, "12345"); err == nil {
		t.Error("キャンセル済みコンテキストでエラーが返らなかった")
	}
}
