package middleware

import (
	"net/http"
	"net/url"
)

// NewCORSMiddleware は許可リスト方式のCORSミドルウェアを返す。
// ローカル開発用に http://localhost:* （任意ポート）と、設定された
// 本番オリジンを許可する。credentials送信と共存するため、
// ワイルドカード(*)は使用せずリクエストのOriginをそのまま返す。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(productionOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && isAllowedOrigin(origin, productionOrigin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			// OPTIONSプリフライトリクエストには204で応答
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isAllowedOrigin はオリジンが許可リストに含まれるかを検証する。
func isAllowedOrigin(origin, productionOrigin string) bool {
	if productionOrigin != "" && origin == productionOrigin {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	// ローカル開発: ポートは問わない
	return parsed.Scheme == "http" && parsed.Hostname() == "localhost"
}
