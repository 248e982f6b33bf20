package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/carlyzach/houserank/internal/auth"
	"github.com/carlyzach/houserank/internal/model"
)

// UserResolver は検証済みPrincipalからユーザー行を取得または作成する
// インターフェース。repository.UserRepositoryの部分集合として定義する。
type UserResolver interface {
	FindOrCreateFromPrincipal(ctx context.Context, provider string, principal *model.Principal) (*model.User, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 検証済みPrincipalと対応するユーザー行をリクエストコンテキストに注入する
// ミドルウェアを返す。同じアイデンティティでの再認証では既存ユーザー行が
// 再利用される（冪等）。
// トークンが無い・無効な場合は401を統一エラーフォーマットで返す。
// OPTIONSプリフライトリクエストは検証をバイパスする。
func NewAuthMiddleware(verifier auth.TokenVerifier, users UserResolver, provider string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// プリフライトは認証不要（CORSミドルウェアが応答する）
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("Authorizationヘッダーがありません"))
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("token verification failed",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("トークンの検証に失敗しました"))
				return
			}

			user, err := users.FindOrCreateFromPrincipal(r.Context(), provider, principal)
			if err != nil {
				logger.Error("failed to resolve user from principal",
					slog.String("subject", principal.Subject),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = ContextWithUser(ctx, user)
			ctx = ContextWithClientIP(ctx, clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// 形式が不正な場合は空文字を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP はリクエストのクライアントIPを返す。
// chiのRealIPミドルウェアがRemoteAddrを書き換えている前提で、
// ポート部があれば取り除く。
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
