// Package auth はベアラートークンの検証を提供する。
// リクエストごとにIDトークンを検証し、検証済みPrincipalを返す。
// 検証に失敗した場合は常に失敗側に倒す（fail closed）。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/carlyzach/houserank/internal/model"
)

const defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// TokenVerifier はベアラートークンの検証インターフェース。
type TokenVerifier interface {
	// Verify はトークンを検証し、検証済みPrincipalを返す。
	// 署名・有効期限・audienceのいずれかが不正な場合はエラーを返す。
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// GoogleVerifierConfig はGoogleVerifierの設定。
type GoogleVerifierConfig struct {
	// ClientID は検証時に期待するaudience。
	ClientID string

	// TokenInfoURL はテスト用にオーバーライド可能な検証エンドポイント。
	TokenInfoURL string
}

// GoogleVerifier はGoogleのtokeninfoエンドポイントでIDトークンを検証する。
type GoogleVerifier struct {
	httpClient *http.Client
	config     GoogleVerifierConfig
}

// NewGoogleVerifier はGoogleVerifierの新しいインスタンスを生成する。
func NewGoogleVerifier(httpClient *http.Client, config GoogleVerifierConfig) *GoogleVerifier {
	if config.TokenInfoURL == "" {
		config.TokenInfoURL = defaultTokenInfoURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleVerifier{
		httpClient: httpClient,
		config:     config,
	}
}

// tokenInfoResponse はtokeninfoエンドポイントのレスポンス。
type tokenInfoResponse struct {
	Aud        string `json:"aud"`
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Verify はIDトークンをtokeninfoエンドポイントで検証する。
// エンドポイントが非200を返した場合、またはaudienceが期待する
// クライアントIDと一致しない場合は検証失敗とする。
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*model.Principal, error) {
	endpoint := v.config.TokenInfoURL + "?" + url.Values{"id_token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewUnauthorizedError("トークンが無効です")
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	// audience検証: 他アプリ向けに発行されたトークンを拒否する
	if info.Aud != v.config.ClientID {
		return nil, model.NewUnauthorizedError("トークンのaudienceが一致しません")
	}
	if info.Sub == "" {
		return nil, model.NewUnauthorizedError("トークンにsubjectが含まれていません")
	}

	return &model.Principal{
		Subject:    info.Sub,
		Email:      info.Email,
		Name:       info.Name,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	}, nil
}

// StaticVerifier はローカル開発用の固定Principal検証器。
// AUTH_FAKE_PRINCIPALが有効なときのみ使用され、どんなトークンに対しても
// 同じPrincipalを返す。本番環境で使用してはならない。
type StaticVerifier struct {
	Principal model.Principal
}

// Verify は固定のPrincipalを返す。トークンは検査しない。
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*model.Principal, error) {
	p := v.Principal
	return &p, nil
}

var _ TokenVerifier = (*GoogleVerifier)(nil)
var _ TokenVerifier = (*StaticVerifier)(nil)
