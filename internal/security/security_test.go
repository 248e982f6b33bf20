package security

import (
	"strings"
	"testing"
	"time"
)

func TestNewOutboundClient_ReturnsNonNil(t *testing.T) {
	client := NewOutboundClient(15 * time.Second)
	if client == nil {
		t.Fatal("NewOutboundClient は nil を返してはならない")
	}
	if client.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", client.Timeout)
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"httpsの公開ホストは許可", "https://www.zillow.com/graphql/", false},
		{"httpの公開ホストは許可", "http://example.com/api", false},
		{"空URLは拒否", "", true},
		{"ftpスキームは拒否", "ftp://example.com/file", true},
		{"javascriptスキームは拒否", "javascript:alert(1)", true},
		{"localhostは拒否", "https://localhost/api", true},
		{"ループバックIPは拒否", "http://127.0.0.1/api", true},
		{"プライベートIPは拒否", "http://192.168.1.10/api", true},
		{"メタデータIPは拒否", "http://169.254.169.254/latest/meta-data/", true},
		{"IPv6ループバックは拒否", "http://[::1]/api", true},
		{"ホスト無しは拒否", "https:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpoint(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%s) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestDescriptionSanitizer_StripsDangerousContent(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	tests := []struct {
		name        string
		input       string
		wantKeep    []string
		wantRemoved []string
	}{
		{
			name:     "整形タグは通過する",
			input:    "<p>Spacious home with <strong>3 bedrooms</strong></p>",
			wantKeep: []string{"<p>", "<strong>3 bedrooms</strong>", "</p>"},
		},
		{
			name:        "scriptタグは除去される",
			input:       `Great view<script>alert("xss")</script>`,
			wantKeep:    []string{"Great view"},
			wantRemoved: []string{"<script>", "alert"},
		},
		{
			name:        "iframeタグは除去される",
			input:       `<iframe src="https://evil.example"></iframe>Nice garden`,
			wantKeep:    []string{"Nice garden"},
			wantRemoved: []string{"<iframe"},
		},
		{
			name:        "onclickイベント属性は除去される",
			input:       `<p onclick="steal()">Open house Sunday</p>`,
			wantKeep:    []string{"<p>", "Open house Sunday"},
			wantRemoved: []string{"onclick", "steal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantKeep {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%s) = %s, %s が残っていない", tt.input, got, want)
				}
			}
			for _, removed := range tt.wantRemoved {
				if strings.Contains(got, removed) {
					t.Errorf("Sanitize(%s) = %s, %s が除去されていない", tt.input, got, removed)
				}
			}
		})
	}
}

func TestDescriptionSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	input := `<p>Charming <em>bungalow</em><script>x()</script></p>`
	once := sanitizer.Sanitize(input)
	twice := sanitizer.Sanitize(once)
	if once != twice {
		t.Errorf("サニタイズが冪等でない: 1回目 %s, 2回目 %s", once, twice)
	}
}

func TestDescriptionSanitizer_EmptyInput(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()
	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %s, want 空文字列", got)
	}
}
