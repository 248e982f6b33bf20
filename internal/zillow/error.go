package zillow

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// UpstreamError はプロバイダー呼び出しの失敗を正規化したエラー。
// レスポンスボディから抽出したベストエフォートのメッセージを保持する。
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
}

// newUpstreamError はレスポンスボディからメッセージを抽出してUpstreamErrorを生成する。
func newUpstreamError(operation string, statusCode int, body []byte) *UpstreamError {
	return &UpstreamError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    extractMessage(body),
	}
}

// extractMessage はプロバイダーのエラーレスポンスから表示用メッセージを抽出する。
// プロバイダーはdata/message/errorsを可変の深さでネストするため、
// dataを最大2段降りてからmessage/errorsを探し、どれも無ければ
// ボディ全体をそのまま返す。
func extractMessage(body []byte) string {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}

	// dataのネストを最大2段たどる
	for i := 0; i < 2; i++ {
		m, ok := payload.(map[string]any)
		if !ok {
			break
		}
		inner, ok := m["data"]
		if !ok {
			break
		}
		payload = inner
	}

	if m, ok := payload.(map[string]any); ok {
		if msg, ok := m["message"]; ok {
			payload = msg
		} else if errs, ok := m["errors"]; ok {
			payload = errs
		}
	}

	if s, ok := payload.(string); ok {
		return s
	}
	return stringify(payload)
}

// stringify は循環参照を許容するJSONシリアライズを行う。
// 2度目に出現したオブジェクト参照は、単独でシリアライズ可能なら
// 複製として埋め込み、不可能（さらに循環がある）なら除外する。
func stringify(v any) string {
	seen := make(map[uintptr]bool)
	sanitized := sanitizeValue(reflect.ValueOf(v), seen)
	b, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// elided は循環のため除外された値を表すマーカー。
type elided struct{}

// sanitizeValue は値ツリーを再帰的に走査し、循環参照を取り除いた複製を返す。
func sanitizeValue(v reflect.Value, seen map[uintptr]bool) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer {
			if dup, done := dedupe(v, seen); done {
				return dup
			}
		}
		return sanitizeValue(v.Elem(), seen)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if dup, done := dedupe(v, seen); done {
			return dup
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			val := sanitizeValue(iter.Value(), seen)
			if _, skip := val.(elided); skip {
				continue
			}
			out[key] = val
		}
		delete(seen, v.Pointer())
		return out

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if dup, done := dedupe(v, seen); done {
			return dup
		}
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			val := sanitizeValue(v.Index(i), seen)
			if _, skip := val.(elided); skip {
				continue
			}
			out = append(out, val)
		}
		delete(seen, v.Pointer())
		return out

	case reflect.Array:
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			val := sanitizeValue(v.Index(i), seen)
			if _, skip := val.(elided); skip {
				continue
			}
			out = append(out, val)
		}
		return out

	default:
		return v.Interface()
	}
}

// dedupe は参照の再出現を検査する。
// 再出現した値は単独でJSON化できれば複製として返し、できなければ除外する。
// 初出の場合はseenへ登録して走査を続行させる。
func dedupe(v reflect.Value, seen map[uintptr]bool) (any, bool) {
	ptr := v.Pointer()
	if !seen[ptr] {
		seen[ptr] = true
		return nil, false
	}

	// 2度目の出現: 循環を含まなければ複製を埋め込む
	if b, err := json.Marshal(v.Interface()); err == nil {
		return json.RawMessage(b), true
	}
	return elided{}, true
}
