// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// GraphQLレイヤーでフィールドエラーとしてクライアントに返される。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, list, house, upstream, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeHouseListNotFound  = "HOUSE_LIST_NOT_FOUND"
	ErrCodeHouseNotFound      = "HOUSE_NOT_FOUND"
	ErrCodeHouseNotInList     = "HOUSE_NOT_IN_LIST"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeMembershipNotFound = "MEMBERSHIP_NOT_FOUND"
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
)

// NewHouseListNotFoundError はリスト未検出エラーを生成する。
func NewHouseListNotFoundError(listID int64) *APIError {
	return &APIError{
		Code:     ErrCodeHouseListNotFound,
		Message:  fmt.Sprintf("指定されたリストが見つかりません: %d", listID),
		Category: "list",
		Action:   "リストIDを確認してください。",
	}
}

// NewHouseNotFoundError は物件未検出エラーを生成する。
func NewHouseNotFoundError(zpid string) *APIError {
	return &APIError{
		Code:     ErrCodeHouseNotFound,
		Message:  fmt.Sprintf("指定された物件が見つかりません: zpid=%s", zpid),
		Category: "house",
		Action:   "zpidを確認してください。",
	}
}

// NewHouseNotInListError は物件がリストに含まれていない場合のエラーを生成する。
func NewHouseNotInListError(zpid string, listID int64) *APIError {
	return &APIError{
		Code:     ErrCodeHouseNotInList,
		Message:  fmt.Sprintf("物件 zpid=%s はリスト %d に含まれていません。", zpid, listID),
		Category: "list",
		Action:   "リストの内容を確認してください。",
	}
}

// NewUserNotFoundByEmailError は未登録メールアドレスのエラーを生成する。
// リストメンバー追加は一度でも認証したユーザーに対してのみ行える。
func NewUserNotFoundByEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s。ログイン済みか確認してください。", email),
		Category: "list",
		Action:   "対象ユーザーに一度ログインしてもらってください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", userID),
		Category: "list",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewMembershipNotFoundError はメンバーシップ未検出エラーを生成する。
func NewMembershipNotFoundError(userID, listID int64) *APIError {
	return &APIError{
		Code:     ErrCodeMembershipNotFound,
		Message:  fmt.Sprintf("ユーザー %d はリスト %d のメンバーではありません。", userID, listID),
		Category: "list",
		Action:   "メンバー一覧を確認してください。",
	}
}

// NewAccessDeniedError はアクセス拒否エラーを生成する。
// オーナーでもeditメンバーでもないユーザーの変更操作で返される。
func NewAccessDeniedError(listID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  fmt.Sprintf("リスト %d への編集アクセスがありません。", listID),
		Category: "auth",
		Action:   "リストのオーナーにメンバー追加を依頼してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "再ログインしてください。",
	}
}
