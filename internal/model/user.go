// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 外部IdPのアイデンティティ（Provider + ProviderID）に紐付き、
// 同じアイデンティティで再認証しても重複作成されない。
type User struct {
	ID         int64
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

// Principal はIDトークン検証で得られたクレームを表す。
// リクエストの間だけ存在する一時的な値で、永続化されない。
// 初回認証時のUser作成のシードとしてのみ使用する。
type Principal struct {
	Subject    string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Picture    string
}
