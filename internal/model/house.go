// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// House は1件の物件リスティングを表す。
// 外部プロバイダーのリスティングID（zpid）で一意に識別される。
// PricingInfo / PropertyInfo はプロバイダーから取得したドキュメントの
// キャッシュで、取得に成功したときのみ対応するUpdatedAtと同時に更新される。
type House struct {
	ID                int64
	Zpid              string
	PricingInfo       json.RawMessage // nilは未キャッシュを表す
	PropertyInfo      json.RawMessage // nilは未キャッシュを表す
	PricingUpdatedAt  *time.Time
	PropertyUpdatedAt *time.Time
}

// HouseList はユーザーが管理する物件リストを表す。
// オーナーは常に1人で、削除されない限りリストはオーナーに属する。
type HouseList struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
}

// AccessLevel はリストメンバーのアクセスレベルを表す。
type AccessLevel string

const (
	// AccessLevelEdit は編集アクセスを表す。現状サポートする唯一のレベル。
	// オーナーは暗黙的に全アクセスを持つためメンバー行を持たない。
	AccessLevelEdit AccessLevel = "edit"
)

// HouseListMember はリストとユーザーのメンバーシップを表す。
// (HouseListID, UserID) の組で一意。
type HouseListMember struct {
	HouseListID int64
	UserID      int64
	AccessLevel AccessLevel
	CreatedAt   time.Time
}
