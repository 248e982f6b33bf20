// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carlyzach/houserank/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindOrCreateFromPrincipal は検証済みPrincipalからユーザーを取得または作成する。
	// (provider, provider_id) の組に対して冪等で、同じアイデンティティでの
	// 再認証では既存行を返し重複作成しない。
	FindOrCreateFromPrincipal(ctx context.Context, provider string, principal *model.Principal) (*model.User, error)
}

// HouseRepository は物件キャッシュ行の永続化インターフェース。
// pricing_info / property_info のblobとタイムスタンプはこのインターフェース
// 経由でのみ書き込まれる。
type HouseRepository interface {
	// FindByZpid は指定zpidの物件を取得する。
	// 見つからない場合はmodel.APIError（HOUSE_NOT_FOUND）を返す。
	FindByZpid(ctx context.Context, zpid string) (*model.House, error)

	// EnsureByZpid は指定zpidの物件行を取得し、存在しなければblobなしの
	// 素の行を作成して返す。冪等。
	EnsureByZpid(ctx context.Context, zpid string) (*model.House, error)

	// UpdatePricing は物件のpricingキャッシュとタイムスタンプを更新する。
	// 行が存在しない場合はmodel.APIError（HOUSE_NOT_FOUND）を返す。
	UpdatePricing(ctx context.Context, zpid string, doc json.RawMessage, updatedAt time.Time) error

	// UpdateProperty は物件のpropertyキャッシュとタイムスタンプを更新する。
	// 行が存在しない場合はmodel.APIError（HOUSE_NOT_FOUND）を返す。
	UpdateProperty(ctx context.Context, zpid string, doc json.RawMessage, updatedAt time.Time) error

	// ListStaleZpids はいずれかのリストに属し、キャッシュが指定時刻より
	// 古い（または未キャッシュの）物件のzpidを最大limit件返す。
	// バックグラウンドリフレッシュワーカーが使用する。
	ListStaleZpids(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// HouseListRepository はリストとメンバーシップの永続化インターフェース。
// 変更系の複数ステップ操作はすべてトランザクション内で実行され、
// いずれかのステップが失敗した場合はロールバックされる。
type HouseListRepository interface {
	// Create は新しいリストを作成して返す。メンバーは空。
	Create(ctx context.Context, name string, ownerID int64) (*model.HouseList, error)

	// FindByID は指定IDのリストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.HouseList, error)

	// Delete はリストを削除し、削除前の行を返す。
	// 見つからない場合はmodel.APIError（HOUSE_LIST_NOT_FOUND）を返す。
	// メンバー行・物件Join行へのカスケード削除は行わない（既知のギャップ）。
	Delete(ctx context.Context, id int64) (*model.HouseList, error)

	// AddHouse は物件行を必要なら作成した上で、リストへのJoin行を冪等に
	// 作成し、物件を返す。リストが存在しない場合はエラー。
	AddHouse(ctx context.Context, zpid string, listID int64) (*model.House, error)

	// RemoveHouse はリストから物件を外し、物件を返す。
	// リスト・物件・Join行のいずれかが存在しない場合はエラー。
	RemoveHouse(ctx context.Context, zpid string, listID int64) (*model.House, error)

	// AddMember は指定メールアドレスのユーザーをeditアクセスで冪等に
	// メンバー追加し、ユーザーを返す。リストまたはユーザーが存在しない
	// 場合はエラー。
	AddMember(ctx context.Context, email string, listID int64) (*model.User, error)

	// RemoveMember はメンバーシップ行を削除し、ユーザーを返す。
	// リストまたはユーザーが存在しない場合はエラー。
	RemoveMember(ctx context.Context, userID, listID int64) (*model.User, error)

	// HasEditAccess はユーザーがリストのオーナーまたはeditメンバーで
	// あるかを返す。
	HasEditAccess(ctx context.Context, listID, userID int64) (bool, error)

	// ListsByOwner はユーザーがオーナーのリスト一覧を返す。
	ListsByOwner(ctx context.Context, ownerID int64) ([]*model.HouseList, error)

	// ListsByMember はユーザーがメンバーのリスト一覧を返す。
	ListsByMember(ctx context.Context, userID int64) ([]*model.HouseList, error)

	// MembersOfList はリストのメンバーユーザー一覧を返す。
	MembersOfList(ctx context.Context, listID int64) ([]*model.User, error)

	// HousesOfList はリストに含まれる物件一覧を返す。
	HousesOfList(ctx context.Context, listID int64) ([]*model.House, error)
}
