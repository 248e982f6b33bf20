package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carlyzach/houserank/internal/model"
)

// PostgresHouseListRepo はPostgreSQLを使用したリスト・メンバーシップリポジトリ。
// 複数ステップの変更操作はすべて1トランザクションで実行し、
// 途中の失敗時はdefer tx.Rollback()で全体を巻き戻す。
type PostgresHouseListRepo struct {
	db *sql.DB
}

// NewPostgresHouseListRepo はPostgresHouseListRepoを生成する。
func NewPostgresHouseListRepo(db *sql.DB) *PostgresHouseListRepo {
	return &PostgresHouseListRepo{db: db}
}

// Create は新しいリストを作成して返す。
func (r *PostgresHouseListRepo) Create(ctx context.Context, name string, ownerID int64) (*model.HouseList, error) {
	list := &model.HouseList{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO house_lists (name, owner_id) VALUES ($1, $2)
		 RETURNING id, name, owner_id, created_at`,
		name, ownerID,
	).Scan(&list.ID, &list.Name, &list.OwnerID, &list.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create house list: %w", err)
	}

	return list, nil
}

// FindByID は指定IDのリストを取得する。見つからない場合はnilを返す。
func (r *PostgresHouseListRepo) FindByID(ctx context.Context, id int64) (*model.HouseList, error) {
	return findListByID(ctx, r.db, id)
}

// Delete はリストを削除し、削除前の行を返す。
// メンバー行・物件Join行は削除しない。
// TODO: Join行のカスケード削除（孤児行が残る既知のギャップ）
func (r *PostgresHouseListRepo) Delete(ctx context.Context, id int64) (*model.HouseList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	list, err := findListByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, model.NewHouseListNotFoundError(id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM house_lists WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete house list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return list, nil
}

// AddHouse は物件行を必要なら作成した上で、リストへのJoin行を冪等に作成する。
func (r *PostgresHouseListRepo) AddHouse(ctx context.Context, zpid string, listID int64) (*model.House, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	list, err := findListByID(ctx, tx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, model.NewHouseListNotFoundError(listID)
	}

	// 物件行を冪等に確保する（新規の場合blobなしの素の行）
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO houses (zpid) VALUES ($1) ON CONFLICT (zpid) DO NOTHING`, zpid,
	); err != nil {
		return nil, fmt.Errorf("failed to ensure house row: %w", err)
	}

	house, err := findHouseByZpid(ctx, tx, zpid)
	if err != nil {
		return nil, err
	}
	if house == nil {
		return nil, model.NewHouseNotFoundError(zpid)
	}

	// Join行を冪等に確保する
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO house_list_houses (house_list_id, house_id) VALUES ($1, $2)
		 ON CONFLICT (house_list_id, house_id) DO NOTHING`,
		listID, house.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to insert house join row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return house, nil
}

// RemoveHouse はリストから物件を外し、物件を返す。
func (r *PostgresHouseListRepo) RemoveHouse(ctx context.Context, zpid string, listID int64) (*model.House, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	list, err := findListByID(ctx, tx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, model.NewHouseListNotFoundError(listID)
	}

	house, err := findHouseByZpid(ctx, tx, zpid)
	if err != nil {
		return nil, err
	}
	if house == nil {
		return nil, model.NewHouseNotFoundError(zpid)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM house_list_houses WHERE house_list_id = $1 AND house_id = $2`,
		listID, house.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete house join row: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, model.NewHouseNotInListError(zpid, listID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return house, nil
}

// AddMember は指定メールアドレスのユーザーをeditアクセスで冪等にメンバー追加する。
func (r *PostgresHouseListRepo) AddMember(ctx context.Context, email string, listID int64) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	list, err := findListByID(ctx, tx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, model.NewHouseListNotFoundError(listID)
	}

	user := &model.User{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, email, created_at FROM users WHERE email = $1 LIMIT 1`,
		email,
	).Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewUserNotFoundByEmailError(email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO house_list_members (house_list_id, user_id, access_level)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (house_list_id, user_id) DO NOTHING`,
		listID, user.ID, model.AccessLevelEdit,
	); err != nil {
		return nil, fmt.Errorf("failed to insert membership row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// RemoveMember はメンバーシップ行を削除し、ユーザーを返す。
func (r *PostgresHouseListRepo) RemoveMember(ctx context.Context, userID, listID int64) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	list, err := findListByID(ctx, tx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, model.NewHouseListNotFoundError(listID)
	}

	user := &model.User{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, email, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewUserNotFoundError(userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM house_list_members WHERE house_list_id = $1 AND user_id = $2`,
		listID, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete membership row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// HasEditAccess はユーザーがリストのオーナーまたはeditメンバーであるかを返す。
// メンバーシップとオーナーシップを1クエリのUNIONで判定する。
func (r *PostgresHouseListRepo) HasEditAccess(ctx context.Context, listID, userID int64) (bool, error) {
	var found int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM (
		     SELECT user_id FROM house_list_members
		      WHERE house_list_id = $1 AND user_id = $2 AND access_level = $3
		     UNION
		     SELECT owner_id AS user_id FROM house_lists
		      WHERE id = $1 AND owner_id = $2
		 ) access LIMIT 1`,
		listID, userID, model.AccessLevelEdit,
	).Scan(&found)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check edit access: %w", err)
	}

	return true, nil
}

// ListsByOwner はユーザーがオーナーのリスト一覧を返す。
func (r *PostgresHouseListRepo) ListsByOwner(ctx context.Context, ownerID int64) ([]*model.HouseList, error) {
	return scanLists(r.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at FROM house_lists WHERE owner_id = $1 ORDER BY id`,
		ownerID,
	))
}

// ListsByMember はユーザーがメンバーのリスト一覧を返す。
func (r *PostgresHouseListRepo) ListsByMember(ctx context.Context, userID int64) ([]*model.HouseList, error) {
	return scanLists(r.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at FROM house_lists
		 WHERE id IN (SELECT DISTINCT house_list_id FROM house_list_members WHERE user_id = $1)
		 ORDER BY id`,
		userID,
	))
}

// MembersOfList はリストのメンバーユーザー一覧を返す。
func (r *PostgresHouseListRepo) MembersOfList(ctx context.Context, listID int64) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, provider, provider_id, email, created_at FROM users
		 WHERE id IN (SELECT user_id FROM house_list_members WHERE house_list_id = $1)
		 ORDER BY id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// HousesOfList はリストに含まれる物件一覧を返す。
func (r *PostgresHouseListRepo) HousesOfList(ctx context.Context, listID int64) ([]*model.House, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, zpid, pricing_info, property_info, pricing_updated_at, property_updated_at
		 FROM houses
		 WHERE id IN (SELECT house_id FROM house_list_houses WHERE house_list_id = $1)
		 ORDER BY id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list houses: %w", err)
	}
	defer rows.Close()

	var houses []*model.House
	for rows.Next() {
		house, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan house row: %w", err)
		}
		houses = append(houses, house)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate house rows: %w", err)
	}

	return houses, nil
}

// queryer はsql.DBとsql.Txの共通部分。トランザクション内外で同じ検索を使うため。
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// findListByID はリスト行を取得する。見つからない場合はnilを返す。
func findListByID(ctx context.Context, q queryer, id int64) (*model.HouseList, error) {
	list := &model.HouseList{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM house_lists WHERE id = $1 LIMIT 1`,
		id,
	).Scan(&list.ID, &list.Name, &list.OwnerID, &list.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find house list: %w", err)
	}
	return list, nil
}

// findHouseByZpid は物件行を取得する。見つからない場合はnilを返す。
func findHouseByZpid(ctx context.Context, q queryer, zpid string) (*model.House, error) {
	house, err := scanHouse(q.QueryRowContext(ctx,
		`SELECT id, zpid, pricing_info, property_info, pricing_updated_at, property_updated_at
		 FROM houses WHERE zpid = $1`,
		zpid,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find house: %w", err)
	}
	return house, nil
}

// scanLists はリスト行の集合をスキャンする。
func scanLists(rows *sql.Rows, err error) ([]*model.HouseList, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query house lists: %w", err)
	}
	defer rows.Close()

	var lists []*model.HouseList
	for rows.Next() {
		list := &model.HouseList{}
		if err := rows.Scan(&list.ID, &list.Name, &list.OwnerID, &list.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan house list row: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate house list rows: %w", err)
	}

	return lists, nil
}

// compile-time interface check
var _ HouseListRepository = (*PostgresHouseListRepo)(nil)
