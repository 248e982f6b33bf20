package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carlyzach/houserank/internal/model"
)

// PostgresHouseRepo はPostgreSQLを使用した物件キャッシュリポジトリ。
// blobとタイムスタンプは常に同時に書き込まれ、
// 「blob非nilならタイムスタンプ非nil」の不変条件を維持する。
type PostgresHouseRepo struct {
	db *sql.DB
}

// NewPostgresHouseRepo はPostgresHouseRepoを生成する。
func NewPostgresHouseRepo(db *sql.DB) *PostgresHouseRepo {
	return &PostgresHouseRepo{db: db}
}

// FindByZpid は指定zpidの物件を取得する。
// 見つからない場合はmodel.APIError（HOUSE_NOT_FOUND）を返す。
func (r *PostgresHouseRepo) FindByZpid(ctx context.Context, zpid string) (*model.House, error) {
	house, err := scanHouse(r.db.QueryRowContext(ctx,
		`SELECT id, zpid, pricing_info, property_info, pricing_updated_at, property_updated_at
		 FROM houses WHERE zpid = $1`,
		zpid,
	))

	if err == sql.ErrNoRows {
		return nil, model.NewHouseNotFoundError(zpid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find house by zpid: %w", err)
	}

	return house, nil
}

// EnsureByZpid は指定zpidの物件行を取得し、存在しなければ素の行を作成して返す。
// 同時作成の競合はON CONFLICT DO NOTHINGと読み直しで吸収する。
func (r *PostgresHouseRepo) EnsureByZpid(ctx context.Context, zpid string) (*model.House, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO houses (zpid) VALUES ($1) ON CONFLICT (zpid) DO NOTHING`,
		zpid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure house row: %w", err)
	}

	return r.FindByZpid(ctx, zpid)
}

// UpdatePricing は物件のpricingキャッシュとタイムスタンプを更新する。
// 対象行が存在しない場合はmodel.APIError（HOUSE_NOT_FOUND）を返す。
func (r *PostgresHouseRepo) UpdatePricing(ctx context.Context, zpid string, doc json.RawMessage, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE houses SET pricing_info = $1, pricing_updated_at = $2 WHERE zpid = $3`,
		doc, updatedAt, zpid,
	)
	if err != nil {
		return fmt.Errorf("failed to update house pricing: %w", err)
	}
	return checkHouseRowUpdated(result, zpid)
}

// UpdateProperty は物件のpropertyキャッシュとタイムスタンプを更新する。
// 対象行が存在しない場合はmodel.APIError（HOUSE_NOT_FOUND）を返す。
func (r *PostgresHouseRepo) UpdateProperty(ctx context.Context, zpid string, doc json.RawMessage, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE houses SET property_info = $1, property_updated_at = $2 WHERE zpid = $3`,
		doc, updatedAt, zpid,
	)
	if err != nil {
		return fmt.Errorf("failed to update house property: %w", err)
	}
	return checkHouseRowUpdated(result, zpid)
}

// ListStaleZpids はいずれかのリストに属し、pricing/propertyのどちらかの
// キャッシュがolderThanより古い（または未キャッシュの）物件のzpidを返す。
func (r *PostgresHouseRepo) ListStaleZpids(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.zpid FROM houses h
		 WHERE h.id IN (SELECT house_id FROM house_list_houses)
		   AND (h.pricing_updated_at IS NULL OR h.pricing_updated_at < $1
		        OR h.property_updated_at IS NULL OR h.property_updated_at < $1)
		 ORDER BY LEAST(
		     COALESCE(h.pricing_updated_at, 'epoch'::timestamptz),
		     COALESCE(h.property_updated_at, 'epoch'::timestamptz)
		 )
		 LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale houses: %w", err)
	}
	defer rows.Close()

	var zpids []string
	for rows.Next() {
		var zpid string
		if err := rows.Scan(&zpid); err != nil {
			return nil, fmt.Errorf("failed to scan stale house row: %w", err)
		}
		zpids = append(zpids, zpid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale house rows: %w", err)
	}

	return zpids, nil
}

// houseScanner はsql.Rowとsql.Rowsの共通のScan部分。
type houseScanner interface {
	Scan(dest ...any) error
}

// scanHouse は物件行を1件読み取る。
// pricing_info / property_info はNULL許容のJSONB列のため、
// *[]byte経由でスキャンしてNULLをnil（未キャッシュ）にマップする。
// json.RawMessageを直接Scanに渡すとNULL行でエラーになる。
func scanHouse(s houseScanner) (*model.House, error) {
	house := &model.House{}
	err := s.Scan(&house.ID, &house.Zpid,
		(*[]byte)(&house.PricingInfo), (*[]byte)(&house.PropertyInfo),
		&house.PricingUpdatedAt, &house.PropertyUpdatedAt)
	if err != nil {
		return nil, err
	}
	return house, nil
}

// checkHouseRowUpdated は更新行数を検証し、0行の場合は未検出エラーを返す。
func checkHouseRowUpdated(result sql.Result, zpid string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewHouseNotFoundError(zpid)
	}
	return nil
}

// compile-time interface check
var _ HouseRepository = (*PostgresHouseRepo)(nil)
