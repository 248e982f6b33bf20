package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carlyzach/houserank/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, email, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, email, created_at FROM users WHERE email = $1 LIMIT 1`,
		email,
	).Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// FindOrCreateFromPrincipal は検証済みPrincipalからユーザーを取得または作成する。
// (provider, provider_id) の組に対して冪等。検索と作成は同一トランザクションで
// 実行し、作成時の一意制約違反（同時リクエストによる競合）は再検索で解決する。
func (r *PostgresUserRepo) FindOrCreateFromPrincipal(ctx context.Context, provider string, principal *model.Principal) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user := &model.User{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, email, created_at
		 FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, principal.Subject,
	).Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt)

	if err == nil {
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find user by identity: %w", err)
	}

	// ON CONFLICT DO NOTHINGで同時作成の競合を吸収し、確定行を読み直す
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (provider, provider_id, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (provider, provider_id) DO NOTHING`,
		provider, principal.Subject, principal.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, email, created_at
		 FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, principal.Subject,
	).Scan(&user.ID, &user.Provider, &user.ProviderID, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
