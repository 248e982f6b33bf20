// Package cleanup は孤立した物件レコードの自動削除ジョブを提供する。
// どのリストからも参照されなくなり、保持期間（デフォルト30日）を超えて
// キャッシュが更新されていない物件行を日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は孤立物件の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
// リストに再追加された物件は参照が復活するため削除対象から外れる。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 孤立してからの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run はどのリストからも参照されていない物件を削除する。
// キャッシュの最終更新がRetentionDays日前より新しい物件は、
// 再追加の可能性を考慮して残す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM houses h
 WHERE NOT EXISTS (
	SELECT 1 FROM house_list_houses lh WHERE lh.house_id = h.id
 )
   AND GREATEST(
	COALESCE(h.pricing_updated_at, to_timestamp(0)),
	COALESCE(h.property_updated_at, to_timestamp(0))
 ) < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("物件クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("物件クリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("物件クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
