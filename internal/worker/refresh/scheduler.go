// Package refresh はキャッシュ済み物件ドキュメントのバックグラウンド更新を提供する。
// 鮮度ウィンドウを過ぎた物件を定期的に拾い、エンリッチメントサービス経由で
// 再取得する。失敗してもリクエスト経路には影響しないベストエフォートの処理。
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carlyzach/houserank/internal/enrich"
)

// HouseLister は更新対象物件の列挙インターフェース。
type HouseLister interface {
	// ListStaleZpids はいずれかのキャッシュがolderThanより古い物件のzpidを返す。
	ListStaleZpids(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// Resolver は物件ドキュメントの再取得インターフェース。
type Resolver interface {
	Resolve(ctx context.Context, zpid string) (*enrich.Resolved, error)
}

// MetricsRecorder は更新サイクルのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRefreshSuccess()
	RecordRefreshFailure()
}

// Config はSchedulerの設定。
type Config struct {
	// Staleness はこの期間より古いキャッシュを更新対象とする。
	Staleness time.Duration
	// BatchSize は1サイクルで処理する物件数の上限。
	BatchSize int
	// MaxConcurrency は並列更新数の上限。
	MaxConcurrency int
}

// Scheduler は物件更新のスケジューリングと並列制御を行う。
// semaphoreパターンで最大並列数を制御しながら更新を実行する。
type Scheduler struct {
	houses   HouseLister
	resolver Resolver
	metrics  MetricsRecorder
	logger   *slog.Logger
	cfg      Config

	now func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// 設定が0以下の場合はデフォルト値を使用する。
func NewScheduler(
	houses HouseLister,
	resolver Resolver,
	metrics MetricsRecorder,
	logger *slog.Logger,
	cfg Config,
) *Scheduler {
	if cfg.Staleness <= 0 {
		cfg.Staleness = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Scheduler{
		houses:   houses,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("更新スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("staleness", s.cfg.Staleness),
		slog.Int("max_concurrency", s.cfg.MaxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("更新サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("更新スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("更新サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は更新対象物件を1回取得し、並列で再取得を実行する。
// 個々の物件の失敗はログとメトリクスに記録し、サイクル自体は継続する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := s.now()

	olderThan := start.Add(-s.cfg.Staleness)
	zpids, err := s.houses.ListStaleZpids(ctx, olderThan, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	if len(zpids) == 0 {
		s.logger.Info("更新対象の物件はありません")
		return nil
	}

	s.logger.Info("更新サイクルを開始します",
		slog.Int("house_count", len(zpids)),
	)

	sem := make(chan struct{}, s.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for _, zpid := range zpids {
		wg.Add(1)
		sem <- struct{}{}

		go func(zpid string) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.resolver.Resolve(ctx, zpid); err != nil {
				s.metrics.RecordRefreshFailure()
				s.logger.Error("物件の更新に失敗しました",
					slog.String("zpid", zpid),
					slog.String("error", err.Error()),
				)
				return
			}
			s.metrics.RecordRefreshSuccess()
		}(zpid)
	}

	wg.Wait()

	s.logger.Info("更新サイクルが完了しました",
		slog.Int("house_count", len(zpids)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
