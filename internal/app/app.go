package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/carlyzach/houserank/internal/auth"
	"github.com/carlyzach/houserank/internal/config"
	"github.com/carlyzach/houserank/internal/database"
	"github.com/carlyzach/houserank/internal/enrich"
	"github.com/carlyzach/houserank/internal/geo"
	"github.com/carlyzach/houserank/internal/gql"
	"github.com/carlyzach/houserank/internal/handler"
	"github.com/carlyzach/houserank/internal/houselist"
	"github.com/carlyzach/houserank/internal/logger"
	"github.com/carlyzach/houserank/internal/metrics"
	"github.com/carlyzach/houserank/internal/middleware"
	"github.com/carlyzach/houserank/internal/model"
	"github.com/carlyzach/houserank/internal/repository"
	"github.com/carlyzach/houserank/internal/security"
	"github.com/carlyzach/houserank/internal/worker/cleanup"
	"github.com/carlyzach/houserank/internal/worker/refresh"
	"github.com/carlyzach/houserank/internal/zillow"
)

// authProvider は現状サポートする唯一のIdP。
const authProvider = "google"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newEnrichService はDB接続からアップストリームクライアントと
// エンリッチメントサービスを組み立てる。serve / worker の両モードで共通のワイヤリング。
func newEnrichService(db *sql.DB, cfg *config.Config, collector *metrics.Collector) (*enrich.Service, *zillow.Client, error) {
	// エンドポイント差し替え時は起動時に静的検証する
	if cfg.UpstreamBaseURL != "" {
		if err := security.ValidateEndpoint(cfg.UpstreamBaseURL); err != nil {
			return nil, nil, fmt.Errorf("invalid UPSTREAM_BASE_URL: %w", err)
		}
	}

	houseRepo := repository.NewPostgresHouseRepo(db)

	outboundClient := security.NewOutboundClient(cfg.UpstreamTimeout)
	zillowClient := zillow.NewClient(outboundClient, slog.Default(), collector, zillow.Config{
		ZWSID:     cfg.ZWSID,
		BaseURL:   cfg.UpstreamBaseURL,
		Rate:      cfg.UpstreamRate,
		RateBurst: cfg.UpstreamRateBurst,
	})

	sanitizer := security.NewDescriptionSanitizer()

	enrichService := enrich.NewService(houseRepo, zillowClient, sanitizer, collector, slog.Default(), enrich.Config{
		PricingTTL:     cfg.PricingTTL,
		PricingJitter:  cfg.PricingJitter,
		PropertyTTL:    cfg.PropertyTTL,
		PropertyJitter: cfg.PropertyJitter,
	})
	return enrichService, zillowClient, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスレジストリ
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリとドメインサービスの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	listRepo := repository.NewPostgresHouseListRepo(db)

	enrichService, zillowClient, err := newEnrichService(db, cfg, collector)
	if err != nil {
		return err
	}
	listService := houselist.NewService(listRepo, slog.Default())

	// 4. IDトークン検証器の初期化
	var verifier auth.TokenVerifier
	if cfg.AuthFakePrincipal {
		// ローカル開発用: 全リクエストを固定Principalとして扱う
		slog.Warn("AUTH_FAKE_PRINCIPAL is enabled; all requests are authenticated as a fixed principal")
		verifier = &auth.StaticVerifier{Principal: model.Principal{
			Subject: "dev-subject",
			Email:   "dev@localhost",
			Name:    "Local Developer",
		}}
	} else {
		verifier = auth.NewGoogleVerifier(nil, auth.GoogleVerifierConfig{
			ClientID: cfg.GoogleClientID,
		})
	}

	// 5. GeoIPロケーターの初期化（未設定時はnullを返すロケーターで代替）
	var locator geo.Locator = geo.NopLocator{}
	if cfg.GeoIPDBPath != "" {
		mmdb, err := geo.NewLocator(cfg.GeoIPDBPath, slog.Default())
		if err != nil {
			slog.Warn("failed to open GeoIP database; location queries will return null",
				slog.String("path", cfg.GeoIPDBPath),
				slog.String("error", err.Error()),
			)
		} else {
			defer mmdb.Close()
			locator = mmdb
		}
	}

	// 6. GraphQLスキーマの構築
	schema, err := gql.NewSchema(gql.Services{
		Enrich:  enrichService,
		Lists:   listService,
		Search:  zillowClient,
		Users:   userRepo,
		Locator: locator,
	})
	if err != nil {
		return fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		Burst:           cfg.RateLimitGeneral,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Schema:        schema,
		HealthChecker: db,

		Verifier:             verifier,
		UserResolver:         userRepo,
		AuthProvider:         authProvider,
		CORSProductionOrigin: cfg.CORSProductionOrigin,
		RateLimiter:          rateLimiter,
		Logger:               slog.Default(),

		Gatherer: registry,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、キャッシュ更新スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. エンリッチメントサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	enrichService, _, err := newEnrichService(db, cfg, collector)
	if err != nil {
		return err
	}

	// 3. スケジューラの起動
	houseRepo := repository.NewPostgresHouseRepo(db)
	staleness := cfg.PricingTTL
	if cfg.PropertyTTL < staleness {
		staleness = cfg.PropertyTTL
	}
	scheduler := refresh.NewScheduler(houseRepo, enrichService, collector, slog.Default(), refresh.Config{
		Staleness:      staleness,
		BatchSize:      cfg.RefreshBatchSize,
		MaxConcurrency: cfg.RefreshMaxConcurrent,
	})

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("refresh_interval", cfg.RefreshInterval),
		slog.Int("max_concurrent", cfg.RefreshMaxConcurrent),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 更新スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.RefreshInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
