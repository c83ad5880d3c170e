package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/ai"
	"github.com/coursepilot/backend/internal/config"
	"github.com/coursepilot/backend/internal/db"
	"github.com/coursepilot/backend/internal/embedcache"
	"github.com/coursepilot/backend/internal/filestore"
	"github.com/coursepilot/backend/internal/handler"
	"github.com/coursepilot/backend/internal/job"
	"github.com/coursepilot/backend/internal/middleware"
	"github.com/coursepilot/backend/internal/repo"
	"github.com/coursepilot/backend/internal/schedule"
	"github.com/coursepilot/backend/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "coursepilot",
		Short: "coursepilot backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run coursepilot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(database)
	materialRepo := repo.NewMaterialRepo(database)
	chunkRepo := repo.NewChunkRepo(database)
	convRepo := repo.NewConversationRepo(database)
	msgRepo := repo.NewMessageRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	generateAI, err := buildGenerator(cfg.AI.Generate, timeout)
	if err != nil {
		return fmt.Errorf("init generate ai: %w", err)
	}
	summarizeAI, err := buildGenerator(cfg.AI.Summarize, timeout)
	if err != nil {
		return fmt.Errorf("init summarize ai: %w", err)
	}
	embedAI, err := buildEmbedder(cfg.AI.Embed)
	if err != nil {
		return fmt.Errorf("init embed ai: %w", err)
	}
	embedAI = embedcache.WrapDBCacheToEmbedder(embedAI, cacheRepo)
	embedAI = embedcache.WrapLruCacheToEmbedder(embedAI, cfg.EmbedCache.LRUSize,
		time.Duration(cfg.EmbedCache.LRUTTLMinutes)*time.Minute)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	if cfg.Admin.Email != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin account: %w", err)
		}
		logutil.GetLogger(context.Background()).Info("admin account ensured", zap.String("email", cfg.Admin.Email))
	}
	ragService := service.NewRAGService(chunkRepo, materialRepo, embedAI, generateAI, cfg.RAG)
	materialService := service.NewMaterialService(materialRepo, chunkRepo, store, ragService, cfg.Upload.MaxFileSizeMB)
	chatService := service.NewChatService(convRepo, msgRepo, ragService, generateAI, summarizeAI, cfg.RAG.AskLimit)
	generateService := service.NewGenerateService(ragService, generateAI)

	deps := handler.RouterDeps{
		Auth:         handler.NewAuthHandler(authService),
		Materials:    handler.NewMaterialHandler(materialService),
		Files:        handler.NewFileHandler(materialService),
		Search:       handler.NewSearchHandler(ragService),
		Chat:         handler.NewChatHandler(chatService),
		Generate:     handler.NewGenerateHandler(generateService),
		JWTSecret:    []byte(cfg.JWTSecret),
		AIRateWindow: time.Duration(cfg.AIRateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewIndexPendingJob(materialService), cfg.Jobs.IndexPendingSpec); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewCacheCleanupJob(cacheRepo, cfg.EmbedCache.MaxAgeDays), cfg.Jobs.CacheCleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// buildGenerator assembles the primary endpoint plus its fallbacks into one
// chained generator.
func buildGenerator(ep config.AIEndpoint, timeout time.Duration) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, 1+len(ep.Fallbacks))
	for _, e := range flattenEndpoints(ep) {
		provider, err := ai.NewProvider(e.Provider, e.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      e.Provider + "/" + e.Model,
			Generator: ai.NewGenerator(provider, e.Model, timeout),
		})
	}
	gen := ai.NewGroupGenerator(entries)
	if gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	return gen, nil
}

func buildEmbedder(ep config.AIEndpoint) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0, 1+len(ep.Fallbacks))
	for _, e := range flattenEndpoints(ep) {
		provider, err := ai.NewProvider(e.Provider, e.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     e.Model,
			Embedder: ai.NewEmbedder(provider, e.Model),
		})
	}
	embedder := ai.NewGroupEmbedder(entries)
	if embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return embedder, nil
}

func flattenEndpoints(ep config.AIEndpoint) []config.AIEndpoint {
	out := []config.AIEndpoint{ep}
	out = append(out, ep.Fallbacks...)
	return out
}
