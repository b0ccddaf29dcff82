package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/minerva/internal/kb/biz"
	"github.com/kart-io/minerva/internal/kb/handler"
	"github.com/kart-io/minerva/internal/kb/router"
	"github.com/kart-io/minerva/internal/kb/store"
	"github.com/kart-io/minerva/pkg/app"
	"github.com/kart-io/minerva/pkg/component/milvus"
	"github.com/kart-io/minerva/pkg/component/mongodb"
	"github.com/kart-io/minerva/pkg/component/redis"
	"github.com/kart-io/minerva/pkg/component/storage"
	"github.com/kart-io/minerva/pkg/llm"

	// 注册嵌入供应商
	_ "github.com/kart-io/minerva/pkg/llm/ollama"
	_ "github.com/kart-io/minerva/pkg/llm/openai"
)

const (
	appName        = "minerva-kb"
	appDescription = `Minerva Knowledge Base Service

A hierarchical document knowledge base backed by MongoDB and Milvus.

This server provides:
  - Hierarchical section management (create, update, delete, move)
  - Section lookup by ID, dotted path, or slug
  - Semantic similarity search over section content
  - Document tree rendering and text export`

	// bootstrapTimeout 存储初始化（索引、集合）的超时时间。
	bootstrapTimeout = 30 * time.Second
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the knowledge base service with the given options.
func Run(opts *Options) error {
	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting knowledge base service...")

	// 2. 初始化 MongoDB 客户端（结构化存储）
	mongoClient, err := mongodb.New(opts.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to initialize mongodb: %w", err)
	}
	defer func() { _ = mongoClient.Close() }()
	logger.Info("MongoDB client initialized")

	// 3. 初始化 Milvus 客户端（向量存储）
	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to initialize milvus: %w", err)
	}
	defer func() { _ = milvusClient.Close(context.Background()) }()
	logger.Info("Milvus client initialized")

	storageMgr := storage.NewManager()
	storageMgr.MustRegister(mongoClient.Name(), mongoClient)

	// 4. 初始化 Redis 客户端（检索缓存，可选）
	var redisClient *redis.Client
	if opts.Cache.Enabled {
		redisClient, err = redis.New(opts.Cache.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		storageMgr.MustRegister(redisClient.Name(), redisClient)
		logger.Info("Redis client initialized")
	}

	cacheCfg := &biz.SearchCacheConfig{
		Enabled:   opts.Cache.Enabled,
		TTL:       opts.Cache.TTL,
		KeyPrefix: opts.Cache.KeyPrefix,
	}
	var searchCache *biz.SearchCache
	if redisClient != nil {
		searchCache = biz.NewSearchCache(redisClient.Client(), cacheCfg)
	} else {
		searchCache = biz.NewSearchCache(nil, cacheCfg)
	}

	// 5. 初始化存储层
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	sections := store.NewMongoStore(mongoClient)
	if err := sections.EnsureIndexes(bootstrapCtx); err != nil {
		return fmt.Errorf("failed to ensure mongodb indexes: %w", err)
	}

	chunks := store.NewMilvusChunkStore(milvusClient, opts.KB.Collection, opts.KB.EmbeddingDim)
	if err := chunks.EnsureCollection(bootstrapCtx); err != nil {
		return fmt.Errorf("failed to ensure milvus collection: %w", err)
	}
	logger.Info("Storage layer initialized")

	// 6. 初始化嵌入供应商
	provider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized", "provider", provider.Name())

	// 7. 初始化 Biz 层
	kbService := biz.NewService(sections, chunks, provider, searchCache, &biz.Config{
		ChunkSize: opts.KB.ChunkSize,
		TopK:      opts.KB.TopK,
		ExportDir: opts.KB.ExportDir,
	})
	logger.Info("Knowledge base service initialized")

	// 8. 初始化 Handler 层与路由
	kbHandler := handler.NewKBHandler(kbService)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, kbHandler, storageMgr)

	// 9. 启动 HTTP 服务器
	srv := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", opts.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case sig := <-quit:
		logger.Infow("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), opts.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
