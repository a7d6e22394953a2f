package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/handlers"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/cache"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/mq"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/mq/worker"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/storage"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/router"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
	"github.com/3Eeeecho/go-clouddrive/internal/services/admin"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"github.com/3Eeeecho/go-clouddrive/internal/services/share"
	"github.com/3Eeeecho/go-clouddrive/internal/setup"
	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg            *config.Config
	httpServer     *http.Server
	db             *gorm.DB
	redisClient    *redis.Client
	rabbitMQClient *mq.RabbitMQClient
	reconciler     explorer.Reconciler
	indexSyncer    explorer.IndexSyncer
}

// NewServer 负责构建所有依赖
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// 初始化数据库连接
	db, err := setup.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 初始化 Redis 连接 (可选)
	redisClient, err := setup.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	ss, err := setup.InitStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps := explorer.Deps{}

	// 初始化Elasticsearch (可选)
	if cfg.Search.Backend == "elasticsearch" {
		index, err := setup.InitElasticsearch(ctx, &cfg.Elasticsearch)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Elasticsearch: %w", err)
		}
		deps.Indexer = index
		deps.Searcher = index
	}

	//初始化rabbitmq (可选)
	var rabbitMQClient *mq.RabbitMQClient
	if cfg.RabbitMQ.URL != "" {
		rabbitMQClient, err = mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		if err := worker.DeclareQueues(cfg, rabbitMQClient); err != nil {
			rabbitMQClient.Close()
			return nil, err
		}
		deps.Scheduler = worker.NewReconcilePublisher(rabbitMQClient)
	} else {
		logger.Info("RabbitMQ not configured, pending uploads are reconciled by the sweeper only")
	}

	h, reconciler := buildHandlers(db, redisClient, ss, cfg, deps)

	var indexSyncer explorer.IndexSyncer
	if deps.Indexer != nil {
		indexSyncer = explorer.NewIndexSyncer(repositories.NewFolderRepository(db), repositories.NewFileRepository(db), cfg, deps)
	}

	// 初始化 Gin 引擎和注册路由
	engine := router.InitRouter(cfg, h)

	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           gzhttp.GzipHandler(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		cfg:            cfg,
		httpServer:     httpServer,
		db:             db,
		redisClient:    redisClient,
		rabbitMQClient: rabbitMQClient,
		reconciler:     reconciler,
		indexSyncer:    indexSyncer,
	}, nil
}

// buildHandlers 初始化 Repositories、Services 和 Handlers
func buildHandlers(
	db *gorm.DB,
	redisClient *redis.Client,
	ss storage.StorageService,
	cfg *config.Config,
	deps explorer.Deps,
) (*router.Handlers, explorer.Reconciler) {
	//  初始化 Repositories
	userRepo := repositories.NewUserRepository(db)
	folderRepo := repositories.NewFolderRepository(db)
	fileRepo := repositories.NewFileRepository(db)
	shareRepo := repositories.NewShareRepository(db)
	linkRepo := repositories.NewLinkShareRepository(db)
	if redisClient != nil {
		linkRepo = repositories.NewCachedLinkShareRepository(linkRepo, cache.NewRedisCache(redisClient), cfg.Redis.LinkTTL)
	}

	//  初始化 Services
	tm := explorer.NewTransactionManager(db)
	resolver := access.NewResolver(folderRepo, fileRepo, shareRepo, linkRepo)
	hierarchy := explorer.NewHierarchyService(folderRepo, fileRepo, resolver, tm, cfg, deps)
	fileService := explorer.NewFileService(folderRepo, fileRepo, resolver, tm, ss, cfg, deps)
	queryService := explorer.NewQueryService(folderRepo, fileRepo, cfg, deps)
	reconciler := explorer.NewReconciler(fileRepo, ss, cfg, deps)
	shareService := share.NewShareService(userRepo, shareRepo, linkRepo, resolver, tm)
	authService := admin.NewAuthService(userRepo, cfg)
	userService := admin.NewUserService(userRepo)

	//  初始化 Handlers
	return &router.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		User:   handlers.NewUserHandler(userService),
		Folder: handlers.NewFolderHandler(hierarchy),
		File:   handlers.NewFileHandler(fileService, queryService),
		Share:  handlers.NewShareHandler(shareService),
		Link:   handlers.NewLinkHandler(shareService, hierarchy, fileService),
	}, reconciler
}

// Run 启动服务器和 Worker，并处理优雅关机
func (s *Server) Run(ctx context.Context, stopChan chan os.Signal) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 确保在应用关闭时，所有连接都被释放
	defer setup.CloseDatabase(s.db)
	defer setup.CloseRedis(s.redisClient)
	if s.rabbitMQClient != nil {
		defer s.rabbitMQClient.Close()
	}

	// 启动所有后台 Worker
	if err := worker.StartAllWorkers(ctx, s.cfg, s.rabbitMQClient, s.reconciler, s.indexSyncer); err != nil {
		logger.Error("Failed to start workers", zap.Error(err))
	}

	// 启动 HTTP 服务器
	go func() {
		logger.Info(fmt.Sprintf("Server is running on %s", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 等待停止信号
	<-stopChan
	logger.Info("Shutting down server...")

	// 优雅关机
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited gracefully")
}
