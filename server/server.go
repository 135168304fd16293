package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DeckCast/cache"
	"DeckCast/config"
	"DeckCast/core/hub"
	"DeckCast/core/media"
	"DeckCast/core/mix"
	"DeckCast/logger"
	"DeckCast/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// Server 组装好的应用：混音状态、推送 hub、媒体库、可选的 Redis 镜像
type Server struct {
	cfg *config.Config

	service *mix.Service
	hub     *hub.Hub
	library *media.Library

	rdb    *redis.Client
	mirror *cache.NowPlayingCache

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics
}

// New 根据配置创建所有组件，Redis 连接失败只记录警告
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	routing, err := cfg.RoutingTable()
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg}

	var hubMetrics *metrics.HubMetrics
	var mirrorMetrics *metrics.MirrorMetrics
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hubMetrics = metrics.NewHubMetrics(s.registry)
		mirrorMetrics = metrics.NewMirrorMetrics(s.registry)
		s.httpMetrics = metrics.NewHTTPMetrics(s.registry)
	}

	s.hub = hub.NewHub(
		hub.WithQueueSize(cfg.Hub.QueueSize),
		hub.WithPingInterval(cfg.Hub.PingInterval),
		hub.WithMetrics(hubMetrics),
	)

	publishers := mix.Publishers{s.hub}
	if cfg.Redis.Enabled {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis mirror disabled", logger.String("addr", cfg.RedisAddr()), logger.ErrorField(err))
		} else {
			s.rdb = rdb
			s.mirror = cache.NewNowPlayingCache(rdb, cfg.Redis.KeyPrefix, cfg.Redis.SnapshotTTL, mirrorMetrics)
			publishers = append(publishers, s.mirror)
			logger.Info("redis mirror enabled", logger.String("addr", cfg.RedisAddr()))
		}
	}

	store := mix.NewStore(mix.WithVerboseEvents(cfg.Mixing.VerboseEvents))
	s.service = mix.NewService(store, routing, publishers)
	if cfg.Mixing.SeedChannelsOnAir {
		s.service.SeedChannels()
	}

	s.library, err = media.NewLibrary(cfg.Mixing.DefaultCover)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create media library: %w", err)
	}

	return s, nil
}

// Service 混音状态服务
func (s *Server) Service() *mix.Service {
	return s.service
}

// Hub 推送 hub
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Router 接入端口上的路由
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(accessLogMiddleware(s.httpMetrics))

	RegisterMixRoutes(router, NewMixHandler(s.service))
	RegisterMediaRoutes(router, NewMediaHandler(s.service.Store(), s.library))
	if s.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.PathPrefix("/").Handler(NewStaticHandler(s.cfg.HTTP.WebRoot))

	return router
}

// PushRouter 推送端口上的路由，任意路径都升级为 WebSocket
func (s *Server) PushRouter() http.Handler {
	router := mux.NewRouter()
	router.PathPrefix("/").Handler(NewPushHandler(s.hub))
	return router
}

// Close 断开订阅者，停止镜像和文件监听
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			logger.Warn("failed to close redis", logger.ErrorField(err))
		}
	}
	if s.library != nil {
		if err := s.library.Close(); err != nil {
			logger.Warn("failed to close media watcher", logger.ErrorField(err))
		}
	}
}

// Start 启动接入和推送两个监听，收到 SIGINT/SIGTERM 后关闭
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	// 推送连接是长连接，不设读写超时
	pushServer := &http.Server{
		Addr:    cfg.WSAddr(),
		Handler: s.PushRouter(),
	}

	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.Info("listener starting", logger.String("name", name), logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s listener: %w", name, err)
		}
	}
	go serve("api", apiServer)
	go serve("push", pushServer)

	logger.Info("DeckCast started",
		logger.String("api", "http://"+cfg.HTTPAddr()+"/"),
		logger.String("push", "ws://"+cfg.WSAddr()+"/"),
		logger.Any("decks", cfg.Mixing.DeckList))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case runErr = <-errCh:
		logger.Error("listener failed", logger.ErrorField(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range []*http.Server{apiServer, pushServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server forced to shutdown", logger.String("addr", srv.Addr), logger.ErrorField(err))
		}
	}

	logger.Info("Server stopped")
	return runErr
}
