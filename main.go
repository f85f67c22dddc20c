package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"wgdash/config"
	"wgdash/handlers"
	"wgdash/middleware"
	"wgdash/services"
	"wgdash/utils"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("=== Configuration ===")
	log.Printf("Server: %s", cfg.ServerAddr())
	log.Printf("Upstream: %s (timeout %s)", cfg.UpstreamURL(), cfg.UpstreamTimeoutDuration())
	log.Printf("Cache TTL: %s, stream interval: %s", cfg.CacheTTLDuration(), cfg.StreamIntervalDuration())

	// 2. Optional enrichment
	geo, err := utils.NewGeoResolver(cfg.GeoIP.DBPath)
	if err != nil {
		log.Printf("⚠️  GeoIP disabled: %v", err)
	}
	defer geo.Close()

	var names *utils.PeerNames
	if cfg.Peers.NamesFile != "" {
		names, err = utils.LoadPeerNames(cfg.Peers.NamesFile)
		if err != nil {
			log.Printf("⚠️  Peer names not loaded: %v", err)
		} else {
			log.Printf("✓ Loaded %d peer names from %s", names.Len(), cfg.Peers.NamesFile)
		}
	}

	// 3. Core services
	upstream := services.NewUpstreamClient(cfg)
	cache := services.NewCacheService(cfg, upstream)
	aggregator := services.NewDataAggregator(cache, geo, names)

	cache.Start()
	log.Printf("✓ Cache Service started (mode: %s)", cache.Mode())

	// 4. Web Server
	e := echo.New()
	e.HideBanner = true

	// event streams live until their request context ends, so tie every
	// request to a context that shutdown can cancel
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	e.Server.BaseContext = func(net.Listener) context.Context { return baseCtx }

	e.Use(middleware.LoggerMiddleware())
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	e.Use(echomw.Recover())

	h := handlers.NewHandler(cfg, cache, aggregator)
	cacheHandlers := handlers.NewCacheHandlers(cache)

	// 5. Routes
	e.GET("/", h.Index)
	e.GET("/health", h.GetHealth)
	e.GET("/cache/status", cacheHandlers.GetCacheStatus)
	e.POST("/cache/clear", cacheHandlers.ClearCache)

	api := e.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/wireguard", h.GetWireGuard)
	api.GET("/stream", h.Stream)

	// 6. Start HTTP Server
	serverAddr := cfg.ServerAddr()

	go func() {
		log.Printf("🚀 Server running on http://%s", serverAddr)
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("shutting down the server: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Graceful shutdown initiated...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelStreams()
	cache.Stop()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Shutdown did not finish cleanly: %v", err)
		_ = e.Close()
	}
	log.Println("✓ Server exited cleanly")
}
