package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"github.com/username/equitytracker/backend/src/config"
	"github.com/username/equitytracker/backend/src/database"
	"github.com/username/equitytracker/backend/src/handlers"
	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/parsers"
	"github.com/username/equitytracker/backend/src/services"
	"github.com/username/equitytracker/backend/src/storage"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.AllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Equity tracker backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	logger.L.Info("Initializing session cache...")
	sessionCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	priceStore := storage.NewSQLitePriceStore(database.DB)
	priceSource := services.NewAlphaVantageClient(config.Cfg.AlphaVantageBaseURL, config.Cfg.AlphaVantageAPIKey, config.Cfg.PriceFetchTimeout)
	priceProvider := services.NewPriceCoordinator(priceSource, priceStore, sessionCache, config.Cfg.PriceFetchConcurrency)
	equityService := services.NewEquityService(priceProvider, sessionCache)

	normalizeHandler := handlers.NewNormalizeHandler(parsers.NewReportNormalizer())
	equityHandler := handlers.NewEquityHandler(parsers.NewTransactionParser(), equityService)
	cacheHandler := handlers.NewCacheHandler(priceStore)

	logger.L.Info("Scheduling price refresh job...", "schedule", config.Cfg.PriceRefreshSchedule)
	scheduler := cron.New()
	if _, err := scheduler.AddJob(config.Cfg.PriceRefreshSchedule, services.NewPriceRefresher(priceSource, priceStore)); err != nil {
		logger.L.Error("Invalid PRICE_REFRESH_SCHEDULE, refresh job disabled", "schedule", config.Cfg.PriceRefreshSchedule, "error", err)
	} else {
		scheduler.Start()
		defer scheduler.Stop()
	}

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/normalize", normalizeHandler.HandleNormalize)
	apiRouter.HandleFunc("POST /api/equity", equityHandler.HandleEquity)
	apiRouter.HandleFunc("GET /api/cache", cacheHandler.HandleGetCache)
	apiRouter.HandleFunc("POST /api/cache", cacheHandler.HandleUpdateCache)
	apiRouter.HandleFunc("DELETE /api/cache", cacheHandler.HandleClearCache)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Equity tracker backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
