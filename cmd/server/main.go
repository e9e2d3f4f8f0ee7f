package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/annafiu/twabillsplitter/internal/config"
	"github.com/annafiu/twabillsplitter/internal/extraction"
	"github.com/annafiu/twabillsplitter/internal/metrics"
	"github.com/annafiu/twabillsplitter/internal/middleware"
	"github.com/annafiu/twabillsplitter/internal/rpc"
	"github.com/annafiu/twabillsplitter/internal/service"
	"github.com/annafiu/twabillsplitter/internal/storage"
	"github.com/annafiu/twabillsplitter/internal/storage/sqlite"
	"github.com/annafiu/twabillsplitter/internal/token"
	"github.com/annafiu/twabillsplitter/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWith(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath, "session_ttl", cfg.SessionTTL)

	heuristics, err := config.NewHeuristicsHolder(cfg.HeuristicsConfig)
	if err != nil {
		return fmt.Errorf("failed to load heuristics: %w", err)
	}

	reg := metrics.NewRegistry()
	go storage.RunJanitor(ctx, store, cfg.SessionPurgeInterval, func(n int64) {
		reg.SessionsPurged.Add(float64(n))
	})

	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, extraction will fail and users must enter receipts manually")
	}
	model := extraction.NewGeminiClient(extraction.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.ExtractTimeout,
	})
	extractor := extraction.NewService(model, extraction.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Timeout:        cfg.ExtractTimeout,
		Retry:          cfg.RetryPolicy(),
	}, heuristics, reg)

	tokens := token.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	svc := service.NewSplitService(store, tokens, extractor, reg)

	mux := http.NewServeMux()

	// Register Connect services
	splitPath, splitHandler := rpc.NewSplitServiceHandler(svc,
		connect.WithInterceptors(
			middleware.MetricsInterceptor(reg),
			middleware.LoggingInterceptor(),
			middleware.RequireSession(tokens, rpc.PublicProcedures...),
		),
		// Base64 in JSON grows uploads by a third.
		connect.WithReadMaxBytes(int(cfg.MaxUploadBytes)*4/3+64<<10),
	)
	mux.Handle(splitPath, splitHandler)

	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	staticDir, err := filepath.Abs(cfg.StaticPath)
	if err != nil {
		return fmt.Errorf("failed to resolve static path: %w", err)
	}
	slog.Info("Serving static files", "path", staticDir)
	mux.Handle("/", staticHandler(staticDir))

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	// Extractions can take a while; give them time to land in the session.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ExtractTimeout+5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// staticHandler serves the frontend, falling back to index.html.
func staticHandler(staticDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unknown Connect procedures must not get the HTML page.
		if strings.HasPrefix(r.URL.Path, "/"+rpc.SplitServiceName) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		http.ServeFile(w, r, filePath)
	})
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+rpc.SessionTokenHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
