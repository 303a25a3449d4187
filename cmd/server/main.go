// Package main runs the virtual wallet service: a simulated multi-chain
// wallet with swap settlement priced by an external quoting API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"virtual-wallet-lab/internal/chains"
	"virtual-wallet-lab/internal/domain"
	"virtual-wallet-lab/internal/ledger"
	"virtual-wallet-lab/internal/normalization"
	"virtual-wallet-lab/internal/observability"
	"virtual-wallet-lab/internal/oneinch"
	"virtual-wallet-lab/internal/settlement"
	"virtual-wallet-lab/internal/storage"
	"virtual-wallet-lab/internal/storage/memory"
	"virtual-wallet-lab/internal/storage/migrations"
	pgstore "virtual-wallet-lab/internal/storage/postgres"
)

// Server holds the service components and request counters.
type Server struct {
	engine *settlement.Engine
	logger *log.Logger

	mu          sync.Mutex
	started     time.Time
	settlements int
	previews    int
	useMemory   bool
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	quoteBaseURL := flag.String("quote-base-url", envOr("ONEINCH_BASE_URL", "https://api.1inch.dev"), "Quoting API base URL")
	quoteAPIKey := flag.String("quote-api-key", os.Getenv("ONEINCH_API_KEY"), "Quoting API bearer token")
	quoteTimeout := flag.Duration("quote-timeout", 30*time.Second, "Quoting API request timeout")
	metadataTTL := flag.Duration("metadata-ttl", normalization.DefaultMetadataTTL, "Token metadata cache TTL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	walletStore, recordStore, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	client := oneinch.NewHTTPClient(*quoteBaseURL,
		oneinch.WithAPIKey(*quoteAPIKey),
		oneinch.WithTimeout(*quoteTimeout),
	)
	normalizer := normalization.New(client,
		normalization.WithMetadataTTL(*metadataTTL),
		normalization.WithLogger(log.New(os.Stdout, "[normalizer] ", log.LstdFlags)),
	)
	engine := settlement.New(walletStore, recordStore, normalizer,
		settlement.WithLogger(log.New(os.Stdout, "[settlement] ", log.LstdFlags|log.Lshortfile)),
		settlement.WithSpotPricer(client),
	)

	server := &Server{
		engine:    engine,
		logger:    logger,
		started:   time.Now(),
		useMemory: *useMemory,
	}

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	// Uptime heartbeat for the health metrics.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.DefaultMetrics.UptimeSeconds.Inc()
			}
		}
	}()

	logger.Printf("Listening on %s (memory=%t)", *listenAddr, *useMemory)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores wires the wallet and swap record stores.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (storage.WalletStore, storage.SwapRecordStore, func(), error) {
	if useMemory {
		return memory.NewWalletStore(), memory.NewSwapRecordStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}
	return pgstore.NewWalletStore(pool), pgstore.NewSwapRecordStore(pool), cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/settle", s.handleSettle)
	mux.HandleFunc("/wallet", s.handleWallet)
	mux.HandleFunc("/position", s.handlePosition)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/prices/refresh", s.handleRefreshPrices)

	return mux
}

// settleRequest is the JSON body for POST /settle.
type settleRequest struct {
	UserID  string            `json:"user_id"`
	Intent  domain.SwapIntent `json:"intent"`
	Execute bool              `json:"execute"`
}

// handleSettle previews or executes one swap settlement.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := s.engine.Settle(r.Context(), req.UserID, req.Intent, req.Execute)
	if err != nil {
		s.writeSettlementError(w, err)
		return
	}

	s.mu.Lock()
	if req.Execute {
		s.settlements++
	} else {
		s.previews++
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

// handleWallet returns the user's wallet, creating and seeding it on first
// access.
func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	wallet, err := s.engine.GetWalletSnapshot(r.Context(), userID)
	if err != nil {
		s.writeSettlementError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// handlePosition returns one token position.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	address := r.URL.Query().Get("address")
	chainID, err := strconv.ParseInt(r.URL.Query().Get("chain_id"), 10, 64)
	if userID == "" || address == "" || err != nil {
		writeError(w, http.StatusBadRequest, "user_id, chain_id and address are required")
		return
	}

	pos, err := s.engine.GetPosition(r.Context(), userID, chainID, address)
	if err != nil {
		s.writeSettlementError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// handleHistory returns the user's executed settlements, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := s.engine.History(r.Context(), userID, limit, offset)
	if err != nil {
		s.writeSettlementError(w, err)
		return
	}
	if records == nil {
		records = []*domain.SwapRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRefreshPrices re-prices every position from the spot price feed.
func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	wallet, err := s.engine.RefreshPrices(r.Context(), userID)
	if err != nil {
		s.writeSettlementError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Settlements int    `json:"settlements"`
	Previews    int    `json:"previews"`
	MemoryStore bool   `json:"memory_store"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Settlements: s.settlements,
		Previews:    s.previews,
		MemoryStore: s.useMemory,
	})
}

// writeSettlementError maps the settlement error taxonomy onto HTTP status
// codes.
func (s *Server) writeSettlementError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientBalanceError

	switch {
	case errors.Is(err, settlement.ErrWalletNotFound),
		errors.Is(err, ledger.ErrPositionNotFound),
		errors.Is(err, settlement.ErrSourceTokenNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficient),
		errors.Is(err, settlement.ErrInvalidSlippage),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, chains.ErrUnsupportedChain):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, settlement.ErrPersistenceConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, oneinch.ErrQuoteUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// envOr returns the environment value or a default.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
