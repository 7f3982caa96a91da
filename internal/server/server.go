// Package server provides the HTTP API for receipt preprocessing and
// split calculation.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikhail/check-split/internal/extraction"
	"github.com/mikhail/check-split/internal/llm"
	"github.com/mikhail/check-split/internal/receipt"
	"github.com/mikhail/check-split/internal/server/ratelimit"
)

// extractionGateway is the slice of the extraction API the handlers use.
type extractionGateway interface {
	ExtractText(ctx context.Context, image []byte, mimeHint string) (string, error)
	ClassifyCheck(ctx context.Context, text string) (bool, error)
	ExtractReceipt(ctx context.Context, text string) (receipt.ParsedReceipt, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	gateway     extractionGateway
	llmClient   llm.Client
	uploadDir   string
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port      int
	APIKey    string
	UploadDir string

	// Optional per-tier model overrides.
	ModelLite     string
	ModelStandard string
	ModelAdvanced string
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	modelConfig := llm.DefaultGeminiConfig()
	if cfg.ModelLite != "" {
		modelConfig = modelConfig.WithModel(llm.TierLite, cfg.ModelLite)
	}
	if cfg.ModelStandard != "" {
		modelConfig = modelConfig.WithModel(llm.TierStandard, cfg.ModelStandard)
	}
	if cfg.ModelAdvanced != "" {
		modelConfig = modelConfig.WithModel(llm.TierAdvanced, cfg.ModelAdvanced)
	}

	client, err := llm.NewClient(context.Background(), modelConfig, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	s := &Server{
		gateway:   extraction.NewGateway(client),
		llmClient: client,
		uploadDir: uploadDir,
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // OCR plus extraction can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the request multiplexer.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /preprocess_receipt", s.handlePreprocessReceipt)
	mux.HandleFunc("POST /calculate_split", s.handleCalculateSplit)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			log.Printf("Error closing LLM client: %v", err)
		}
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; X-Forwarded-For would only be safe
// behind a trusted proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
