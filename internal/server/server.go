package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/spicycabbage/spotdiff/internal/config"
	"github.com/spicycabbage/spotdiff/internal/frontend"
	"github.com/spicycabbage/spotdiff/internal/game"
	"github.com/spicycabbage/spotdiff/internal/payment"
	"k8s.io/klog/v2"
)

// ServerState holds the levels, the rules and the live sessions, one per connection.
type ServerState struct {
	// Address the server is listening to, set once it started.
	Address string

	levels   []game.Level
	rules    game.Rules
	payments *payment.Service

	mu       sync.RWMutex
	Sessions map[string]*Connection
}

// NewServerState creates the server state. payments may be nil if purchases are not served.
func NewServerState(levels []game.Level, rules game.Rules, payments *payment.Service) *ServerState {
	return &ServerState{
		levels:   levels,
		rules:    rules,
		payments: payments,
		Sessions: make(map[string]*Connection),
	}
}

// Run starts the server and blocks until the context is canceled.
// If started is not nil, the server state is sent to it once the server is listening.
func Run(ctx context.Context, cfg *config.Config, started chan<- *ServerState) error {
	levels, err := loadLevels(cfg.Game.LevelsFile)
	if err != nil {
		return err
	}

	payments, closePayments, err := newPaymentService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePayments()

	s := NewServerState(levels, cfg.Game.Rules(), payments)

	// Register go-app routes so the server knows how to prerender them.
	frontend.InitState()
	frontend.RegisterRoutes()

	h := &app.Handler{
		Name:        "Spot the Difference",
		ShortName:   "SpotDiff",
		Description: "Find the five differences before the time runs out",
		Version:     game.Version,
		Styles: []string{
			"/web/css/main.css",
		},
	}

	addr := cfg.Server.Addr
	if addr == "" {
		addr = "localhost:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", addr, err)
	}
	s.Address = listener.Addr().String()

	srv := &http.Server{
		Handler:      s.Router(cfg.Server.WebDir, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		klog.Infof("Server started on http://%s (%d levels, payments enabled: %t)", s.Address, len(levels), payments.Enabled())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("Server error: %v", err)
		}
	}()
	if started != nil {
		started <- s
	}

	<-ctx.Done()

	// Graceful shutdown with 5 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	klog.Infof("Shutting down server...")
	s.closeSessions()
	return srv.Shutdown(shutdownCtx)
}

func loadLevels(path string) ([]game.Level, error) {
	if path == "" {
		return game.DefaultLevels(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open levels: %w", err)
	}
	defer f.Close()
	levels, err := game.LoadLevels(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load levels from %q: %w", path, err)
	}
	for i, level := range levels {
		if err := level.Validate(); err != nil {
			klog.Warningf("Level %d: %v", i+1, err)
		}
	}
	return levels, nil
}

// newPaymentService wires the payment provider, the pending grants store and the ledger.
// Redis is optional: if not configured or unreachable, pending grants are kept in memory.
func newPaymentService(ctx context.Context, cfg *config.Config) (*payment.Service, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				klog.Warningf("Failed to close payment resources: %v", err)
			}
		}
	}

	ledger, err := payment.OpenLedger(cfg.Ledger.Path)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, ledger.Close)

	var pending payment.PendingStore = payment.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		store := payment.NewRedisStore(&cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			klog.Warningf("Redis connection failed, keeping pending powerups in memory: %v", err)
			_ = store.Close()
		} else {
			klog.Infof("Redis connected at %s", cfg.Redis.Addr)
			pending = store
			closers = append(closers, store.Close)
		}
	}

	var provider payment.Provider
	if cfg.Payment.Enabled() {
		provider = payment.NewStripeProvider(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret)
	} else {
		klog.Warningf("No Stripe secret key configured: purchases are disabled")
	}
	return payment.NewService(provider, pending, ledger, cfg.Payment.Currency), closeAll, nil
}

// Router returns the HTTP routes: the WebSocket endpoint, the JSON API, the static files
// in webDir and, for everything else, the UI handler.
func (s *ServerState) Router(webDir string, ui http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ws", s.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Stripe-Signature"},
		}))
		r.Use(middleware.Timeout(15 * time.Second))
		r.Get("/levels", s.levelImages)
		if s.payments != nil {
			payment.NewHandler(s.payments).RegisterRoutes(r)
		}
	})

	// We want to serve /web for static files
	r.Handle("/web/*", http.StripPrefix("/web/", http.FileServer(http.Dir(webDir))))
	if ui != nil {
		r.Handle("/*", ui)
	}
	return r
}

// requestLogger logs every request through klog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		klog.V(1).Infof("%s %s %d %dB %s [%s %s]", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(start), r.RemoteAddr, middleware.GetReqID(r.Context()))
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Levels   int    `json:"levels"`
	Sessions int    `json:"sessions"`
	Payments bool   `json:"payments"`
}

func (s *ServerState) health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := healthResponse{
		Status:   "ok",
		Version:  game.Version,
		Levels:   len(s.levels),
		Sessions: len(s.Sessions),
		Payments: s.payments != nil && s.payments.Enabled(),
	}
	s.mu.RUnlock()
	writeJSON(w, resp)
}

// LevelImages lists the images of a level, for preloading.
type LevelImages struct {
	ImageLeft  string `json:"imageLeft"`
	ImageRight string `json:"imageRight"`
}

// levelImages serves the image pairs of all levels. The differences are never sent out.
func (s *ServerState) levelImages(w http.ResponseWriter, r *http.Request) {
	images := make([]LevelImages, len(s.levels))
	for i, level := range s.levels {
		images[i] = LevelImages{ImageLeft: level.ImageLeft, ImageRight: level.ImageRight}
	}
	writeJSON(w, map[string]any{"levels": images})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("Failed to write response: %v", err)
	}
}
