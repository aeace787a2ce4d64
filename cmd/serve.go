package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Engine),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := signalessContext(10 * time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("api server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// signalessContext returns a fresh timeout context detached from the
// already-cancelled signal context, for graceful shutdown.
func signalessContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func newRouter(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/leads/analyze", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			TenantID            string           `json:"tenant_id"`
			Lead                model.LeadRecord `json:"lead"`
			IncludeOptimization bool             `json:"include_optimization"`
			ForceRefresh        bool             `json:"force_refresh"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := eng.Analyze(req.Context(), body.Lead, body.TenantID, engine.AnalyzeOptions{
			IncludeOptimization: body.IncludeOptimization,
			ForceRefresh:        body.ForceRefresh,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/v1/leads/batch", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			TenantID  string             `json:"tenant_id"`
			Leads     []model.LeadRecord `json:"leads"`
			BatchSize int                `json:"batch_size"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		results, err := eng.DetectBatch(req.Context(), body.Leads, body.TenantID, body.BatchSize)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	})

	r.Get("/v1/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, eng.PerformanceMetrics())
	})

	r.Post("/v1/circuit/reset", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"reset": eng.ResetCircuitBreaker()})
	})

	r.Put("/v1/patterns", func(w http.ResponseWriter, req *http.Request) {
		var pattern model.Pattern
		if err := json.NewDecoder(req.Body).Decode(&pattern); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !eng.UpsertPattern(pattern) {
			writeError(w, http.StatusBadRequest, "pattern id is required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"upserted": true})
	})

	return r
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case resilience.IsValidation(err):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		zap.L().Error("analysis request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
