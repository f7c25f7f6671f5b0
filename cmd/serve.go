package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fieldepi/geostat-cli/internal/model"
	"github.com/fieldepi/geostat-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the run-inspection HTTP server",
	Long:  "Serves run history and accepts asynchronous selection requests.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Selection fits are CPU heavy; throttle submissions.
		limiter := rate.NewLimiter(
			rate.Limit(cfg.Server.SelectionsPerMin/60),
			cfg.Server.SelectionsBurst,
		)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/runs", handleListRuns(st))
		r.Get("/runs/{id}", handleGetRun(st))
		r.Post("/selections", handleCreateSelection(ctx, st, limiter))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		filter := store.RunFilter{
			Status: model.RunStatus(req.URL.Query().Get("status")),
		}
		if l := req.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = n
		}

		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// handleCreateSelection accepts a selection request, queues it, and runs
// the search in the background. The server context, not the request
// context, owns the background work.
func handleCreateSelection(ctx context.Context, st store.Store, limiter *rate.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "selection rate limit exceeded")
			return
		}

		var body struct {
			Path       string   `json:"path"`
			Covariates []string `json:"covariates"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}

		ds, err := loadDataset(body.Path, body.Covariates)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		run, err := st.CreateRun(req.Context(), model.DatasetRef{
			Path:    body.Path,
			Label:   ds.Label,
			Records: ds.Len(),
		})
		if err != nil {
			zap.L().Error("create run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "create run failed")
			return
		}

		go func() {
			if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusSelecting); err != nil {
				zap.L().Error("update run status", zap.String("run", run.ID), zap.Error(err))
				return
			}

			result, err := runSelection(ctx, ds)
			if err != nil {
				zap.L().Error("selection failed", zap.String("run", run.ID), zap.Error(err))
				if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
					zap.L().Error("persist failure", zap.String("run", run.ID), zap.Error(failErr))
				}
				return
			}

			if err := st.CompleteRun(ctx, run.ID, result); err != nil {
				zap.L().Error("persist result", zap.String("run", run.ID), zap.Error(err))
				return
			}
			zap.L().Info("selection complete",
				zap.String("run", run.ID),
				zap.Strings("selected", result.Selected),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": run.ID,
			"status": string(model.RunStatusQueued),
		})
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
