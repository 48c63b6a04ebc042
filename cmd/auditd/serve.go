package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/logging"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/metrics"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/rulesource"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/store"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/trace"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the audited HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to auditd.yaml")
	return cmd
}

func runServe(ctx context.Context, cfg serverConfig) error {
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	auditCfg, err := cfg.auditConfig()
	if err != nil {
		return err
	}

	// The memory store always backs the inspection endpoint; durable
	// drivers are fanned out alongside it.
	memory := store.NewMemory(cfg.Audit.Store.MemoryCapacity)
	recordStore, err := buildStore(cfg, memory)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	registry := prometheus.NewRegistry()
	src := rulesource.NewFile(cfg.Audit.RuleFile)

	pipeline, err := audit.NewPipeline(auditCfg, src, recordStore,
		audit.WithPipelineLogger(logger),
		audit.WithPipelineMetrics(metrics.New(registry)),
		audit.WithPipelineIdentity(audit.ContextIdentity{}))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if auditCfg.Enabled {
		pipeline.Start(ctx)
	}
	defer pipeline.Close() //nolint:errcheck

	if auditCfg.Enabled && cfg.Audit.WatchRules {
		stopWatch, err := src.Watch(ctx, pipeline.Refresher.Kick)
		if err != nil {
			logger.Warn("rule file watch unavailable, relying on periodic refresh", "error", err)
		} else {
			defer stopWatch() //nolint:errcheck
		}
	}

	router := mux.NewRouter()
	registerDemoAPI(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/audit/records", recordsHandler(memory)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var handler http.Handler = router
	if auditCfg.Enabled {
		handler = pipeline.Interceptor.Middleware(handler)
	}
	handler = trace.Middleware(handler)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("auditd listening", "addr", cfg.Listen,
			"rules", pipeline.Resolver.RuleCount(), "store", cfg.Audit.Store.Driver)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildStore assembles the persistence stack from configuration. The
// memory store is always included so /audit/records has data to show.
func buildStore(cfg serverConfig, memory *store.Memory) (audit.Store, error) {
	switch cfg.Audit.Store.Driver {
	case "", "memory":
		return memory, nil
	case "sqlite":
		path := cfg.Audit.Store.Path
		if path == "" {
			path = "auditd.db"
		}
		db, err := store.NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return store.NewMulti(memory, db), nil
	case "jsonl":
		path := cfg.Audit.Store.Path
		if path == "" {
			path = "auditd.jsonl"
		}
		f, err := store.NewJSONL(path)
		if err != nil {
			return nil, err
		}
		return store.NewMulti(memory, f), nil
	default:
		return nil, errors.New("config: unknown store driver " + cfg.Audit.Store.Driver)
	}
}

// recordsHandler lists recently persisted records from the memory buffer.
func recordsHandler(memory *store.Memory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(memory.List()) //nolint:errcheck
	}
}

// registerDemoAPI mounts a minimal business surface so the pipeline has
// something to audit out of the box.
func registerDemoAPI(router *mux.Router) {
	router.HandleFunc("/api/ext/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			User     string `json:"user"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.User == "" {
			http.Error(w, `{"error":"invalid credentials payload"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"user":  creds.User,
			"token": "demo-token",
		})
	}).Methods(http.MethodPost)

	router.HandleFunc("/api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{ //nolint:errcheck
			{"id": 1, "plan": "enterprise", "active": true},
			{"id": 2, "plan": "trial", "active": false},
		})
	}).Methods(http.MethodGet)
}
