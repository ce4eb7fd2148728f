package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/exitengine"
	"positionkeeper/src/mode"
	"positionkeeper/src/slots"
	"positionkeeper/src/targetcache"
)

// Status bundles the read-only views the server exposes.
type Status struct {
	Accountant *slots.Accountant
	Targets    *targetcache.Cache
}

func Router(status Status) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/healthcheck error")
		}
	})

	r.Get("/slots", func(w http.ResponseWriter, r *http.Request) {
		counts := make(map[string]int)
		if status.Accountant != nil {
			for kind := mode.KindNormal; kind <= mode.KindScalp; kind++ {
				counts[kind.String()] = status.Accountant.OpenCount(kind)
			}
		}
		writeJSON(w, counts)
	})

	r.Get("/targets", func(w http.ResponseWriter, r *http.Request) {
		type entry struct {
			State string              `json:"state"`
			Rec   *targetcache.Record `json:"record"`
		}
		targets := make(map[string]entry)
		if status.Targets != nil {
			for _, symbol := range status.Targets.Symbols() {
				rec := status.Targets.Get(symbol)
				targets[symbol] = entry{State: exitengine.StateOf(rec).String(), Rec: rec}
			}
		}
		writeJSON(w, targets)
	})

	return r
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func StartServer(port string, status Status) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: Router(status),
	}

	go func() {
		logger.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
