package controllers

import (
	"context"
	"net/http"

	"github.com/sorbeteslab/sorbetes-backend/api/responses"
	"github.com/sorbeteslab/sorbetes-backend/pkg/config"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
)

const envHeader = "X-Sorbetes-Env"

// Pinger is the readiness surface a dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg != nil {
			w.Header().Set(envHeader, cfg.App.Env)
		}
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg != nil {
			w.Header().Set(envHeader, cfg.App.Env)
		}
		status := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				status[name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" not ready").WithDetails(status))
				return
			}
			status[name] = "up"
		}
		responses.WriteSuccess(w, status)
	}
}
