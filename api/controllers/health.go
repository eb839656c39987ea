package controllers

import (
	"context"
	"net/http"

	"github.com/abdul-hamid-achik/luzimarket-backend/api/responses"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/config"
	pkgerrors "github.com/abdul-hamid-achik/luzimarket-backend/pkg/errors"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Luzimarket-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the backing stores answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, redisClient pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Luzimarket-Env", cfg.App.Env)

		checks := map[string]pinger{
			"postgres": db,
			"redis":    redisClient,
		}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]string{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
