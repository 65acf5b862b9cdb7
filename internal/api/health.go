package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

type dependency struct {
	name     string
	check    Check
	critical bool
}

type HealthHandler struct {
	deps    []dependency
	env     string
	version string
}

func NewHealthHandler(env, version string) *HealthHandler {
	return &HealthHandler{env: env, version: version}
}

// WithCheck registers a dependency. A failing critical dependency makes the
// service unavailable, a failing optional one only degrades it.
func (h *HealthHandler) WithCheck(name string, critical bool, check Check) *HealthHandler {
	h.deps = append(h.deps, dependency{name: name, check: check, critical: critical})
	return h
}

func PostgresCheck(pool *pgxpool.Pool) Check {
	return pool.Ping
}

func RedisCheck(client *redis.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.deps))
	status := "ok"

	ordered := append([]dependency(nil), h.deps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].critical && !ordered[j].critical })

	for _, d := range ordered {
		checkCtx, checkCancel := context.WithTimeout(ctx, time.Second)
		err := d.check(checkCtx)
		checkCancel()

		if err == nil {
			deps[d.name] = "ok"
			continue
		}
		deps[d.name] = "down"
		switch {
		case d.critical:
			status = "error"
		case status == "ok":
			status = "degraded"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
