package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings the SQL backing store.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

type Component struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	Status     string               `json:"status"`
	CheckedAt  time.Time            `json:"checkedAt"`
	Components map[string]Component `json:"components"`
}

// runChecks calls every checker concurrently and collects one Component
// per name. Healthy is false when any checker failed.
func runChecks(ctx context.Context, checkers map[string]HealthChecker) (map[string]Component, bool) {
	var (
		mu      sync.Mutex
		healthy = true
		out     = make(map[string]Component, len(checkers))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, c := range checkers {
		name, c := name, c
		g.Go(func() error {
			comp := Component{Status: "up"}
			if err := c.Check(gctx); err != nil {
				comp = Component{Status: "down", Error: err.Error()}
			}
			mu.Lock()
			out[name] = comp
			if comp.Status != "up" {
				healthy = false
			}
			mu.Unlock()
			// error tidak dipropagasi supaya checker lain tetap jalan
			return nil
		})
	}
	_ = g.Wait()
	return out, healthy
}

// HealthHandler reports every component and answers 503 when one is down.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		comps, healthy := runChecks(ctx, checkers)
		rep := Report{Status: "up", CheckedAt: time.Now().UTC(), Components: comps}
		code := http.StatusOK
		if !healthy {
			rep.Status = "down"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(rep)
	}
}

// ReadinessHandler only answers ready/not ready, without component details.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		_, healthy := runChecks(ctx, checkers)
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"ready":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"ready":true}`))
	}
}

func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
