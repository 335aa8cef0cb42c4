// Package wait blocks container entrypoints until their persistence
// backend is ready to serve. Probes run at a constant interval inside a
// bounded window, both configurable through environment variables, so a
// crashing backend turns into a clean startup failure instead of a hang.
package wait

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gluufederation/containerlib-go/pkg/errors"
	"github.com/gluufederation/containerlib-go/pkg/persistence"
	"github.com/gluufederation/containerlib-go/pkg/persistence/couchbase"
	"github.com/gluufederation/containerlib-go/pkg/persistence/sql"
	"github.com/gluufederation/containerlib-go/pkg/retry"
)

// Wait window defaults, in seconds.
const (
	DefaultMaxTime       = 300
	DefaultSleepDuration = 10
)

// GetMaxTime returns how long to keep probing, in seconds, from
// GLUU_WAIT_MAX_TIME. Values below one are clamped to one.
func GetMaxTime() int {
	return clampedIntEnv("GLUU_WAIT_MAX_TIME", DefaultMaxTime)
}

// GetSleepDuration returns the pause between probes, in seconds, from
// GLUU_WAIT_SLEEP_DURATION. Values below one are clamped to one.
func GetSleepDuration() int {
	return clampedIntEnv("GLUU_WAIT_SLEEP_DURATION", DefaultSleepDuration)
}

func clampedIntEnv(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		val = fallback
	}
	if val < 1 {
		val = 1
	}
	return val
}

// newRetryer builds a constant-interval retryer spanning the configured
// wait window.
func newRetryer(logger *slog.Logger, label string) *retry.Retryer {
	interval := GetSleepDuration()
	attempts := GetMaxTime() / interval
	if attempts < 1 {
		attempts = 1
	}

	return retry.New(retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Duration(interval) * time.Second,
		MaxDelay:     time.Duration(interval) * time.Second,
		Multiplier:   1.0,
		Jitter:       false,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn("Backend not ready",
				"backend", label, "attempt", attempt, "reason", err, "retry_in", delay)
		},
	})
}

// WaitForCouchbase blocks until the Couchbase data service answers the
// bucket listing. The superuser credentials are preferred when a
// superuser is configured.
func WaitForCouchbase(ctx context.Context) error {
	logger := slog.Default()
	hosts := couchbase.GetHosts()

	user := couchbase.GetSuperuser()
	var password string
	var err error
	if user != "" {
		password, err = couchbase.GetSuperuserPassword()
	} else {
		user = couchbase.GetUser()
		password, err = couchbase.GetPassword()
	}
	if err != nil {
		return err
	}

	client := couchbase.NewClient(hosts, user, password)
	err = newRetryer(logger, "Couchbase").DoWithContext(ctx, func(ctx context.Context) error {
		resp, err := client.GetBuckets(ctx)
		if err != nil {
			return errors.NewError(errors.ErrCodeConnectionFailed,
				fmt.Sprintf("unable to connect to host %s: %v", hosts, err)).
				WithComponent("wait").
				WithCause(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return errors.NewError(errors.ErrCodeConnectionFailed,
				fmt.Sprintf("unable to connect to host %s: %s", hosts, resp.Status)).
				WithComponent("wait")
		}
		return nil
	})
	if err != nil {
		logger.Error("Couchbase is not ready", "hosts", hosts, "reason", err)
		return err
	}

	logger.Info("Couchbase is ready", "hosts", hosts)
	return nil
}

// WaitForSQL blocks until the configured relational engine answers a
// liveness query.
func WaitForSQL(ctx context.Context) error {
	logger := slog.Default()

	client, err := sql.NewClient()
	if err != nil {
		return err
	}

	err = newRetryer(logger, "SQL").DoWithContext(ctx, func(ctx context.Context) error {
		alive, err := client.Connected(ctx)
		if err != nil {
			return errors.NewError(errors.ErrCodeConnectionFailed,
				fmt.Sprintf("sql backend is unreachable: %v", err)).
				WithComponent("wait").
				WithCause(err)
		}
		if !alive {
			return errors.NewError(errors.ErrCodeConnectionFailed,
				"sql backend is not fully initialized").
				WithComponent("wait")
		}
		return nil
	})
	if err != nil {
		logger.Error("SQL backend is not ready",
			"host", sql.GetHost(), "database", sql.GetDatabase(), "reason", err)
		return err
	}

	logger.Info("SQL backend is ready")
	return nil
}

// WaitFor dispatches on the deployment's persistence type: couchbase and
// hybrid deployments wait on Couchbase, sql deployments on the
// relational engine.
func WaitFor(ctx context.Context, persistenceType persistence.Type) error {
	switch persistenceType {
	case persistence.Couchbase, persistence.Hybrid:
		return WaitForCouchbase(ctx)
	case persistence.SQL:
		return WaitForSQL(ctx)
	}
	return errors.NewError(errors.ErrCodeInvalidConfig,
		fmt.Sprintf("no readiness probe for persistence type %s", persistenceType)).
		WithComponent("wait")
}
