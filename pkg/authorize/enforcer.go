package authorize

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	psqlwatcher "github.com/IguteChung/casbin-psql-watcher"
	casbin "github.com/casbin/casbin/v2"
	entadapter "github.com/casbin/ent-adapter"
)

// PolicyChannel is the LISTEN/NOTIFY channel peers use to announce policy edits.
const PolicyChannel = "casbin_policy_update"

var policyStale atomic.Bool

// IsPolicyHealthy is false while the last notified reload failed.
func IsPolicyHealthy() bool {
	return !policyStale.Load()
}

type CleanupFunc func(ctx context.Context)

// NewEnforcer builds a DistributedEnforcer over the Casbin database. Policy
// rows go through the ent adapter and every process reloads on NOTIFY.
func NewEnforcer(ctx context.Context, modelPath, dsn string, logger *slog.Logger) (*casbin.DistributedEnforcer, CleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	adapter, err := entadapter.NewAdapter("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("casbin adapter: %w", err)
	}

	e, err := casbin.NewDistributedEnforcer(modelPath, adapter)
	if err != nil {
		return nil, nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	w, err := psqlwatcher.NewWatcherWithConnString(ctx, dsn, psqlwatcher.Option{Channel: PolicyChannel})
	if err != nil {
		return nil, nil, fmt.Errorf("casbin watcher: %w", err)
	}
	if err := w.SetUpdateCallback(reloadOnNotify(e, logger)); err != nil {
		w.Close()
		return nil, nil, fmt.Errorf("casbin watcher callback: %w", err)
	}
	if err := e.SetWatcher(w); err != nil {
		w.Close()
		return nil, nil, fmt.Errorf("casbin set watcher: %w", err)
	}

	e.EnableAutoSave(true)
	e.EnableEnforce(true)

	return e, func(context.Context) {
		logger.Debug("closing casbin policy watcher")
		w.Close()
		e.StopAutoLoadPolicy()
	}, nil
}

func reloadOnNotify(e *casbin.DistributedEnforcer, logger *slog.Logger) func(string) {
	return func(msg string) {
		logger.Debug("casbin policy update received", "message", msg)
		if err := e.LoadPolicy(); err != nil {
			logger.Error("casbin policy reload failed", "error", err)
			policyStale.Store(true)
			return
		}
		policyStale.Store(false)
	}
}
