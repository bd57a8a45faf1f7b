// Package mirror forwards saved photos to the asset service in the background.
//
// Jobs are fire-and-forget: they start after the save response is written,
// run on a detached context, are never retried and report their outcome only
// to the log and the metrics registry.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/snapshot/internal/metrics"
)

// Mirrorer uploads one photo file and returns the remote asset id.
type Mirrorer interface {
	Mirror(ctx context.Context, path string) (string, error)
}

type Dispatcher struct {
	mirrorer Mirrorer
	enabled  bool
	reg      *metrics.Registry
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. When enabled is false every dispatch
// is skipped with a log line.
func NewDispatcher(m Mirrorer, enabled bool, reg *metrics.Registry) *Dispatcher {
	return &Dispatcher{mirrorer: m, enabled: enabled, reg: reg}
}

// Dispatch starts mirroring path and returns immediately.
func (d *Dispatcher) Dispatch(path string) {
	if !d.enabled {
		slog.Debug("Mirroring disabled, skipping", "path", path)
		d.reg.Inc(context.Background(), metrics.MirrorUploads, map[string]string{"outcome": "skipped"}, 1)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(path)
	}()
}

func (d *Dispatcher) run(path string) {
	ctx := context.Background()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Mirror job panicked", "path", path, "panic", fmt.Sprint(r))
			d.reg.Inc(ctx, metrics.MirrorUploads, map[string]string{"outcome": "failed"}, 1)
		}
	}()

	assetID, err := d.mirrorer.Mirror(ctx, path)
	if err != nil {
		slog.Warn("Failed to mirror photo", "path", path, "err", err, "duration", time.Since(start))
		d.reg.Inc(ctx, metrics.MirrorUploads, map[string]string{"outcome": "failed"}, 1)
		return
	}
	slog.Info("Photo mirrored", "path", path, "asset_id", assetID, "duration", time.Since(start))
	d.reg.Inc(ctx, metrics.MirrorUploads, map[string]string{"outcome": "ok"}, 1)
}

// Wait blocks until every dispatched job has finished. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
