// ABOUTME: Synchronous capability probe for the generation engine.
// ABOUTME: Checks hardware architecture, platform floor, then engine readiness, in order.

package availability

import (
	"context"
	"runtime"
	"time"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

// supportedArchs lists architectures the on-device engine can run on.
var supportedArchs = map[string]bool{
	"arm64": true,
	"amd64": true,
}

// supportedPlatforms lists operating systems with a supported runtime.
var supportedPlatforms = map[string]bool{
	"darwin": true,
	"linux":  true,
}

// ReadinessProber reports whether the engine can serve. engine.Engine
// satisfies this; tests substitute their own.
type ReadinessProber interface {
	Ready(ctx context.Context) error
}

// Checker answers check-availability requests. Check never blocks beyond the
// configured probe timeout and never returns an error: every failure folds
// into (false, reason).
type Checker struct {
	prober       ReadinessProber
	probeTimeout time.Duration

	// overridable in tests
	arch     string
	platform string
}

// NewChecker creates a Checker probing the given engine.
func NewChecker(prober ReadinessProber, probeTimeout time.Duration) *Checker {
	return &Checker{
		prober:       prober,
		probeTimeout: probeTimeout,
		arch:         runtime.GOARCH,
		platform:     runtime.GOOS,
	}
}

// Check runs the three probes in order and reports the first failure.
// The reason is empty when available.
func (c *Checker) Check() (bool, string) {
	if !supportedArchs[c.arch] {
		return false, "unsupported hardware architecture: " + c.arch
	}

	if !supportedPlatforms[c.platform] {
		return false, "unsupported platform: " + c.platform
	}

	// Bound the readiness query so a stalled backend cannot hang the
	// otherwise synchronous check.
	ctx, cancel := context.WithTimeout(context.Background(), c.probeTimeout)
	defer cancel()

	if err := c.prober.Ready(ctx); err != nil {
		return false, "engine not ready: " + err.Error()
	}

	return true, ""
}

var _ ReadinessProber = (engine.Engine)(nil)
