package filter

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/oshokin/redalert/internal/domain/alert"
	"github.com/oshokin/redalert/internal/repository/seen"
)

// AllRegions disables the region filter.
const AllRegions = "*"

// TestMarkers are region entries the source uses for drills.
//
//nolint:gochecknoglobals // Read-only table.
var TestMarkers = []string{"בדיקה", "בדיקה מחזורית"}

// Options configures an Engine.
type Options struct {
	// Region is the monitored region, or AllRegions.
	Region string
	// IncludeTestAlerts dispatches drills like real alerts.
	IncludeTestAlerts bool
	// ForceDispatch re-dispatches alerts that were already seen. Drill and
	// region filtering still apply.
	ForceDispatch bool
}

// Engine evaluates feed payloads against the region, drill and novelty rules.
type Engine struct {
	store   seen.Store
	region  string
	options Options
}

// NewEngine creates an engine that records dispatched ids in store.
func NewEngine(store seen.Store, opts Options) *Engine {
	region := normalize(opts.Region)
	if region == "" {
		region = AllRegions
	}

	return &Engine{
		store:   store,
		region:  region,
		options: opts,
	}
}

// Evaluate returns the decision for one raw payload.
// A malformed payload yields an error wrapping alert.ErrMalformed.
// On Dispatch the id is already recorded when Evaluate returns.
func (e *Engine) Evaluate(ctx context.Context, raw string) (alert.Decision, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return alert.EmptyDecision(), nil
	}

	a, err := alert.Parse(payload)
	if err != nil {
		return alert.Decision{}, err
	}

	if !e.matchesRegion(a) {
		return alert.Suppress(a, alert.ReasonRegion), nil
	}

	if IsTestAlert(a) && !e.options.IncludeTestAlerts {
		return alert.Suppress(a, alert.ReasonTest), nil
	}

	added, err := e.store.MarkSeen(ctx, a.ID)
	if err != nil {
		return alert.Decision{}, fmt.Errorf("record alert %d: %w", a.ID, err)
	}

	if !added && !e.options.ForceDispatch {
		return alert.Suppress(a, alert.ReasonDuplicate), nil
	}

	return alert.DispatchDecision(a), nil
}

// matchesRegion applies the region rule.
func (e *Engine) matchesRegion(a *alert.Alert) bool {
	if e.region == AllRegions {
		return true
	}

	for _, r := range a.Regions {
		if normalize(r) == e.region {
			return true
		}
	}

	return false
}

// IsTestAlert reports whether the alert is a drill.
func IsTestAlert(a *alert.Alert) bool {
	for _, r := range a.Regions {
		candidate := normalize(r)
		for _, marker := range TestMarkers {
			if candidate == marker {
				return true
			}
		}
	}

	return false
}

// normalize makes region names comparable regardless of composition and padding.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
