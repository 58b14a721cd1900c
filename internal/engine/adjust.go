package engine

import (
	"log/slog"
	"math"

	"github.com/strataboard/strata/internal/history"
	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/store"
)

// AdjustmentEngine applies per-layer color adjustments: pure value
// mapping between the UI's integer sliders and the stored normalized
// parameters, plus filter attachment on the render node.
//
// Every write goes through the same path a slider drag uses:
// write-store → sync-node → mirror → debounced history commit, so a
// programmatic reset honors exactly the same invariants as interactive
// input.
type AdjustmentEngine struct {
	store  *store.Store
	nodes  func() NodeSet
	tokens GestureTokenGenerator

	afterWrite      func()
	commitDebounced func(kind history.Kind, token string)

	// token spans one slider burst; cleared when the debounced commit
	// fires so the next burst gets its own history entry.
	token string
}

func newAdjustmentEngine(s *store.Store, nodes func() NodeSet, tokens GestureTokenGenerator,
	afterWrite func(), commitDebounced func(history.Kind, string)) *AdjustmentEngine {
	return &AdjustmentEngine{
		store:           s,
		nodes:           nodes,
		tokens:          tokens,
		afterWrite:      afterWrite,
		commitDebounced: commitDebounced,
	}
}

// BrightnessToStored maps the UI's integer percentage in [-100, 100] to
// the stored normalized value in [-1, 1].
func BrightnessToStored(percent int) float64 {
	return layer.Adjustments{Brightness: float64(percent) / 100}.Normalize().Brightness
}

// BrightnessToPercent maps a stored brightness back to the display
// percentage, rounded symmetrically (half away from zero).
func BrightnessToPercent(stored float64) int {
	return int(math.Round(stored * 100))
}

// Set writes the given adjustments for layer i and applies them to the
// render node, scheduling a debounced history commit. Out-of-range
// indexes are logged no-ops.
func (a *AdjustmentEngine) Set(i int, adj layer.Adjustments) error {
	adj = adj.Normalize()
	updated := a.store.Set(i, store.Patch{
		Brightness: &adj.Brightness,
		Contrast:   &adj.Contrast,
		Saturation: &adj.Saturation,
		Opacity:    &adj.Opacity,
	})
	if updated == nil {
		return newInvalidIndexError(i, a.store.Len())
	}

	a.applyToNode(i, updated.Adjustments, updated.Visible)
	a.afterWrite()

	if a.token == "" {
		a.token = a.tokens.Generate()
	}
	a.commitDebounced(history.KindAdjustment, a.token)
	return nil
}

// Reset restores all four adjustment fields to their defaults through the
// same path as a slider drag.
func (a *AdjustmentEngine) Reset(i int) error {
	return a.Set(i, layer.DefaultAdjustments())
}

// ApplyStored re-normalizes record i and pushes its adjustments onto the
// render node. Safe to call when the node is not yet attached: the store
// half still runs and the visual half is deferred. No history commit.
func (a *AdjustmentEngine) ApplyStored(i int) error {
	updated := a.store.Set(i, store.Patch{})
	if updated == nil {
		return newInvalidIndexError(i, a.store.Len())
	}
	a.applyToNode(i, updated.Adjustments, updated.Visible)
	return nil
}

// clearToken ends the current slider burst. Called by the document when
// the debounced adjustment commit fires.
func (a *AdjustmentEngine) clearToken() {
	a.token = ""
}

// applyToNode attaches filters and opacity to the live node. Filters with
// near-zero parameters are detached instead of applied, avoiding wasted
// filter passes.
func (a *AdjustmentEngine) applyToNode(i int, adj layer.Adjustments, visible bool) {
	n := a.nodes().Get(i)
	if n == nil {
		slog.Debug("adjustment visual deferred: render node not attached", "index", i)
		return
	}

	var filters []Filter
	if math.Abs(adj.Brightness) > layer.FilterEpsilon {
		filters = append(filters, Filter{Kind: FilterBrightness, Value: adj.Brightness})
	}
	if math.Abs(adj.Contrast) > layer.FilterEpsilon {
		filters = append(filters, Filter{Kind: FilterContrast, Value: adj.Contrast})
	}
	if math.Abs(adj.Saturation) > layer.FilterEpsilon {
		filters = append(filters, Filter{Kind: FilterSaturation, Value: adj.Saturation})
	}

	n.SetFilters(filters)
	n.SetOpacity(adj.Opacity / 100)
	n.SetVisible(visible)
}
