package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/strataboard/strata/internal/engine"
	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/persist"
)

// StateSnapshot captures the final document state for golden comparison.
// Serialized with the canonical encoder so snapshots are byte-stable.
type StateSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Layers       []layer.Record
	HistoryLen   int
	Cursor       int
	Selected     int
}

// toCanonicalMap converts the snapshot to the map shape consumed by the
// canonical encoder.
func (s StateSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		t := map[string]any{
			"op":      ev.Op,
			"index":   ev.Index,
			"outcome": ev.Outcome,
		}
		if ev.Detail != "" {
			t["detail"] = ev.Detail
		}
		trace[i] = t
	}

	layers := make([]any, len(s.Layers))
	for i, r := range s.Layers {
		layers[i] = map[string]any{
			"position":   map[string]any{"x": r.Position.X, "y": r.Position.Y},
			"scale":      map[string]any{"x": r.Scale.X, "y": r.Scale.Y},
			"rotation":   r.Rotation,
			"skew":       map[string]any{"x": r.Skew.X, "y": r.Skew.Y},
			"visible":    r.Visible,
			"locked":     r.Locked,
			"order":      r.Order,
			"brightness": r.Adjustments.Brightness,
			"contrast":   r.Adjustments.Contrast,
			"saturation": r.Adjustments.Saturation,
			"opacity":    r.Adjustments.Opacity,
		}
	}

	return map[string]any{
		"scenario":    s.ScenarioName,
		"trace":       trace,
		"layers":      layers,
		"history_len": s.HistoryLen,
		"cursor":      s.Cursor,
		"selected":    s.Selected,
	}
}

// RunWithGolden executes a scenario and compares the final state against
// the scenario's golden file under testdata/golden. Run tests with
// -update to regenerate golden files.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, doc, err := runKeepingDocument(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := StateSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		Layers:       doc.Store().Records(),
		HistoryLen:   doc.History().Len(),
		Cursor:       doc.History().Cursor(),
		Selected:     doc.Selection().Selected(),
	}

	stateJSON, err := layer.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, stateJSON)

	return result, nil
}

// runKeepingDocument is Run without the final dispose, returning the
// live document so callers can snapshot its state. Used by golden
// comparison, which needs history internals the result does not carry.
func runKeepingDocument(scenario *Scenario) (*Result, *engine.Document, error) {
	w, h := 800.0, 600.0
	if scenario.Canvas != nil {
		w, h = scenario.Canvas.Width, scenario.Canvas.Height
	}

	sink := persist.NewMemoryStore()
	doc := engine.NewDocument(scenario.Name, scenario.Layers, w, h, sink,
		engine.WithTokenGenerator(engine.NewFixedGenerator(scenario.Tokens...)),
		engine.WithDebounceWindow(harnessDebounceWindow),
	)

	hn := &Harness{doc: doc, sink: sink}
	hn.attachNodes(scenario.Layers)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := hn.executeStep(step, result); err != nil {
			return nil, nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	evaluateAssertions(doc, scenario.Assertions, result)
	return result, doc, nil
}
