package harness

import (
	"fmt"
	"math"

	"github.com/strataboard/strata/internal/engine"
	"github.com/strataboard/strata/internal/layer"
)

// floatTolerance absorbs the round-trip error of YAML-sourced values.
const floatTolerance = 1e-9

// evaluateAssertions checks every assertion against the final document
// state, recording failures on the result. All assertions run; the first
// failure does not short-circuit the rest.
func evaluateAssertions(doc *engine.Document, assertions []Assertion, result *Result) {
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertLayer:
			err = assertLayer(doc, a)
		case AssertHistory:
			err = assertHistory(doc, a)
		case AssertSelection:
			err = assertSelection(doc, a)
		case AssertZOrder:
			err = assertZOrder(doc, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
}

func assertLayer(doc *engine.Document, a Assertion) error {
	rec, ok := doc.Store().Get(a.Index)
	if !ok {
		return fmt.Errorf("layer %d does not exist", a.Index)
	}

	for field, expected := range a.Expect {
		actual, ok := layerField(rec, field)
		if !ok {
			return fmt.Errorf("unknown layer field %q", field)
		}
		if !valuesEqual(expected, actual) {
			return fmt.Errorf("layer %d field %s: expected %v, got %v", a.Index, field, expected, actual)
		}
	}
	return nil
}

func assertHistory(doc *engine.Document, a Assertion) error {
	h := doc.History()
	if h.Len() != a.Len {
		return fmt.Errorf("expected %d entries, got %d", a.Len, h.Len())
	}
	if h.Cursor() != a.Cursor {
		return fmt.Errorf("expected cursor %d, got %d", a.Cursor, h.Cursor())
	}
	return nil
}

func assertSelection(doc *engine.Document, a Assertion) error {
	if got := doc.Selection().Selected(); got != a.Selected {
		return fmt.Errorf("expected selected %d, got %d", a.Selected, got)
	}
	return nil
}

func assertZOrder(doc *engine.Document, a Assertion) error {
	records := doc.Store().Records()
	if len(a.Orders) != len(records) {
		return fmt.Errorf("expected %d orders, document has %d layers", len(a.Orders), len(records))
	}
	for i, want := range a.Orders {
		if records[i].Order != want {
			return fmt.Errorf("layer %d: expected order %d, got %d", i, want, records[i].Order)
		}
	}
	return nil
}

// layerField extracts a named field from a record for assertion.
func layerField(r layer.Record, name string) (any, bool) {
	switch name {
	case "position_x":
		return r.Position.X, true
	case "position_y":
		return r.Position.Y, true
	case "scale_x":
		return r.Scale.X, true
	case "scale_y":
		return r.Scale.Y, true
	case "rotation":
		return r.Rotation, true
	case "skew_x":
		return r.Skew.X, true
	case "skew_y":
		return r.Skew.Y, true
	case "visible":
		return r.Visible, true
	case "locked":
		return r.Locked, true
	case "order":
		return r.Order, true
	case "brightness":
		return r.Adjustments.Brightness, true
	case "contrast":
		return r.Adjustments.Contrast, true
	case "saturation":
		return r.Adjustments.Saturation, true
	case "opacity":
		return r.Adjustments.Opacity, true
	case "filename":
		return r.Source.Filename, true
	default:
		return nil, false
	}
}

// valuesEqual compares a YAML-sourced expected value with an actual
// field value, tolerating YAML's int/float ambiguity.
func valuesEqual(expected, actual any) bool {
	if ef, eok := asFloat(expected); eok {
		if af, aok := asFloat(actual); aok {
			return math.Abs(ef-af) < floatTolerance
		}
		return false
	}
	return expected == actual
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
