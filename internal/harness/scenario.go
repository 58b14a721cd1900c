package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted editing session against a fresh document.
// Steps execute in order; assertions validate the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Layers is the initial layer count.
	Layers int `yaml:"layers"`

	// Canvas is the canvas geometry. Defaults to 800x600 when omitted.
	Canvas *Canvas `yaml:"canvas,omitempty"`

	// Tokens optionally fixes the gesture tokens consumed in order.
	// Exhausted lists fall back to deterministic "gesture-N" tokens, so
	// golden comparison stays stable either way.
	Tokens []string `yaml:"tokens,omitempty"`

	// Steps is the scripted interaction sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document state.
	Assertions []Assertion `yaml:"assertions"`
}

// Canvas is a canvas geometry in scenario files.
type Canvas struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Step is one scripted interaction. Op selects the operation; the other
// fields parameterize it and are validated per op.
type Step struct {
	// Op is the operation name. See the Op* constants.
	Op string `yaml:"op"`

	// Index targets a layer for layer-scoped operations.
	Index *int `yaml:"index,omitempty"`

	// To is the drag destination (OpDrag).
	To *Point `yaml:"to,omitempty"`

	// Scale and Rotation parameterize OpTransform.
	Scale    *Point   `yaml:"scale,omitempty"`
	Rotation *float64 `yaml:"rotation,omitempty"`

	// Ticks is the signed wheel tick count (OpWheel).
	Ticks int `yaml:"ticks,omitempty"`

	// Adjustment sliders (OpAdjust). Absent fields keep their stored
	// value.
	Brightness *float64 `yaml:"brightness,omitempty"`
	Contrast   *float64 `yaml:"contrast,omitempty"`
	Saturation *float64 `yaml:"saturation,omitempty"`
	Opacity    *float64 `yaml:"opacity,omitempty"`

	// Direction is "up" or "down" (OpMoveLayer).
	Direction string `yaml:"direction,omitempty"`

	// Value is the flag for OpSetVisible and OpSetLocked.
	Value *bool `yaml:"value,omitempty"`

	// Layers and Canvas reshape the document (OpResetLayout).
	Layers int     `yaml:"layers,omitempty"`
	Canvas *Canvas `yaml:"canvas,omitempty"`

	// Filename names the asset for OpAddLayer.
	Filename string `yaml:"filename,omitempty"`
}

// Point is an x/y pair in scenario files.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Step operation names.
const (
	OpSelect           = "select"
	OpDeselect         = "deselect"
	OpDrag             = "drag"
	OpTransform        = "transform"
	OpWheel            = "wheel"
	OpAdjust           = "adjust"
	OpResetAdjustments = "reset_adjustments"
	OpMoveLayer        = "move_layer"
	OpSetVisible       = "set_visible"
	OpSetLocked        = "set_locked"
	OpResetLayout      = "reset_layout"
	OpAddLayer         = "add_layer"
	OpRemoveLayer      = "remove_layer"
	OpFlush            = "flush"
	OpUndo             = "undo"
	OpRedo             = "redo"
	OpSave             = "save"
)

// Assertion validates one aspect of the final document state.
type Assertion struct {
	// Type selects the assertion. See the Assert* constants.
	Type string `yaml:"type"`

	// Index targets a layer (layer, selection assertions).
	Index int `yaml:"index,omitempty"`

	// Expect maps layer field names to expected values (AssertLayer).
	// Supported fields: position_x, position_y, scale_x, scale_y,
	// rotation, visible, locked, order, brightness, contrast,
	// saturation, opacity.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Len and Cursor are the expected history shape (AssertHistory).
	Len    int `yaml:"len,omitempty"`
	Cursor int `yaml:"cursor,omitempty"`

	// Selected is the expected selected index, -1 for none
	// (AssertSelection).
	Selected int `yaml:"selected,omitempty"`

	// Orders is the expected per-layer render rank (AssertZOrder).
	Orders []int `yaml:"orders,omitempty"`
}

// Assertion type constants.
const (
	AssertLayer     = "layer"
	AssertHistory   = "history"
	AssertSelection = "selection"
	AssertZOrder    = "z_order"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping steps.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Layers <= 0 {
		return fmt.Errorf("layers must be positive")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, st *Step) error {
	needIndex := func() error {
		if st.Index == nil {
			return fmt.Errorf("steps[%d]: index is required for %s", index, st.Op)
		}
		return nil
	}

	switch st.Op {
	case OpSelect, OpResetAdjustments, OpRemoveLayer:
		return needIndex()
	case OpDrag:
		if err := needIndex(); err != nil {
			return err
		}
		if st.To == nil {
			return fmt.Errorf("steps[%d]: to is required for drag", index)
		}
	case OpTransform:
		if err := needIndex(); err != nil {
			return err
		}
		if st.Scale == nil && st.Rotation == nil {
			return fmt.Errorf("steps[%d]: transform needs scale or rotation", index)
		}
	case OpWheel:
		if err := needIndex(); err != nil {
			return err
		}
		if st.Ticks == 0 {
			return fmt.Errorf("steps[%d]: ticks must be nonzero for wheel", index)
		}
	case OpAdjust:
		if err := needIndex(); err != nil {
			return err
		}
		if st.Brightness == nil && st.Contrast == nil && st.Saturation == nil && st.Opacity == nil {
			return fmt.Errorf("steps[%d]: adjust needs at least one slider value", index)
		}
	case OpMoveLayer:
		if err := needIndex(); err != nil {
			return err
		}
		if st.Direction != "up" && st.Direction != "down" {
			return fmt.Errorf("steps[%d]: direction must be \"up\" or \"down\"", index)
		}
	case OpSetVisible, OpSetLocked:
		if err := needIndex(); err != nil {
			return err
		}
		if st.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, st.Op)
		}
	case OpResetLayout:
		if st.Layers <= 0 {
			return fmt.Errorf("steps[%d]: layers must be positive for reset_layout", index)
		}
	case OpAddLayer:
		if st.Filename == "" {
			return fmt.Errorf("steps[%d]: filename is required for add_layer", index)
		}
	case OpDeselect, OpFlush, OpUndo, OpRedo, OpSave:
		// No parameters.
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertLayer:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for layer", index)
		}
	case AssertHistory:
		if a.Len < 0 || a.Cursor < 0 {
			return fmt.Errorf("assertions[%d]: len and cursor must be non-negative", index)
		}
	case AssertSelection:
		if a.Selected < -1 {
			return fmt.Errorf("assertions[%d]: selected must be -1 or a layer index", index)
		}
	case AssertZOrder:
		if len(a.Orders) == 0 {
			return fmt.Errorf("assertions[%d]: orders list is required for z_order", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
