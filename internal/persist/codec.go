package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/strataboard/strata/internal/layer"
)

// DocumentVersion is the current wire format version.
const DocumentVersion = 1

// wireVec is the persisted form of a Vec2. Pointer fields distinguish
// "absent" from zero so defaulting is field-local.
type wireVec struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// wireLayer is the persisted form of one layer record. Every field is
// optional; decode substitutes the documented default for anything
// missing or malformed rather than rejecting the document.
type wireLayer struct {
	Position   *wireVec         `json:"position,omitempty"`
	Scale      *wireVec         `json:"scale,omitempty"`
	Rotation   *float64         `json:"rotation,omitempty"`
	Skew       *wireVec         `json:"skew,omitempty"`
	Visible    *bool            `json:"visible,omitempty"`
	Locked     *bool            `json:"locked,omitempty"`
	Order      *int             `json:"order,omitempty"`
	Brightness *float64         `json:"brightness,omitempty"`
	Contrast   *float64         `json:"contrast,omitempty"`
	Saturation *float64         `json:"saturation,omitempty"`
	Opacity    *float64         `json:"opacity,omitempty"`
	Source     *layer.SourceRef `json:"source,omitempty"`
}

// wireDocument is the versioned persisted document.
type wireDocument struct {
	Version int         `json:"version"`
	Layers  []wireLayer `json:"layers"`
}

// EncodeDocument serializes records into the versioned wire format.
func EncodeDocument(records []layer.Record) ([]byte, error) {
	doc := wireDocument{Version: DocumentVersion, Layers: make([]wireLayer, len(records))}
	for i, r := range records {
		doc.Layers[i] = wireLayer{
			Position:   &wireVec{X: &r.Position.X, Y: &r.Position.Y},
			Scale:      &wireVec{X: &r.Scale.X, Y: &r.Scale.Y},
			Rotation:   &r.Rotation,
			Skew:       &wireVec{X: &r.Skew.X, Y: &r.Skew.Y},
			Visible:    &r.Visible,
			Locked:     &r.Locked,
			Order:      &r.Order,
			Brightness: &r.Adjustments.Brightness,
			Contrast:   &r.Adjustments.Contrast,
			Saturation: &r.Adjustments.Saturation,
			Opacity:    &r.Adjustments.Opacity,
			Source:     &r.Source,
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument deserializes a persisted document, recovering locally
// from malformed fields: anything missing or unreadable falls back to
// its documented default instead of poisoning the whole document.
//
// count shapes the result: when count >= 0 the returned slice is
// truncated or padded with centered defaults to exactly count records
// (persisted arrays shorter or longer than the current image count are
// expected after pipeline re-execution). Pass count < 0 to keep the
// persisted length. Order values are trusted only as a valid permutation.
func DecodeDocument(data []byte, count int, canvasW, canvasH float64) ([]layer.Record, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// Field-local recovery: a malformed layer entry must not discard
		// its siblings. Retry layer by layer over raw messages.
		var loose struct {
			Version int               `json:"version"`
			Layers  []json.RawMessage `json:"layers"`
		}
		if err2 := json.Unmarshal(data, &loose); err2 != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		doc.Version = loose.Version
		doc.Layers = make([]wireLayer, len(loose.Layers))
		for i, raw := range loose.Layers {
			if err2 := json.Unmarshal(raw, &doc.Layers[i]); err2 != nil {
				doc.Layers[i] = decodeLooseLayer(i, raw)
			}
		}
	}

	if doc.Version > DocumentVersion {
		slog.Warn("persisted document from a newer version, decoding best-effort",
			"version", doc.Version, "supported", DocumentVersion)
	}

	n := len(doc.Layers)
	if count >= 0 {
		n = count
	}

	records := make([]layer.Record, n)
	for i := range records {
		if i < len(doc.Layers) {
			records[i] = doc.Layers[i].toRecord(i, canvasW, canvasH)
		} else {
			records[i] = layer.DefaultRecord(i, canvasW, canvasH)
		}
	}

	if !layer.ValidOrderPermutation(records) {
		for i := range records {
			records[i].Order = i
		}
	}
	layer.NormalizeAll(records)
	return records, nil
}

// decodeLooseLayer salvages a layer entry that failed strict decoding by
// unmarshaling each field independently. A field that does not parse is
// logged and left absent (so it defaults); its siblings survive.
func decodeLooseLayer(index int, raw json.RawMessage) wireLayer {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.Warn("malformed layer entry, using defaults", "index", index, "error", err)
		return wireLayer{}
	}

	var w wireLayer
	for key, val := range fields {
		var err error
		switch key {
		case "position":
			err = json.Unmarshal(val, &w.Position)
		case "scale":
			err = json.Unmarshal(val, &w.Scale)
		case "rotation":
			err = json.Unmarshal(val, &w.Rotation)
		case "skew":
			err = json.Unmarshal(val, &w.Skew)
		case "visible":
			err = json.Unmarshal(val, &w.Visible)
		case "locked":
			err = json.Unmarshal(val, &w.Locked)
		case "order":
			err = json.Unmarshal(val, &w.Order)
		case "brightness":
			err = json.Unmarshal(val, &w.Brightness)
		case "contrast":
			err = json.Unmarshal(val, &w.Contrast)
		case "saturation":
			err = json.Unmarshal(val, &w.Saturation)
		case "opacity":
			err = json.Unmarshal(val, &w.Opacity)
		case "source":
			err = json.Unmarshal(val, &w.Source)
		}
		if err != nil {
			slog.Warn("malformed layer field, using default", "index", index, "field", key, "error", err)
		}
	}
	return w
}

// toRecord materializes one wire layer, substituting defaults for absent
// fields and clamping everything.
func (w wireLayer) toRecord(index int, canvasW, canvasH float64) layer.Record {
	r := layer.DefaultRecord(index, canvasW, canvasH)

	if w.Position != nil {
		if w.Position.X != nil {
			r.Position.X = *w.Position.X
		}
		if w.Position.Y != nil {
			r.Position.Y = *w.Position.Y
		}
	}
	if w.Scale != nil {
		if w.Scale.X != nil {
			r.Scale.X = *w.Scale.X
		}
		if w.Scale.Y != nil {
			r.Scale.Y = *w.Scale.Y
		}
	}
	if w.Rotation != nil {
		r.Rotation = *w.Rotation
	}
	if w.Skew != nil {
		if w.Skew.X != nil {
			r.Skew.X = *w.Skew.X
		}
		if w.Skew.Y != nil {
			r.Skew.Y = *w.Skew.Y
		}
	}
	if w.Visible != nil {
		r.Visible = *w.Visible
	}
	if w.Locked != nil {
		r.Locked = *w.Locked
	}
	if w.Order != nil {
		r.Order = *w.Order
	}
	if w.Brightness != nil {
		r.Adjustments.Brightness = *w.Brightness
	}
	if w.Contrast != nil {
		r.Adjustments.Contrast = *w.Contrast
	}
	if w.Saturation != nil {
		r.Adjustments.Saturation = *w.Saturation
	}
	if w.Opacity != nil {
		r.Adjustments.Opacity = *w.Opacity
	}
	if w.Source != nil {
		r.Source = *w.Source
	}

	return r.Normalize()
}
