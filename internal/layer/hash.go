package layer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for snapshot content hashes. The version suffix leaves
// room for a future algorithm migration without ambiguity.
const (
	DomainTransform  = "strata/snapshot-transform/v1"
	DomainAdjustment = "strata/snapshot-adjustment/v1"
	DomainFull       = "strata/snapshot-full/v1"
)

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func vecMap(v Vec2) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y}
}

// transformMap projects the fields a transform commit compares.
func transformMap(r Record) map[string]any {
	return map[string]any{
		"position": vecMap(r.Position),
		"scale":    vecMap(r.Scale),
		"rotation": r.Rotation,
		"skew":     vecMap(r.Skew),
		"order":    r.Order,
	}
}

// adjustmentMap projects the fields an adjustment commit compares.
func adjustmentMap(r Record) map[string]any {
	return map[string]any{
		"brightness": r.Adjustments.Brightness,
		"contrast":   r.Adjustments.Contrast,
		"saturation": r.Adjustments.Saturation,
		"opacity":    r.Adjustments.Opacity,
	}
}

// fullMap projects every record field.
func fullMap(r Record) map[string]any {
	m := transformMap(r)
	m["adjustments"] = adjustmentMap(r)
	m["visible"] = r.Visible
	m["locked"] = r.Locked
	m["source"] = map[string]any{
		"filename":  r.Source.Filename,
		"subfolder": r.Source.Subfolder,
		"type":      r.Source.Type,
	}
	return m
}

func hashProjection(domain string, records []Record, project func(Record) map[string]any) (string, error) {
	arr := make([]any, len(records))
	for i, r := range records {
		arr[i] = project(r)
	}
	data, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("canonical snapshot: %w", err)
	}
	return hashWithDomain(domain, data), nil
}

// TransformHash is the content hash over the transform projection of all
// records: position, scale, rotation, skew, order.
func TransformHash(records []Record) (string, error) {
	return hashProjection(DomainTransform, records, transformMap)
}

// AdjustmentHash is the content hash over the adjustment projection of all
// records: brightness, contrast, saturation, opacity.
func AdjustmentHash(records []Record) (string, error) {
	return hashProjection(DomainAdjustment, records, adjustmentMap)
}

// FullHash is the content hash over every field of every record.
func FullHash(records []Record) (string, error) {
	return hashProjection(DomainFull, records, fullMap)
}
