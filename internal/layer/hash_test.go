package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoRecords() []Record {
	return []Record{DefaultRecord(0, 100, 100), DefaultRecord(1, 100, 100)}
}

func TestTransformHash_Deterministic(t *testing.T) {
	a, err := TransformHash(twoRecords())
	require.NoError(t, err)
	b, err := TransformHash(twoRecords())
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical snapshots must hash identically")
}

func TestTransformHash_IgnoresAdjustments(t *testing.T) {
	base := twoRecords()
	changed := CloneSlice(base)
	changed[0].Adjustments.Brightness = 0.5

	a, err := TransformHash(base)
	require.NoError(t, err)
	b, err := TransformHash(changed)
	require.NoError(t, err)

	assert.Equal(t, a, b, "adjustment edits must not perturb the transform hash")
}

func TestTransformHash_SeesTransformFields(t *testing.T) {
	base := twoRecords()

	for name, mutate := range map[string]func(*Record){
		"position": func(r *Record) { r.Position.X += 1 },
		"scale":    func(r *Record) { r.Scale.Y = 2 },
		"rotation": func(r *Record) { r.Rotation = 45 },
		"order":    func(r *Record) { r.Order = 1 },
	} {
		t.Run(name, func(t *testing.T) {
			changed := CloneSlice(base)
			if name == "order" {
				changed[1].Order = 0
			}
			mutate(&changed[0])

			a, err := TransformHash(base)
			require.NoError(t, err)
			b, err := TransformHash(changed)
			require.NoError(t, err)
			assert.NotEqual(t, a, b)
		})
	}
}

func TestAdjustmentHash_IgnoresTransforms(t *testing.T) {
	base := twoRecords()
	changed := CloneSlice(base)
	changed[1].Position = Vec2{X: 42, Y: 42}
	changed[1].Rotation = 90

	a, err := AdjustmentHash(base)
	require.NoError(t, err)
	b, err := AdjustmentHash(changed)
	require.NoError(t, err)

	assert.Equal(t, a, b, "transform edits must not perturb the adjustment hash")
}

func TestFullHash_SeesEverything(t *testing.T) {
	base := twoRecords()
	changed := CloneSlice(base)
	changed[0].Visible = false

	a, err := FullHash(base)
	require.NoError(t, err)
	b, err := FullHash(changed)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFullHash_IntegralFloatsStable(t *testing.T) {
	base := twoRecords()
	changed := CloneSlice(base)
	// 1.0 arrived at through arithmetic must hash like the literal.
	changed[0].Scale.X = 0.5 * 2

	a, err := FullHash(base)
	require.NoError(t, err)
	b, err := FullHash(changed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashes_DomainSeparated(t *testing.T) {
	records := twoRecords()

	th, err := TransformHash(records)
	require.NoError(t, err)
	ah, err := AdjustmentHash(records)
	require.NoError(t, err)
	fh, err := FullHash(records)
	require.NoError(t, err)

	assert.NotEqual(t, th, ah)
	assert.NotEqual(t, th, fh)
	assert.NotEqual(t, ah, fh)
}
