package vector_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/internal/vector"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3, 1.0, -1.0, 0.000001}

	out, err := vector.Decode(vector.Encode(in))
	require.NoError(t, err)
	require.Len(t, out, len(in))

	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-6)
	}
}

func TestDecode_MalformedBuffer(t *testing.T) {
	_, err := vector.Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDot_SelfSimilarity(t *testing.T) {
	v := vector.Normalize([]float32{3, 4, 12})

	score, err := vector.Dot(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-5)
}

func TestDot_DimensionMismatch(t *testing.T) {
	_, err := vector.Dot([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)

	var dimErr *vector.DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Want)
	assert.Equal(t, 3, dimErr.Got)
}

func TestNormalize(t *testing.T) {
	v := vector.Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := vector.Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}
