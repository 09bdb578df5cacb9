package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
)

func TestCatalogKeywords(t *testing.T) {
	c := PostgresCatalog()
	tests := []struct {
		tag  TypeTag
		want string
	}{
		{Integer, "int"},
		{Float, "float"},
		{String, "VARCHAR(255)"},
		{IntegerArray, "int[]"},
		{FloatArray, "float[]"},
	}
	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			got, err := c.Keyword(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogUnknownTag(t *testing.T) {
	c := PostgresCatalog()
	_, err := c.Keyword(TypeTag(42))
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
	_, err = c.Converter(TypeTag(42))
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
	_, err = c.NewColumn(TypeTag(-1))
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestParseTypeTag(t *testing.T) {
	for in, want := range map[string]TypeTag{
		"integer":   Integer,
		"INT":       Integer,
		"float":     Float,
		"string":    String,
		"int[]":     IntegerArray,
		"integer[]": IntegerArray,
		" float[] ": FloatArray,
	} {
		got, err := ParseTypeTag(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTypeTag("blob")
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestIntConverter(t *testing.T) {
	conv, err := DefaultCatalog().Converter(Integer)
	require.NoError(t, err)

	for _, in := range []any{30, int32(30), int64(30), uint16(30), float64(30), "30", []byte("30"), json.Number("30")} {
		got, err := conv(in)
		require.NoError(t, err, "%T", in)
		assert.Equal(t, 30, got, "%T", in)
	}

	got, err := conv(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	_, err = conv(30.5)
	assert.ErrorIs(t, err, core.ErrConversion)
	_, err = conv("thirty")
	assert.ErrorIs(t, err, core.ErrConversion)
	_, err = conv(true)
	assert.ErrorIs(t, err, core.ErrConversion)

	got, err = conv(int64(math.MaxInt32))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, got)
	got, err = conv(json.Number("-2147483648"))
	require.NoError(t, err)
	assert.Equal(t, math.MinInt32, got)

	for _, in := range []any{int64(math.MaxInt32) + 1, 3000000000, json.Number("-2147483649"), float64(1 << 40)} {
		_, err = conv(in)
		assert.ErrorIs(t, err, core.ErrConversion, "%v", in)
	}
}

func TestIntConversionRejectsTwoToThe63(t *testing.T) {
	_, err := toInt(float64(math.MaxInt64))
	assert.ErrorIs(t, err, core.ErrConversion)

	_, err = toInt(json.Number("9223372036854775808"))
	assert.ErrorIs(t, err, core.ErrConversion)

	n, err := toInt(float64(-1 << 63))
	require.NoError(t, err)
	assert.Equal(t, math.MinInt64, n)
}

func TestIntArrayConverterRange(t *testing.T) {
	conv, err := DefaultCatalog().Converter(IntegerArray)
	require.NoError(t, err)

	got, err := conv([]any{json.Number("1"), int32(math.MaxInt32)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, math.MaxInt32}, got)

	_, err = conv([]int{1, 3000000000})
	assert.ErrorIs(t, err, core.ErrConversion)
	_, err = conv("{1,4294967296}")
	assert.ErrorIs(t, err, core.ErrConversion)
}

func TestFloatAndStringConverters(t *testing.T) {
	fconv, _ := DefaultCatalog().Converter(Float)
	for _, in := range []any{1.5, float32(1.5), "1.5", json.Number("1.5")} {
		got, err := fconv(in)
		require.NoError(t, err, "%T", in)
		assert.Equal(t, 1.5, got)
	}
	got, err := fconv(int32(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	sconv, _ := DefaultCatalog().Converter(String)
	got, err = sconv("Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got)
	got, err = sconv(42)
	require.NoError(t, err)
	assert.Equal(t, "42", got)
	_, err = sconv([]int{1})
	assert.ErrorIs(t, err, core.ErrConversion)
}

func TestArrayConvertersAreIndependent(t *testing.T) {
	iconv, _ := DefaultCatalog().Converter(IntegerArray)
	fconv, _ := DefaultCatalog().Converter(FloatArray)

	got, err := iconv([]any{int32(1), int32(2), int32(3)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = iconv("{4, 5}")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, got)

	_, err = iconv([]any{1.5})
	assert.ErrorIs(t, err, core.ErrConversion)

	got, err = fconv([]any{1.5, float64(2)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, got)

	got, err = fconv([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)

	_, err = fconv("{1,NULL}")
	assert.ErrorIs(t, err, core.ErrConversion)

	// A float array never lands in integer storage and vice versa.
	_, err = iconv([]float64{0.25})
	assert.ErrorIs(t, err, core.ErrConversion)
	_, err = fconv([]string{"a"})
	assert.ErrorIs(t, err, core.ErrConversion)
}
