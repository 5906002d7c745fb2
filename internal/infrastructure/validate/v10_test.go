package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lessonForm struct {
	Title    string  `json:"title" validate:"required"`
	Duration float64 `json:"duration" validate:"min=0"`
}

func TestPlaygroundV10Struct(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Struct(&lessonForm{Title: "Quadratics", Duration: 45}))

	errs := v.Struct(&lessonForm{Duration: -1})
	require.Len(t, errs, 2)
	assert.Equal(t, "title", errs[0].Domain)
	assert.Equal(t, "title is a required field", errs[0].Reason)
	assert.Equal(t, "duration", errs[1].Domain)
	assert.Contains(t, errs.Error(), "duration must be 0 or greater")
}

func TestPlaygroundV10Var(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Var("name", "Algebra", "required"))

	errs := v.Var("name", "", "required")
	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Domain)
	assert.Equal(t, "name is a required field", errs[0].Reason)
}

func TestPlaygroundV10Empty(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Empty("ts", "2020-01-01"))
	errs := v.Empty("ts", "")
	require.Len(t, errs, 1)
	assert.Equal(t, "ts is required", errs[0].Reason)
}

func TestPlaygroundV10ZHLocale(t *testing.T) {
	v := NewValidator(LocaleZH)

	errs := v.Struct(&lessonForm{Duration: 45})
	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Domain)
	assert.Equal(t, "title为必填字段", errs[0].Reason)

	errs = v.Var("duration", math.Inf(1), "finite,min=0")
	require.Len(t, errs, 1)
	assert.Equal(t, "duration必须是有限数字", errs[0].Reason)
}

func TestPlaygroundV10Finite(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Var("duration", 12.5, "finite,min=0"))
	for _, d := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		errs := v.Var("duration", d, "finite,min=0")
		require.Len(t, errs, 1, "%v", d)
		assert.Equal(t, "duration must be a finite number", errs[0].Reason)
	}
}
