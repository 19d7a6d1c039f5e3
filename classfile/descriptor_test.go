package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassDesc(t *testing.T) {
	t.Run("internal name round trip", func(t *testing.T) {
		d := ClassDescOfInternal("java/lang/Object")
		assert.Equal(t, ClassDesc("Ljava/lang/Object;"), d)
		assert.Equal(t, "java/lang/Object", d.InternalName())
	})

	t.Run("array classes keep descriptor form", func(t *testing.T) {
		d := ClassDescOfInternal("[Ljava/lang/String;")
		assert.Equal(t, ClassDesc("[Ljava/lang/String;"), d)
		assert.Equal(t, "[Ljava/lang/String;", d.InternalName())
		assert.True(t, d.IsArray())
	})

	t.Run("component and array types", func(t *testing.T) {
		d := ClassDesc("I").ArrayType(2)
		assert.Equal(t, ClassDesc("[[I"), d)
		assert.Equal(t, ClassDesc("[I"), d.ComponentType())
		assert.True(t, ClassDesc("I").IsPrimitive())
		assert.False(t, ClassDesc("Ljava/lang/Object;").IsPrimitive())
	})

	t.Run("display names", func(t *testing.T) {
		assert.Equal(t, "java.lang.String", ClassDesc("Ljava/lang/String;").DisplayName())
		assert.Equal(t, "int[][]", ClassDesc("[[I").DisplayName())
		assert.Equal(t, "boolean", ClassDesc("Z").DisplayName())
	})
}

func TestParseMethodDescriptor(t *testing.T) {
	t.Run("mixed parameters", func(t *testing.T) {
		params, ret, err := ParseMethodDescriptor("(I[Ljava/lang/String;J)V")
		require.NoError(t, err)
		assert.Equal(t, []ClassDesc{"I", "[Ljava/lang/String;", "J"}, params)
		assert.Equal(t, ClassDesc("V"), ret)
	})

	t.Run("no parameters", func(t *testing.T) {
		params, ret, err := ParseMethodDescriptor("()Ljava/lang/Object;")
		require.NoError(t, err)
		assert.Empty(t, params)
		assert.Equal(t, ClassDesc("Ljava/lang/Object;"), ret)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, desc := range []string{"", "I)V", "(IV", "(Lunterminated)V", "(I)VX"} {
			_, _, err := ParseMethodDescriptor(desc)
			assert.Error(t, err, "descriptor %q", desc)
		}
	})
}

func TestArgumentSlots(t *testing.T) {
	slots, err := argumentSlots("(I[Ljava/lang/String;J)V", false)
	require.NoError(t, err)
	assert.Equal(t, 5, slots, "receiver + int + array + long")

	slots, err = argumentSlots("(DD)V", true)
	require.NoError(t, err)
	assert.Equal(t, 4, slots)
}
