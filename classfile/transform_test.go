package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformDropsElements(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	dropThing := ClassTransform(func(b *ClassBuilder, el ClassElement) {
		if f, ok := el.(*FieldModel); ok && f.Name == "thing" {
			return
		}
		b.With(el)
	})
	out, err := TransformClass(m, dropThing)
	require.NoError(t, err)

	m2, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, m2.Fields, 1)
	assert.Equal(t, "count", m2.Fields[0].Name)
	assert.Len(t, m2.Methods, 2, "untouched elements pass through")
}

func TestTransformInjectsElements(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	inject := ClassTransform(func(b *ClassBuilder, el ClassElement) {
		b.With(el)
		if _, ok := el.(Superclass); ok {
			b.WithAttribute(NewAttribute(AttrDeprecated, &DeprecatedAttribute{}))
		}
	})
	out, err := TransformClass(m, inject)
	require.NoError(t, err)

	m2, err := Parse(out)
	require.NoError(t, err)
	assert.NotNil(t, m2.FindAttribute(AttrDeprecated))
	assert.NotNil(t, m2.FindAttribute(AttrSourceFile), "original attributes survive")
}

func TestTransformAndThen(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	drop := ClassTransform(func(b *ClassBuilder, el ClassElement) {
		if f, ok := el.(*FieldModel); ok && f.Name == "thing" {
			return
		}
		b.With(el)
	})
	var seen []string
	record := ClassTransform(func(b *ClassBuilder, el ClassElement) {
		if f, ok := el.(*FieldModel); ok {
			seen = append(seen, f.Name)
		}
		b.With(el)
	})

	_, err = TransformClass(m, drop.AndThen(record))
	require.NoError(t, err)
	assert.Equal(t, []string{"count"}, seen, "the second stage sees only what the first emitted")
}

func TestTransformMethodCode(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	// Strip every ldc from method bodies.
	stripLdc := CodeTransform(func(b *CodeBuilder, el CodeElement) {
		if in, ok := el.(Instruction); ok && in.Opcode == OpLdc {
			return
		}
		// The pop pairs with the dropped ldc.
		if in, ok := el.(Instruction); ok && in.Opcode == OpPop {
			return
		}
		b.With(el)
	})
	out, err := TransformClass(m, TransformingAllCode(stripLdc))
	require.NoError(t, err)

	m2, err := Parse(out)
	require.NoError(t, err)
	code, err := m2.Methods[1].Code()
	require.NoError(t, err)
	var names []string
	require.NoError(t, code.Instructions(func(in Instruction) error {
		names = append(names, in.Name())
		return nil
	}))
	assert.Equal(t, []string{"new", "dup", "invokespecial", "putstatic", "return"}, names)
}

func TestTransformingFieldsAddsAttributes(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	deprecate := FieldTransform(func(b *FieldBuilder, el FieldElement) {
		b.With(el)
	}).AndThen(AcceptAllField)
	out, err := TransformClass(m, TransformingFields(deprecate))
	require.NoError(t, err)

	m2, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, m2.Fields, 2)
	cv, err := AttributeAs[ConstantValueAttribute](m2.Fields[0].FindAttribute(AttrConstantValue))
	require.NoError(t, err)
	require.NotNil(t, cv)
	assert.Equal(t, int32(42), cv.Value)
}
