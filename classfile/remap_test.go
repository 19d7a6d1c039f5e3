package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapperMap(t *testing.T) {
	r := NewTableRemapper(map[ClassDesc]ClassDesc{
		"Lcom/old/Thing;": "Lcom/neu/Thing;",
	})

	t.Run("plain and array types", func(t *testing.T) {
		assert.Equal(t, ClassDesc("Lcom/neu/Thing;"), r.Map("Lcom/old/Thing;"))
		assert.Equal(t, ClassDesc("[[Lcom/neu/Thing;"), r.Map("[[Lcom/old/Thing;"))
		assert.Equal(t, ClassDesc("I"), r.Map("I"))
		assert.Equal(t, ClassDesc("[I"), r.Map("[I"))
		assert.Equal(t, ClassDesc("Lother/Type;"), r.Map("Lother/Type;"))
	})

	t.Run("descriptors", func(t *testing.T) {
		desc, err := r.MapDescriptor("(ILcom/old/Thing;[Lcom/old/Thing;)Lcom/old/Thing;")
		require.NoError(t, err)
		assert.Equal(t, "(ILcom/neu/Thing;[Lcom/neu/Thing;)Lcom/neu/Thing;", desc)

		desc, err = r.MapDescriptor("Lcom/old/Thing;")
		require.NoError(t, err)
		assert.Equal(t, "Lcom/neu/Thing;", desc)
	})
}

func TestRemapClass(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	r := NewTableRemapper(map[ClassDesc]ClassDesc{
		"Lcom/old/Thing;":      "Lcom/neu/Thing;",
		"Lcom/example/Sample;": "Lcom/example/Renamed;",
	})
	out, err := RemapClass(m, r)
	require.NoError(t, err)

	m2, err := Parse(out)
	require.NoError(t, err)

	t.Run("this class renamed", func(t *testing.T) {
		assert.Equal(t, ClassDesc("Lcom/example/Renamed;"), m2.ThisClass)
	})

	t.Run("member descriptors", func(t *testing.T) {
		assert.Equal(t, "Lcom/neu/Thing;", m2.Fields[1].Descriptor)
		assert.Equal(t, "(Lcom/neu/Thing;)V", m2.Methods[1].Descriptor)
	})

	t.Run("bytecode operands", func(t *testing.T) {
		code, err := m2.Methods[1].Code()
		require.NoError(t, err)
		require.NoError(t, code.Instructions(func(in Instruction) error {
			switch in.Opcode {
			case OpNew:
				c, err := in.ClassOperand()
				require.NoError(t, err)
				assert.Equal(t, ClassDesc("Lcom/neu/Thing;"), c)
			case OpInvokespecial:
				ref, _, err := in.MethodRef()
				require.NoError(t, err)
				assert.Equal(t, ClassDesc("Lcom/neu/Thing;"), ref.Owner)
			case OpPutstatic:
				ref, err := in.FieldRef()
				require.NoError(t, err)
				assert.Equal(t, ClassDesc("Lcom/example/Renamed;"), ref.Owner)
				assert.Equal(t, "Lcom/neu/Thing;", ref.Descriptor)
			case OpLdc:
				v, err := in.Constant()
				require.NoError(t, err)
				assert.Equal(t, "hello", v, "string constants never remap")
			}
			return nil
		}))
	})

	t.Run("untouched names survive", func(t *testing.T) {
		assert.Equal(t, ClassDesc("Ljava/lang/Object;"), m2.Superclass)
		assert.Equal(t, "thing", m2.Fields[1].Name)
	})
}

func TestRemapAttributes(t *testing.T) {
	b := NewClassBuilder("LBox;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithAttribute(NewAttribute(AttrSignature, &SignatureAttribute{
		Signature: "<T:Ljava/lang/Object;>Ljava/lang/Object;Lcom/old/Holder<TT;>;",
	}))
	b.WithAttribute(NewAttribute(AttrNestMembers, &NestMembersAttribute{
		Members: []ClassDesc{"Lcom/old/Thing;"},
	}))
	b.WithMethod("f", "()V", AccPublic|AccAbstract, nil)
	b.SetFlags(AccPublic | AccSuper | AccAbstract)
	data, err := b.Bytes()
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)

	r := NewTableRemapper(map[ClassDesc]ClassDesc{
		"Lcom/old/Thing;":  "Lcom/neu/Thing;",
		"Lcom/old/Holder;": "Lcom/neu/Holder;",
	})
	out, err := RemapClass(m, r)
	require.NoError(t, err)
	m2, err := Parse(out)
	require.NoError(t, err)

	sig, err := AttributeAs[SignatureAttribute](m2.FindAttribute(AttrSignature))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "<T:Ljava/lang/Object;>Ljava/lang/Object;Lcom/neu/Holder<TT;>;", sig.Signature)

	nest, err := AttributeAs[NestMembersAttribute](m2.FindAttribute(AttrNestMembers))
	require.NoError(t, err)
	require.NotNil(t, nest)
	assert.Equal(t, []ClassDesc{"Lcom/neu/Thing;"}, nest.Members)
}

func TestRemapParameterAnnotations(t *testing.T) {
	b := NewClassBuilder("LChecked;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithMethod("f", "(Ljava/lang/String;I)V", AccPublic|AccAbstract, func(mb *MethodBuilder) {
		mb.WithAttribute(NewAttribute(AttrRuntimeVisibleParameterAnnotations,
			&RuntimeVisibleParameterAnnotationsAttribute{Parameters: [][]Annotation{
				{{
					Type: "Lcom/old/Check;",
					Elements: []AnnotationElement{{
						Name:  "expected",
						Value: AnnotationValue{Tag: 'c', Class: "Lcom/old/Thing;"},
					}},
				}},
				{},
			}}))
	})
	b.SetFlags(AccPublic | AccSuper | AccAbstract)
	data, err := b.Bytes()
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)

	r := NewTableRemapper(map[ClassDesc]ClassDesc{
		"Lcom/old/Check;": "Lcom/neu/Check;",
		"Lcom/old/Thing;": "Lcom/neu/Thing;",
	})
	out, err := RemapClass(m, r)
	require.NoError(t, err)
	m2, err := Parse(out)
	require.NoError(t, err)

	pa, err := AttributeAs[RuntimeVisibleParameterAnnotationsAttribute](
		m2.Methods[0].FindAttribute(AttrRuntimeVisibleParameterAnnotations))
	require.NoError(t, err)
	require.NotNil(t, pa)
	require.Len(t, pa.Parameters, 2)
	require.Len(t, pa.Parameters[0], 1)
	ann := pa.Parameters[0][0]
	assert.Equal(t, ClassDesc("Lcom/neu/Check;"), ann.Type)
	require.Len(t, ann.Elements, 1)
	assert.Equal(t, ClassDesc("Lcom/neu/Thing;"), ann.Elements[0].Value.Class)
	assert.Empty(t, pa.Parameters[1], "annotation-free parameter stays empty")
}

func TestRemapExceptionHandlers(t *testing.T) {
	b := NewClassBuilder("LCatcher;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithMethod("go", "()V", AccPublic|AccStatic, func(mb *MethodBuilder) {
		mb.WithCode(1, 0, func(cb *CodeBuilder) {
			cb.Raw(OpNop)
			cb.Raw(OpReturn)
			cb.Raw(OpAthrow)
			cb.WithHandler(ExceptionHandler{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: "Lcom/old/Oops;"})
		})
	})
	data, err := b.Bytes()
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)

	r := NewTableRemapper(map[ClassDesc]ClassDesc{"Lcom/old/Oops;": "Lcom/neu/Oops;"})
	out, err := RemapClass(m, r)
	require.NoError(t, err)
	m2, err := Parse(out)
	require.NoError(t, err)
	code, err := m2.Methods[0].Code()
	require.NoError(t, err)
	require.Len(t, code.Handlers, 1)
	assert.Equal(t, ClassDesc("Lcom/neu/Oops;"), code.Handlers[0].CatchType)
}

func TestIdentityRemapMatchesRoundTrip(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	roundTrip, err := TransformClass(m, AcceptAllClass)
	require.NoError(t, err)
	remapped, err := RemapClass(m, NewRemapper(func(d ClassDesc) ClassDesc { return d }))
	require.NoError(t, err)
	assert.Equal(t, roundTrip, remapped, "identity remap must serialize byte for byte like a plain round trip")
}
