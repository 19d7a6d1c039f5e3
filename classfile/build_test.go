package classfile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleClassBytes assembles a small but representative class: a static
// field with a constant, a constructor, and a method whose code touches
// the constant pool in several ways.
func sampleClassBytes(t *testing.T) []byte {
	t.Helper()
	b := NewClassBuilder("Lcom/example/Sample;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithField("count", "I", AccPrivate|AccStatic, func(fb *FieldBuilder) {
		fb.WithAttribute(NewAttribute(AttrConstantValue, &ConstantValueAttribute{Value: int32(42)}))
	})
	b.WithField("thing", "Lcom/old/Thing;", AccPrivate|AccStatic, nil)
	b.WithMethod(InitName, "()V", AccPublic, func(mb *MethodBuilder) {
		mb.WithCode(1, 1, func(cb *CodeBuilder) {
			cb.Raw(OpAload0)
			cb.InvokeInstruction(OpInvokespecial, MemberRef{
				Owner: "Ljava/lang/Object;", Name: InitName, Descriptor: "()V",
			}, false)
			cb.Raw(OpReturn)
		})
	})
	b.WithMethod("make", "(Lcom/old/Thing;)V", AccPublic, func(mb *MethodBuilder) {
		mb.WithCode(2, 2, func(cb *CodeBuilder) {
			cb.TypeInstruction(OpNew, "Lcom/old/Thing;")
			cb.Raw(OpDup)
			cb.InvokeInstruction(OpInvokespecial, MemberRef{
				Owner: "Lcom/old/Thing;", Name: InitName, Descriptor: "()V",
			}, false)
			cb.FieldInstruction(OpPutstatic, MemberRef{
				Owner: "Lcom/example/Sample;", Name: "thing", Descriptor: "Lcom/old/Thing;",
			})
			cb.ConstantInstruction("hello")
			cb.Raw(OpPop)
			cb.Raw(OpReturn)
		})
	})
	b.WithAttribute(NewAttribute(AttrSourceFile, &SourceFileAttribute{File: "Sample.java"}))
	data, err := b.Bytes()
	require.NoError(t, err)
	return data
}

func TestBuildMinimalClass(t *testing.T) {
	b := NewClassBuilder("LFoo;")
	b.SetFlags(AccPublic | AccSuper)
	data, err := b.Bytes()
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, ClassDesc("LFoo;"), m.ThisClass)
	assert.Equal(t, ClassDesc("Ljava/lang/Object;"), m.Superclass)
	assert.Equal(t, uint16(DefaultMajorVersion), m.Major)
	assert.Empty(t, m.Fields)
	assert.Empty(t, m.Methods)
}

func TestBuildSampleClass(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)

	t.Run("header", func(t *testing.T) {
		assert.Equal(t, ClassDesc("Lcom/example/Sample;"), m.ThisClass)
		assert.True(t, m.Flags.IsPublic())
	})

	t.Run("field constant", func(t *testing.T) {
		require.Len(t, m.Fields, 2)
		f := m.Fields[0]
		assert.Equal(t, "count", f.Name)
		cv, err := AttributeAs[ConstantValueAttribute](f.FindAttribute(AttrConstantValue))
		require.NoError(t, err)
		require.NotNil(t, cv)
		assert.Equal(t, int32(42), cv.Value)
	})

	t.Run("code decodes", func(t *testing.T) {
		require.Len(t, m.Methods, 2)
		code, err := m.Methods[1].Code()
		require.NoError(t, err)
		require.NotNil(t, code)
		assert.Equal(t, uint16(2), code.MaxStack)

		var names []string
		require.NoError(t, code.Instructions(func(in Instruction) error {
			names = append(names, in.Name())
			return nil
		}))
		want := []string{"new", "dup", "invokespecial", "putstatic", "ldc", "pop", "return"}
		assert.Equal(t, want, names)
	})

	t.Run("symbolic operands", func(t *testing.T) {
		code, err := m.Methods[1].Code()
		require.NoError(t, err)
		require.NoError(t, code.Instructions(func(in Instruction) error {
			switch in.Opcode {
			case OpNew:
				c, err := in.ClassOperand()
				require.NoError(t, err)
				assert.Equal(t, ClassDesc("Lcom/old/Thing;"), c)
			case OpPutstatic:
				ref, err := in.FieldRef()
				require.NoError(t, err)
				assert.Equal(t, "thing", ref.Name)
			case OpLdc:
				v, err := in.Constant()
				require.NoError(t, err)
				assert.Equal(t, "hello", v)
			}
			return nil
		}))
	})

	t.Run("class attribute", func(t *testing.T) {
		sf, err := AttributeAs[SourceFileAttribute](m.FindAttribute(AttrSourceFile))
		require.NoError(t, err)
		require.NotNil(t, sf)
		assert.Equal(t, "Sample.java", sf.File)
	})
}

// classShape projects the structurally relevant pieces of a model for
// comparison, leaving out pool layout which may legitimately differ.
type classShape struct {
	Flags      AccessFlags
	ThisClass  ClassDesc
	Superclass ClassDesc
	Interfaces []ClassDesc
	Fields     []string
	Methods    []string
	Attrs      []string
}

func shapeOf(m *ClassModel) classShape {
	s := classShape{
		Flags:      m.Flags,
		ThisClass:  m.ThisClass,
		Superclass: m.Superclass,
		Interfaces: m.Interfaces,
	}
	for _, f := range m.Fields {
		s.Fields = append(s.Fields, f.Name+":"+f.Descriptor)
	}
	for _, method := range m.Methods {
		s.Methods = append(s.Methods, method.Name+method.Descriptor)
	}
	for _, a := range m.Attributes {
		s.Attrs = append(s.Attrs, a.Name)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	data := sampleClassBytes(t)
	m, err := Parse(data)
	require.NoError(t, err)

	rewritten, err := TransformClass(m, AcceptAllClass)
	require.NoError(t, err)

	m2, err := Parse(rewritten)
	require.NoError(t, err)
	if diff := cmp.Diff(shapeOf(m), shapeOf(m2)); diff != "" {
		t.Errorf("class shape changed across round trip (-before +after):\n%s", diff)
	}

	code, err := m2.Methods[1].Code()
	require.NoError(t, err)
	original, err := m.Methods[1].Code()
	require.NoError(t, err)
	assert.Equal(t, original.Code, code.Code, "bytecode must survive byte for byte")
}

func TestBuildConvenience(t *testing.T) {
	data, err := Build("LBar;", func(b *ClassBuilder) {
		b.SetFlags(AccPublic | AccSuper)
	})
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, ClassDesc("LBar;"), m.ThisClass)
}

func TestBuildRejectsRepeatedSingleInstanceAttribute(t *testing.T) {
	t.Run("class level", func(t *testing.T) {
		_, err := Build("LDupAttr;", func(b *ClassBuilder) {
			b.SetFlags(AccPublic | AccSuper)
			b.WithAttribute(NewAttribute(AttrSourceFile, &SourceFileAttribute{File: "A.java"}))
			b.WithAttribute(NewAttribute(AttrSourceFile, &SourceFileAttribute{File: "B.java"}))
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "second SourceFile attribute")
	})

	t.Run("method level", func(t *testing.T) {
		_, err := Build("LDupCode;", func(b *ClassBuilder) {
			b.SetFlags(AccPublic | AccSuper)
			b.WithMethod("f", "()V", AccPublic, func(mb *MethodBuilder) {
				mb.WithCode(0, 1, func(cb *CodeBuilder) { cb.Raw(OpReturn) })
				mb.WithCode(0, 1, func(cb *CodeBuilder) { cb.Raw(OpReturn) })
			})
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "second Code attribute")
	})

	t.Run("unknown attributes may repeat", func(t *testing.T) {
		_, err := Build("LCustom;", func(b *ClassBuilder) {
			b.SetFlags(AccPublic | AccSuper)
			b.WithAttribute(NewAttribute("X-Custom", &UnknownAttribute{Contents: []byte{1}}))
			b.WithAttribute(NewAttribute("X-Custom", &UnknownAttribute{Contents: []byte{2}}))
		})
		require.NoError(t, err)
	})
}
