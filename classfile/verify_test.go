package classfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func assertDiagnostic(t *testing.T, errs []error, fragment string) {
	t.Helper()
	for _, err := range errs {
		if strings.Contains(err.Error(), fragment) {
			return
		}
	}
	t.Errorf("no diagnostic mentions %q in %v", fragment, errorStrings(errs))
}

func TestVerifyAcceptsWellFormedClass(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)
	assert.Empty(t, errorStrings(Verify(m)))
}

func TestVerifyDiagnostics(t *testing.T) {
	t.Run("duplicate method", func(t *testing.T) {
		b := NewClassBuilder("LDup;")
		b.SetFlags(AccPublic | AccSuper)
		for i := 0; i < 2; i++ {
			b.WithMethod("f", "()V", AccPublic, func(mb *MethodBuilder) {
				mb.WithCode(0, 1, func(cb *CodeBuilder) { cb.Raw(OpReturn) })
			})
		}
		assertDiagnostic(t, verifyBuilt(t, b), "duplicate method f()V")
	})

	t.Run("class initializer must be static", func(t *testing.T) {
		b := NewClassBuilder("LInit;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithMethod(ClassInitName, "()V", 0, func(mb *MethodBuilder) {
			mb.WithCode(0, 1, func(cb *CodeBuilder) { cb.Raw(OpReturn) })
		})
		assertDiagnostic(t, verifyBuilt(t, b), "must be static")
	})

	t.Run("abstract method with code", func(t *testing.T) {
		b := NewClassBuilder("LAbs;")
		b.SetFlags(AccPublic | AccSuper | AccAbstract)
		b.WithMethod("f", "()V", AccPublic|AccAbstract, func(mb *MethodBuilder) {
			mb.WithCode(0, 1, func(cb *CodeBuilder) { cb.Raw(OpReturn) })
		})
		assertDiagnostic(t, verifyBuilt(t, b), "abstract or native but has a Code attribute")
	})

	t.Run("concrete method without code", func(t *testing.T) {
		b := NewClassBuilder("LNoCode;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithMethod("f", "()V", AccPublic, nil)
		assertDiagnostic(t, verifyBuilt(t, b), "has no Code attribute")
	})

	t.Run("max_locals below argument slots", func(t *testing.T) {
		b := NewClassBuilder("LLocals;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithMethod("f", "(JD)V", AccPublic|AccStatic, func(mb *MethodBuilder) {
			mb.WithCode(0, 2, func(cb *CodeBuilder) { cb.Raw(OpReturn) })
		})
		assertDiagnostic(t, verifyBuilt(t, b), "arguments need 4 slots")
	})

	t.Run("nest host and members conflict", func(t *testing.T) {
		b := NewClassBuilder("LNest;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithAttribute(NewAttribute(AttrNestHost, &NestHostAttribute{Host: "LOuter;"}))
		b.WithAttribute(NewAttribute(AttrNestMembers, &NestMembersAttribute{Members: []ClassDesc{"LInner;"}}))
		assertDiagnostic(t, verifyBuilt(t, b), "both a NestHost and a NestMembers")
	})

	t.Run("final sealed class", func(t *testing.T) {
		b := NewClassBuilder("LSealed;")
		b.SetFlags(AccPublic | AccSuper | AccFinal)
		b.WithAttribute(NewAttribute(AttrPermittedSubclasses, &PermittedSubclassesAttribute{
			Subclasses: []ClassDesc{"LChild;"},
		}))
		assertDiagnostic(t, verifyBuilt(t, b), "final class")
	})

	t.Run("interface constructor", func(t *testing.T) {
		b := NewClassBuilder("LIface;")
		b.SetFlags(AccPublic | AccInterface | AccAbstract)
		b.WithMethod(InitName, "()V", AccPublic|AccAbstract, nil)
		assertDiagnostic(t, verifyBuilt(t, b), "declares a constructor")
	})

	t.Run("mismatched constant value", func(t *testing.T) {
		b := NewClassBuilder("LCv;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithField("x", "J", AccStatic|AccFinal, func(fb *FieldBuilder) {
			fb.WithAttribute(NewAttribute(AttrConstantValue, &ConstantValueAttribute{Value: int32(1)}))
		})
		assertDiagnostic(t, verifyBuilt(t, b), "mismatched ConstantValue")
	})

	t.Run("truncated attribute payload", func(t *testing.T) {
		m, err := Parse(sampleClassBytes(t))
		require.NoError(t, err)
		m.Attributes = append(m.Attributes, &Attribute{Name: AttrSignature, raw: []byte{0x00}})
		assertDiagnostic(t, Verify(m), "decoding Signature attribute")
	})

	t.Run("repeated single-instance attribute on a method", func(t *testing.T) {
		m, err := Parse(sampleClassBytes(t))
		require.NoError(t, err)
		sig := NewAttribute(AttrSignature, &SignatureAttribute{Signature: "()V"})
		m.Methods[0].Attributes = append(m.Methods[0].Attributes, sig, sig)
		assertDiagnostic(t, Verify(m), "multiple Signature attributes")
	})

	t.Run("repeated single-instance attribute on a field", func(t *testing.T) {
		m, err := Parse(sampleClassBytes(t))
		require.NoError(t, err)
		dep := NewAttribute(AttrDeprecated, &DeprecatedAttribute{})
		m.Fields[0].Attributes = append(m.Fields[0].Attributes, dep, dep)
		assertDiagnostic(t, Verify(m), "multiple Deprecated attributes")
	})

	t.Run("duplicate interface", func(t *testing.T) {
		b := NewClassBuilder("LTwice;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithInterface("Ljava/io/Closeable;")
		b.WithInterface("Ljava/io/Closeable;")
		assertDiagnostic(t, verifyBuilt(t, b), "duplicate interface java.io.Closeable")
	})

	t.Run("record component attributes checked recursively", func(t *testing.T) {
		b := NewClassBuilder("LPoint;")
		b.SetFlags(AccPublic | AccSuper | AccFinal)
		b.WithAttribute(NewAttribute(AttrRecord, &RecordAttribute{Components: []RecordComponent{{
			Name:       "x",
			Descriptor: "I",
			Attributes: []*Attribute{NewAttribute(AttrSignature, &SignatureAttribute{Signature: "TT;"})},
		}}}))
		data, err := b.Bytes()
		require.NoError(t, err)

		m, err := Parse(data)
		require.NoError(t, err)
		assert.Empty(t, errorStrings(Verify(m)))

		damaged, err := Parse(data)
		require.NoError(t, err)
		rec, err := AttributeAs[RecordAttribute](damaged.FindAttribute(AttrRecord))
		require.NoError(t, err)
		rec.Components[0].Attributes[0].raw = []byte{0x00}
		assertDiagnostic(t, Verify(damaged), "record component x")
	})

	t.Run("inner class as its own outer", func(t *testing.T) {
		b := NewClassBuilder("LSelf;")
		b.SetFlags(AccPublic | AccSuper)
		b.WithAttribute(NewAttribute(AttrInnerClasses, &InnerClassesAttribute{
			Classes: []InnerClassInfo{{Inner: "LSelf;", Outer: "LSelf;", Name: "Self"}},
		}))
		assertDiagnostic(t, verifyBuilt(t, b), "its own outer class")
	})
}

func verifyBuilt(t *testing.T, b *ClassBuilder) []error {
	t.Helper()
	data, err := b.Bytes()
	require.NoError(t, err)
	m, err := Parse(data)
	require.NoError(t, err)
	return Verify(m)
}

func TestVerifyIsIdempotent(t *testing.T) {
	m, err := Parse(sampleClassBytes(t))
	require.NoError(t, err)
	m.Attributes = append(m.Attributes, &Attribute{Name: AttrSignature, raw: []byte{0x00}})

	first := errorStrings(Verify(m))
	second := errorStrings(Verify(m))
	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "re-verifying the same model must report the same findings")
}
