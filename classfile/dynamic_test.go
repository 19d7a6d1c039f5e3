package classfile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concatSite() DynamicConstant {
	return DynamicConstant{
		Bootstrap: MethodHandle{
			Kind:  RefInvokeStatic,
			Owner: "Ljava/lang/invoke/StringConcatFactory;",
			Name:  "makeConcatWithConstants",
			Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;" +
				"Ljava/lang/invoke/MethodType;Ljava/lang/String;[Ljava/lang/Object;)" +
				"Ljava/lang/invoke/CallSite;",
		},
		BootstrapArgs: []any{"prefix \x01"},
		Name:          "concat",
		Descriptor:    "()Ljava/lang/String;",
	}
}

func dynamicClassBytes(t *testing.T) []byte {
	t.Helper()
	b := NewClassBuilder("LDyn;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithMethod("greet", "()Ljava/lang/String;", AccPublic|AccStatic, func(mb *MethodBuilder) {
		mb.WithCode(1, 0, func(cb *CodeBuilder) {
			cb.InvokeDynamicInstruction(concatSite())
			cb.Raw(OpAreturn)
		})
	})
	data, err := b.Bytes()
	require.NoError(t, err)
	return data
}

func TestInvokeDynamicRoundTrip(t *testing.T) {
	m, err := Parse(dynamicClassBytes(t))
	require.NoError(t, err)
	require.Empty(t, errorStrings(Verify(m)))

	t.Run("bootstrap table synthesized", func(t *testing.T) {
		bsm, err := AttributeAs[BootstrapMethodsAttribute](m.FindAttribute(AttrBootstrapMethods))
		require.NoError(t, err)
		require.NotNil(t, bsm)
		require.Len(t, bsm.Methods, 1)
		assert.Equal(t, "makeConcatWithConstants", bsm.Methods[0].Handle.Name)
	})

	t.Run("call site resolves symbolically", func(t *testing.T) {
		code, err := m.Methods[0].Code()
		require.NoError(t, err)
		var got DynamicConstant
		require.NoError(t, code.Instructions(func(in Instruction) error {
			if in.Opcode == OpInvokedynamic {
				var err error
				got, err = in.InvokeDynamic()
				return err
			}
			return nil
		}))
		if diff := cmp.Diff(concatSite(), got); diff != "" {
			t.Errorf("call site changed (-want +got):\n%s", diff)
		}
	})

	t.Run("survives identity transform", func(t *testing.T) {
		out, err := TransformClass(m, AcceptAllClass)
		require.NoError(t, err)
		m2, err := Parse(out)
		require.NoError(t, err)
		bsm, err := AttributeAs[BootstrapMethodsAttribute](m2.FindAttribute(AttrBootstrapMethods))
		require.NoError(t, err)
		require.NotNil(t, bsm)
		assert.Len(t, bsm.Methods, 1)
	})
}

func TestRemapInvokeDynamic(t *testing.T) {
	m, err := Parse(dynamicClassBytes(t))
	require.NoError(t, err)

	r := NewTableRemapper(map[ClassDesc]ClassDesc{
		"Ljava/lang/invoke/StringConcatFactory;": "Lshaded/invoke/StringConcatFactory;",
	})
	out, err := RemapClass(m, r)
	require.NoError(t, err)

	m2, err := Parse(out)
	require.NoError(t, err)
	bsm, err := AttributeAs[BootstrapMethodsAttribute](m2.FindAttribute(AttrBootstrapMethods))
	require.NoError(t, err)
	require.NotNil(t, bsm)
	require.Len(t, bsm.Methods, 1)
	assert.Equal(t, ClassDesc("Lshaded/invoke/StringConcatFactory;"), bsm.Methods[0].Handle.Owner)
	assert.Equal(t, "prefix \x01", bsm.Methods[0].Args[0], "string bootstrap arguments never remap")
}

func TestConstantDynamicLoad(t *testing.T) {
	condy := DynamicConstant{
		Bootstrap: MethodHandle{
			Kind:  RefInvokeStatic,
			Owner: "Ljava/lang/invoke/ConstantBootstraps;",
			Name:  "nullConstant",
			Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;" +
				"Ljava/lang/Class;)Ljava/lang/Object;",
		},
		Name:       "nil",
		Descriptor: "Ljava/lang/Object;",
	}
	b := NewClassBuilder("LCondy;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithMethod("get", "()Ljava/lang/Object;", AccPublic|AccStatic, func(mb *MethodBuilder) {
		mb.WithCode(1, 0, func(cb *CodeBuilder) {
			cb.ConstantInstruction(condy)
			cb.Raw(OpAreturn)
		})
	})
	data, err := b.Bytes()
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	code, err := m.Methods[0].Code()
	require.NoError(t, err)
	require.NoError(t, code.Instructions(func(in Instruction) error {
		if in.Opcode == OpLdc {
			v, err := in.Constant()
			require.NoError(t, err)
			if diff := cmp.Diff(condy, v, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("dynamic constant changed (-want +got):\n%s", diff)
			}
		}
		return nil
	}))
}
