package classfile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStackMapFrameRoundTrip(t *testing.T) {
	frames := []StackMapFrame{
		{FrameType: 5, OffsetDelta: 5},
		{FrameType: 70, OffsetDelta: 6, Stack: []VerificationType{{Tag: VTInteger}}},
		{FrameType: sameLocals1StackItemExtFT, OffsetDelta: 300,
			Stack: []VerificationType{{Tag: VTObject, ClassName: "Ljava/lang/String;"}}},
		{FrameType: 249, OffsetDelta: 10},
		{FrameType: sameFrameExtendedFT, OffsetDelta: 20},
		{FrameType: 254, OffsetDelta: 30,
			Locals: []VerificationType{{Tag: VTLong}, {Tag: VTTop}, {Tag: VTNull}}},
		{FrameType: fullFrameFT, OffsetDelta: 40,
			Locals: []VerificationType{{Tag: VTObject, ClassName: "[I"}, {Tag: VTUninitializedThis}},
			Stack:  []VerificationType{{Tag: VTUninitialized, Offset: 7}}},
	}

	pb := NewPoolBuilder()
	w := &writer{}
	w.u2(uint16(len(frames)))
	for _, f := range frames {
		require.NoError(t, encodeStackMapFrame(w, pb, f))
	}
	require.NoError(t, pb.Err())

	r := &reader{data: w.buf}
	decoded, err := decodeStackMapTable(r, pb.Pool())
	require.NoError(t, err)
	require.NoError(t, r.err)

	if diff := cmp.Diff(frames, decoded); diff != "" {
		t.Errorf("frames changed across encode/decode (-in +out):\n%s", diff)
	}

	t.Run("encoded sizes match serialized form", func(t *testing.T) {
		total := 2
		for _, f := range frames {
			total += f.encodedSize()
		}
		require.Equal(t, total, len(w.buf))
	})
}

func TestStackMapRejectsReservedFrameTypes(t *testing.T) {
	r := &reader{data: []byte{0x00, 0x01, 200}}
	_, err := decodeStackMapTable(r, nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestStackMapSurvivesTransform(t *testing.T) {
	// A method with a branch carries its frame table through an identity
	// transform untouched, since instruction offsets do not move.
	b := NewClassBuilder("LBranchy;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithMethod("pick", "(I)I", AccPublic|AccStatic, func(mb *MethodBuilder) {
		mb.WithCode(1, 1, func(cb *CodeBuilder) {
			cb.Raw(OpIload, 0)         // 0: iload 0
			cb.Raw(OpIfeq, 0x00, 0x05) // 2: ifeq +5 -> 7
			cb.Raw(OpIconst1)          // 5: iconst_1
			cb.Raw(OpIreturn)          // 6: ireturn
			cb.Raw(OpIconst0)          // 7: iconst_0
			cb.Raw(OpIreturn)          // 8: ireturn
			cb.WithAttribute(NewAttribute(AttrStackMapTable, &StackMapTableAttribute{
				Frames: []StackMapFrame{{FrameType: 7, OffsetDelta: 7}},
			}))
		})
	})
	data, err := b.Bytes()
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	require.Empty(t, errorStrings(Verify(m)))

	out, err := TransformClass(m, AcceptAllClass)
	require.NoError(t, err)
	m2, err := Parse(out)
	require.NoError(t, err)

	code, err := m2.Methods[0].Code()
	require.NoError(t, err)
	smt, err := AttributeAs[StackMapTableAttribute](code.FindAttribute(AttrStackMapTable))
	require.NoError(t, err)
	require.NotNil(t, smt)
	require.Equal(t, []StackMapFrame{{FrameType: 7, OffsetDelta: 7}}, smt.Frames)
}
