package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsGarbage(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		_, err := Parse([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 52})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "magic")
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := Parse([]byte{0xca, 0xfe, 0xba, 0xbe, 0x00})
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		data := append(sampleClassBytes(t), 0x00)
		_, err := Parse(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trailing")
	})

	t.Run("truncated body", func(t *testing.T) {
		data := sampleClassBytes(t)
		for _, cut := range []int{10, len(data) / 2, len(data) - 1} {
			_, err := Parse(data[:cut])
			assert.Error(t, err, "cut at %d", cut)
		}
	})
}

func TestParseResolvesHeaderEagerly(t *testing.T) {
	// A mistyped this_class must fail at parse time, not at first use:
	// here it points at a String entry where a Class belongs.
	pb := NewPoolBuilder()
	str := pb.String("not a class")
	w := &writer{}
	w.u4(Magic)
	w.u2(0)
	w.u2(Java17Version)
	require.NoError(t, encodeConstantPool(w, pb.Pool()))
	w.u2(uint16(AccPublic)) // access_flags
	w.u2(str)               // this_class -> String entry
	w.u2(0)                 // super_class
	w.u2(0)                 // interfaces
	w.u2(0)                 // fields
	w.u2(0)                 // methods
	w.u2(0)                 // attributes

	_, err := Parse(w.buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPoolIndex)
}

func TestAttributeDecodeIsLazy(t *testing.T) {
	data := sampleClassBytes(t)
	m, err := Parse(data)
	require.NoError(t, err)

	a := m.FindAttribute(AttrSourceFile)
	require.NotNil(t, a)
	assert.True(t, a.IsBound())
	assert.False(t, a.decoded, "payload must stay raw until first access")

	sf, err := AttributeAs[SourceFileAttribute](a)
	require.NoError(t, err)
	assert.Equal(t, "Sample.java", sf.File)
	assert.True(t, a.decoded)
}

func TestAttributeDecodeErrorIsSticky(t *testing.T) {
	a := &Attribute{Name: AttrSignature, raw: []byte{0x00}}
	_, err1 := a.Parsed()
	require.Error(t, err1)
	_, err2 := a.Parsed()
	assert.Same(t, err1, err2, "decode failures memoize like successes")
}

func TestUnknownAttributeRoundTrips(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	b := NewClassBuilder("LFoo;")
	b.SetFlags(AccPublic | AccSuper)
	b.WithAttribute(NewAttribute("com.example.Custom", &UnknownAttribute{Contents: payload}))
	data, err := b.Bytes()
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	u, err := AttributeAs[UnknownAttribute](m.FindAttribute("com.example.Custom"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, payload, u.Contents)

	// And once more through an identity transform.
	again, err := TransformClass(m, AcceptAllClass)
	require.NoError(t, err)
	m2, err := Parse(again)
	require.NoError(t, err)
	u2, err := AttributeAs[UnknownAttribute](m2.FindAttribute("com.example.Custom"))
	require.NoError(t, err)
	require.NotNil(t, u2)
	assert.Equal(t, payload, u2.Contents)
}
