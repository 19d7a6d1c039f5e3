package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapSignature(t *testing.T) {
	mapping := map[ClassDesc]ClassDesc{
		"Lcom/old/Box;":         "Lcom/neu/Box;",
		"Lcom/old/Thing;":       "Lcom/neu/Thing;",
		"Lcom/old/Outer;":       "Lcom/neu/Outer;",
		"Lcom/old/Outer$Inner;": "Lcom/neu/Outer$Inner;",
	}
	remap := func(d ClassDesc) ClassDesc {
		if to, ok := mapping[d]; ok {
			return to
		}
		return d
	}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"class signature with type parameter",
			"<T:Ljava/lang/Object;>Ljava/lang/Object;Lcom/old/Box<TT;>;",
			"<T:Ljava/lang/Object;>Ljava/lang/Object;Lcom/neu/Box<TT;>;",
		},
		{
			"method signature with wildcard and throws",
			"(TT;Lcom/old/Box<+Lcom/old/Thing;>;)Lcom/old/Thing;^Ljava/io/IOException;",
			"(TT;Lcom/neu/Box<+Lcom/neu/Thing;>;)Lcom/neu/Thing;^Ljava/io/IOException;",
		},
		{
			"field signature with star projection",
			"Lcom/old/Box<*>;",
			"Lcom/neu/Box<*>;",
		},
		{
			"inner class segments",
			"Lcom/old/Outer<TT;>.Inner;",
			"Lcom/neu/Outer<TT;>.Inner;",
		},
		{
			"arrays and primitives untouched",
			"([I[Lcom/old/Thing;D)V",
			"([I[Lcom/neu/Thing;D)V",
		},
		{
			"interface bounds",
			"<K:Ljava/lang/Object;:Lcom/old/Thing;V::Lcom/old/Thing;>Ljava/lang/Object;",
			"<K:Ljava/lang/Object;:Lcom/neu/Thing;V::Lcom/neu/Thing;>Ljava/lang/Object;",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := remapSignature(tc.in, remap)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("malformed signatures fail", func(t *testing.T) {
		for _, sig := range []string{"Lunterminated", "(I", "Lcom/old/Box<;", "Q;"} {
			_, err := remapSignature(sig, remap)
			assert.Error(t, err, "signature %q", sig)
		}
	})

	t.Run("identity map keeps the text", func(t *testing.T) {
		sig := "<T:Ljava/lang/Object;>(TT;)Lcom/old/Box<-TT;>;"
		got, err := remapSignature(sig, func(d ClassDesc) ClassDesc { return d })
		require.NoError(t, err)
		assert.Equal(t, sig, got)
	})
}
