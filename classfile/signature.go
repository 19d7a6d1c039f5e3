package classfile

import (
	"fmt"
	"strings"
)

// signatureRewriter walks a generic signature (class, method, or field
// form) and rewrites every class type reference through a mapping
// function, copying the rest verbatim. The output is built as it scans.
type signatureRewriter struct {
	in  string
	pos int
	out strings.Builder
	fn  func(ClassDesc) ClassDesc
}

// remapSignature rewrites the class names inside a Signature attribute
// payload. The three signature forms share enough structure that a single
// scanner handles them all.
func remapSignature(sig string, fn func(ClassDesc) ClassDesc) (string, error) {
	r := &signatureRewriter{in: sig, fn: fn}
	if r.peek() == '<' {
		if err := r.typeParams(); err != nil {
			return "", err
		}
	}
	if r.peek() == '(' {
		r.copyByte() // (
		for r.peek() != ')' {
			if err := r.typeSignature(); err != nil {
				return "", err
			}
		}
		r.copyByte() // )
		if err := r.typeSignature(); err != nil {
			return "", err
		}
		for r.peek() == '^' {
			r.copyByte()
			if err := r.typeSignature(); err != nil {
				return "", err
			}
		}
	} else {
		// Class signatures are a superclass followed by interfaces;
		// field signatures are a single reference type. Both are a run
		// of type signatures.
		for r.pos < len(r.in) {
			if err := r.typeSignature(); err != nil {
				return "", err
			}
		}
	}
	if r.pos != len(r.in) {
		return "", fmt.Errorf("%w: trailing characters in signature %q", ErrMalformed, sig)
	}
	return r.out.String(), nil
}

func (r *signatureRewriter) peek() byte {
	if r.pos >= len(r.in) {
		return 0
	}
	return r.in[r.pos]
}

func (r *signatureRewriter) copyByte() {
	r.out.WriteByte(r.in[r.pos])
	r.pos++
}

func (r *signatureRewriter) errAt(what string) error {
	return fmt.Errorf("%w: %s at offset %d in signature %q", ErrMalformed, what, r.pos, r.in)
}

// identifier copies characters up to (not including) the next delimiter
// and returns them.
func (r *signatureRewriter) identifier(delims string) (string, error) {
	start := r.pos
	for r.pos < len(r.in) && !strings.ContainsRune(delims, rune(r.in[r.pos])) {
		r.pos++
	}
	if r.pos >= len(r.in) {
		return "", r.errAt("unterminated identifier")
	}
	return r.in[start:r.pos], nil
}

func (r *signatureRewriter) typeParams() error {
	r.copyByte() // <
	for r.peek() != '>' {
		name, err := r.identifier(":")
		if err != nil {
			return err
		}
		r.out.WriteString(name)
		r.copyByte() // :
		// The class bound may be absent; interface bounds follow with
		// extra colons.
		if r.peek() != ':' && r.peek() != '>' {
			if err := r.typeSignature(); err != nil {
				return err
			}
		}
		for r.peek() == ':' {
			r.copyByte()
			if err := r.typeSignature(); err != nil {
				return err
			}
		}
	}
	r.copyByte() // >
	return nil
}

func (r *signatureRewriter) typeSignature() error {
	switch r.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		r.copyByte()
		return nil
	case '[':
		r.copyByte()
		return r.typeSignature()
	case 'T':
		r.copyByte()
		name, err := r.identifier(";")
		if err != nil {
			return err
		}
		r.out.WriteString(name)
		r.copyByte() // ;
		return nil
	case 'L':
		return r.classTypeSignature()
	default:
		return r.errAt("unexpected type character")
	}
}

func (r *signatureRewriter) classTypeSignature() error {
	r.pos++ // L
	name, err := r.identifier("<;.")
	if err != nil {
		return err
	}
	mapped := r.fn(ClassDescOfInternal(name)).InternalName()
	r.out.WriteByte('L')
	r.out.WriteString(mapped)
	if r.peek() == '<' {
		if err := r.typeArguments(); err != nil {
			return err
		}
	}
	// Inner class segments. The dotted suffix forms a binary name with
	// '$' separators; the mapping is applied to the full binary name and
	// the suffix after the last '$' of the result is emitted.
	for r.peek() == '.' {
		r.pos++ // .
		inner, err := r.identifier("<;.")
		if err != nil {
			return err
		}
		name = name + "$" + inner
		mappedFull := r.fn(ClassDescOfInternal(name)).InternalName()
		suffix := mappedFull
		if i := strings.LastIndexByte(mappedFull, '$'); i >= 0 {
			suffix = mappedFull[i+1:]
		}
		r.out.WriteByte('.')
		r.out.WriteString(suffix)
		if r.peek() == '<' {
			if err := r.typeArguments(); err != nil {
				return err
			}
		}
	}
	if r.peek() != ';' {
		return r.errAt("unterminated class type")
	}
	r.copyByte() // ;
	return nil
}

func (r *signatureRewriter) typeArguments() error {
	r.copyByte() // <
	for r.peek() != '>' {
		switch r.peek() {
		case '*':
			r.copyByte()
		case '+', '-':
			r.copyByte()
			if err := r.typeSignature(); err != nil {
				return err
			}
		case 0:
			return r.errAt("unterminated type arguments")
		default:
			if err := r.typeSignature(); err != nil {
				return err
			}
		}
	}
	r.copyByte() // >
	return nil
}
