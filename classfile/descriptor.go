package classfile

import (
	"fmt"
	"strings"
)

// ClassDesc is a nominal type reference in field descriptor form:
// "Ljava/lang/String;" for reference types, "[I" for arrays, "I" for
// primitives. The descriptor form makes one string type usable everywhere
// a class can appear, including array classes in the constant pool.
type ClassDesc string

// ClassDescOfInternal converts a constant pool class name (internal slash
// form, or descriptor form for array classes) to a ClassDesc.
func ClassDescOfInternal(name string) ClassDesc {
	if strings.HasPrefix(name, "[") {
		return ClassDesc(name)
	}
	return ClassDesc("L" + name + ";")
}

// InternalName converts back to the constant pool class name form.
func (d ClassDesc) InternalName() string {
	s := string(d)
	if strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";") {
		return s[1 : len(s)-1]
	}
	return s
}

func (d ClassDesc) IsArray() bool { return strings.HasPrefix(string(d), "[") }

func (d ClassDesc) IsPrimitive() bool {
	if len(d) != 1 {
		return false
	}
	switch d[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return true
	}
	return false
}

// ComponentType returns the element type of an array descriptor, or the
// descriptor itself if it is not an array.
func (d ClassDesc) ComponentType() ClassDesc {
	if d.IsArray() {
		return d[1:]
	}
	return d
}

// ArrayType wraps the descriptor in the given number of array dimensions.
func (d ClassDesc) ArrayType(dims int) ClassDesc {
	return ClassDesc(strings.Repeat("[", dims)) + d
}

// DisplayName renders the descriptor in Java source form, e.g.
// "java.lang.String" or "int[][]".
func (d ClassDesc) DisplayName() string {
	dims := 0
	s := string(d)
	for strings.HasPrefix(s, "[") {
		dims++
		s = s[1:]
	}
	var base string
	switch {
	case strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";"):
		base = strings.ReplaceAll(s[1:len(s)-1], "/", ".")
	default:
		switch s {
		case "B":
			base = "byte"
		case "C":
			base = "char"
		case "D":
			base = "double"
		case "F":
			base = "float"
		case "I":
			base = "int"
		case "J":
			base = "long"
		case "S":
			base = "short"
		case "Z":
			base = "boolean"
		case "V":
			base = "void"
		default:
			base = s
		}
	}
	return base + strings.Repeat("[]", dims)
}

// slotWidth reports how many local variable slots a value of this type
// occupies: two for long and double, one otherwise.
func (d ClassDesc) slotWidth() int {
	if d == "J" || d == "D" {
		return 2
	}
	return 1
}

// parseFieldType consumes one field descriptor starting at pos and returns
// it along with the position just past it.
func parseFieldType(s string, pos int) (ClassDesc, int, error) {
	start := pos
	for pos < len(s) && s[pos] == '[' {
		pos++
	}
	if pos >= len(s) {
		return "", 0, fmt.Errorf("%w: truncated descriptor %q", ErrMalformed, s)
	}
	switch s[pos] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return ClassDesc(s[start : pos+1]), pos + 1, nil
	case 'L':
		end := strings.IndexByte(s[pos:], ';')
		if end < 0 {
			return "", 0, fmt.Errorf("%w: unterminated class type in descriptor %q", ErrMalformed, s)
		}
		end += pos + 1
		return ClassDesc(s[start:end]), end, nil
	default:
		return "", 0, fmt.Errorf("%w: bad type character %q in descriptor %q", ErrMalformed, s[pos], s)
	}
}

// ParseMethodDescriptor splits a method descriptor such as
// "(ILjava/lang/String;)V" into its parameter types and return type.
func ParseMethodDescriptor(desc string) (params []ClassDesc, ret ClassDesc, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: method descriptor %q does not start with (", ErrMalformed, desc)
	}
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		var p ClassDesc
		p, pos, err = parseFieldType(desc, pos)
		if err != nil {
			return nil, "", err
		}
		params = append(params, p)
	}
	if pos >= len(desc) || desc[pos] != ')' {
		return nil, "", fmt.Errorf("%w: method descriptor %q missing )", ErrMalformed, desc)
	}
	pos++
	if pos < len(desc) && desc[pos] == 'V' {
		if pos+1 != len(desc) {
			return nil, "", fmt.Errorf("%w: trailing characters in method descriptor %q", ErrMalformed, desc)
		}
		return params, "V", nil
	}
	ret, pos, err = parseFieldType(desc, pos)
	if err != nil {
		return nil, "", err
	}
	if pos != len(desc) {
		return nil, "", fmt.Errorf("%w: trailing characters in method descriptor %q", ErrMalformed, desc)
	}
	return params, ret, nil
}

// argumentSlots counts the local variable slots the method's arguments
// occupy on entry, including the receiver for instance methods.
func argumentSlots(desc string, static bool) (int, error) {
	params, _, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	slots := 0
	if !static {
		slots = 1
	}
	for _, p := range params {
		slots += p.slotWidth()
	}
	return slots, nil
}
