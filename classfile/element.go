package classfile

// ClassElement is one piece of a class body as seen by transforms:
// superclass, interface list, field, method, or class-level attribute.
type ClassElement interface {
	classElement()
}

// FieldElement is one piece of a field body: currently its attributes.
type FieldElement interface {
	fieldElement()
}

// MethodElement is one piece of a method body: its Code attribute or any
// other method-level attribute.
type MethodElement interface {
	methodElement()
}

// CodeElement is one piece of a Code attribute body: an instruction, an
// exception handler, or a code-level attribute.
type CodeElement interface {
	codeElement()
}

// Superclass carries the direct superclass reference.
type Superclass struct {
	Class ClassDesc
}

func (Superclass) classElement() {}

// Interfaces carries the implemented interface list as a single element,
// preserving declaration order.
type Interfaces struct {
	Classes []ClassDesc
}

func (Interfaces) classElement() {}

// ExceptionHandler is one entry of a Code attribute's exception table.
// A zero CatchType catches everything (a finally handler).
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType ClassDesc
}

func (ExceptionHandler) codeElement() {}

func (*FieldModel) classElement()  {}
func (*MethodModel) classElement() {}

func (*Attribute) classElement()  {}
func (*Attribute) fieldElement()  {}
func (*Attribute) methodElement() {}
func (*Attribute) codeElement()   {}

func (*CodeAttribute) methodElement() {}

func (Instruction) codeElement() {}
