package classfile

import "fmt"

// ClassModel is a parsed class file. The header (version, flags, class
// hierarchy, member descriptors) is resolved eagerly at parse time;
// attribute payloads stay raw until first access.
type ClassModel struct {
	Minor uint16
	Major uint16

	Flags      AccessFlags
	ThisClass  ClassDesc
	Superclass ClassDesc // zero for java/lang/Object and module-info
	Interfaces []ClassDesc

	Fields     []*FieldModel
	Methods    []*MethodModel
	Attributes []*Attribute

	pool        ConstantPool
	bsmDecoding bool
}

// ConstantPool exposes the class's constant pool for inspection.
func (m *ClassModel) ConstantPool() ConstantPool { return m.pool }

// FindAttribute returns the first class-level attribute with the given
// name, or nil.
func (m *ClassModel) FindAttribute(name string) *Attribute {
	return findAttribute(m.Attributes, name)
}

func findAttribute(attributes []*Attribute, name string) *Attribute {
	for _, a := range attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Elements streams the class body as transformable elements: superclass,
// interface list, fields, methods, then class-level attributes.
func (m *ClassModel) Elements(fn func(ClassElement) error) error {
	if m.Superclass != "" {
		if err := fn(Superclass{Class: m.Superclass}); err != nil {
			return err
		}
	}
	if len(m.Interfaces) > 0 {
		if err := fn(Interfaces{Classes: m.Interfaces}); err != nil {
			return err
		}
	}
	for _, f := range m.Fields {
		if err := fn(f); err != nil {
			return err
		}
	}
	for _, method := range m.Methods {
		if err := fn(method); err != nil {
			return err
		}
	}
	for _, a := range m.Attributes {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapMethod resolves an index into this class's BootstrapMethods
// attribute. Decoding the attribute can itself need bootstrap resolution
// when an argument is a dynamic constant; a self-referential table would
// recurse forever, so re-entry fails instead.
func (m *ClassModel) bootstrapMethod(index uint16) (MethodHandle, []any, error) {
	a := m.FindAttribute(AttrBootstrapMethods)
	if a == nil {
		return MethodHandle{}, nil, fmt.Errorf("%w: bootstrap method %d referenced but class has no BootstrapMethods attribute", ErrMalformed, index)
	}
	if m.bsmDecoding {
		return MethodHandle{}, nil, fmt.Errorf("%w: recursive bootstrap method reference", ErrMalformed)
	}
	m.bsmDecoding = true
	bsm, err := AttributeAs[BootstrapMethodsAttribute](a)
	m.bsmDecoding = false
	if err != nil {
		return MethodHandle{}, nil, err
	}
	if int(index) >= len(bsm.Methods) {
		return MethodHandle{}, nil, fmt.Errorf("%w: bootstrap method index %d outside table of %d", ErrMalformed, index, len(bsm.Methods))
	}
	entry := bsm.Methods[index]
	return entry.Handle, entry.Args, nil
}
