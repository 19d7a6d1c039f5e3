package classfile

// FieldModel is one field of a class: flags, name, descriptor, and
// attributes. Parsed fields resolve their name and descriptor eagerly;
// built fields carry them directly.
type FieldModel struct {
	Flags      AccessFlags
	Name       string
	Descriptor string
	Attributes []*Attribute
}

// Type returns the field's type as a ClassDesc.
func (f *FieldModel) Type() ClassDesc { return ClassDesc(f.Descriptor) }

// FindAttribute returns the first field attribute with the given name,
// or nil.
func (f *FieldModel) FindAttribute(name string) *Attribute {
	return findAttribute(f.Attributes, name)
}

// Elements streams the field body as transformable elements.
func (f *FieldModel) Elements(fn func(FieldElement) error) error {
	for _, a := range f.Attributes {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}
