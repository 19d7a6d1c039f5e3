package classfile

// MethodModel is one method of a class. The Code attribute, when present,
// is reachable both through Attributes and through Code.
type MethodModel struct {
	Flags      AccessFlags
	Name       string
	Descriptor string
	Attributes []*Attribute
}

// FindAttribute returns the first method attribute with the given name,
// or nil.
func (m *MethodModel) FindAttribute(name string) *Attribute {
	return findAttribute(m.Attributes, name)
}

// Code returns the method's decoded Code attribute, or nil for abstract
// and native methods.
func (m *MethodModel) Code() (*CodeAttribute, error) {
	a := m.FindAttribute(AttrCode)
	if a == nil {
		return nil, nil
	}
	return AttributeAs[CodeAttribute](a)
}

// Elements streams the method body as transformable elements. The Code
// attribute is delivered as a *CodeAttribute so code transforms can
// recurse into it; everything else comes through as a plain attribute.
func (m *MethodModel) Elements(fn func(MethodElement) error) error {
	for _, a := range m.Attributes {
		if a.Name == AttrCode {
			code, err := AttributeAs[CodeAttribute](a)
			if err != nil {
				return err
			}
			if code != nil {
				if err := fn(code); err != nil {
					return err
				}
				continue
			}
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}
