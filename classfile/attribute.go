package classfile

import (
	"fmt"
)

// Attribute is one attribute record. Bound attributes (produced by the
// parser) keep their raw payload and decode it on first access; detached
// attributes (built programmatically) carry their symbolic form from the
// start. Either way, accessors return the symbolic decoded form and the
// writer re-encodes it against the output pool.
type Attribute struct {
	Name string

	raw   []byte
	pool  ConstantPool
	model *ClassModel

	decoded  bool
	parsed   any
	parseErr error
}

// NewAttribute builds a detached attribute from its symbolic decoded
// form. The name must match the parsed type (AttrSignature with
// *SignatureAttribute, and so on); unknown names take *UnknownAttribute.
func NewAttribute(name string, parsed any) *Attribute {
	return &Attribute{Name: name, decoded: true, parsed: parsed}
}

// IsBound reports whether the attribute still carries the raw payload it
// was parsed from.
func (a *Attribute) IsBound() bool { return a.raw != nil }

// Parsed returns the symbolic decoded form of the attribute. For bound
// attributes the first call decodes the raw payload; the result, error
// included, is memoized.
func (a *Attribute) Parsed() (any, error) {
	if !a.decoded {
		a.parsed, a.parseErr = a.decode()
		a.decoded = true
	}
	return a.parsed, a.parseErr
}

// AttributeAs decodes the attribute and asserts its symbolic type. A nil
// result with a nil error means the attribute decoded to some other type.
func AttributeAs[T any](a *Attribute) (*T, error) {
	parsed, err := a.Parsed()
	if err != nil {
		return nil, err
	}
	t, ok := parsed.(*T)
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (a *Attribute) decode() (any, error) {
	v, err := a.decodePayload()
	if err != nil {
		return nil, fmt.Errorf("decoding %s attribute: %w", a.Name, err)
	}
	return v, nil
}

func (a *Attribute) decodePayload() (any, error) {
	r := &reader{data: a.raw}
	cp := a.pool
	var parsed any
	switch a.Name {
	case AttrConstantValue:
		v, err := cp.ConstantValueAt(r.readU2(), nil)
		if err != nil {
			return nil, err
		}
		parsed = &ConstantValueAttribute{Value: v}
	case AttrCode:
		c, err := decodeCode(r, cp, a.model)
		if err != nil {
			return nil, err
		}
		parsed = c
	case AttrStackMapTable:
		f, err := decodeStackMapTable(r, cp)
		if err != nil {
			return nil, err
		}
		parsed = &StackMapTableAttribute{Frames: f}
	case AttrExceptions:
		n := int(r.readU2())
		exceptions := make([]ClassDesc, 0, n)
		for i := 0; i < n; i++ {
			c, err := cp.ClassAt(r.readU2())
			if err != nil {
				return nil, err
			}
			exceptions = append(exceptions, c)
		}
		parsed = &ExceptionsAttribute{Exceptions: exceptions}
	case AttrInnerClasses:
		n := int(r.readU2())
		classes := make([]InnerClassInfo, 0, n)
		for i := 0; i < n; i++ {
			var info InnerClassInfo
			var err error
			info.Inner, err = cp.ClassAt(r.readU2())
			if err != nil {
				return nil, err
			}
			if outer := r.readU2(); outer != 0 {
				if info.Outer, err = cp.ClassAt(outer); err != nil {
					return nil, err
				}
			}
			if name := r.readU2(); name != 0 {
				if info.Name, err = cp.Utf8(name); err != nil {
					return nil, err
				}
			}
			info.Flags = AccessFlags(r.readU2())
			classes = append(classes, info)
		}
		parsed = &InnerClassesAttribute{Classes: classes}
	case AttrEnclosingMethod:
		class, err := cp.ClassAt(r.readU2())
		if err != nil {
			return nil, err
		}
		attr := &EnclosingMethodAttribute{Class: class}
		if method := r.readU2(); method != 0 {
			if attr.MethodName, attr.MethodDescriptor, err = cp.NameAndType(method); err != nil {
				return nil, err
			}
		}
		parsed = attr
	case AttrSynthetic:
		parsed = &SyntheticAttribute{}
	case AttrSignature:
		s, err := cp.Utf8(r.readU2())
		if err != nil {
			return nil, err
		}
		parsed = &SignatureAttribute{Signature: s}
	case AttrSourceFile:
		s, err := cp.Utf8(r.readU2())
		if err != nil {
			return nil, err
		}
		parsed = &SourceFileAttribute{File: s}
	case AttrSourceDebugExtension:
		parsed = &SourceDebugExtensionAttribute{Contents: append([]byte(nil), a.raw...)}
	case AttrLineNumberTable:
		n := int(r.readU2())
		lines := make([]LineNumberInfo, 0, n)
		for i := 0; i < n; i++ {
			lines = append(lines, LineNumberInfo{StartPC: r.readU2(), Line: r.readU2()})
		}
		parsed = &LineNumberTableAttribute{Lines: lines}
	case AttrLocalVariableTable:
		n := int(r.readU2())
		vars := make([]LocalVariableInfo, 0, n)
		for i := 0; i < n; i++ {
			var v LocalVariableInfo
			var err error
			v.StartPC = r.readU2()
			v.Length = r.readU2()
			if v.Name, err = cp.Utf8(r.readU2()); err != nil {
				return nil, err
			}
			if v.Descriptor, err = cp.Utf8(r.readU2()); err != nil {
				return nil, err
			}
			v.Slot = r.readU2()
			vars = append(vars, v)
		}
		parsed = &LocalVariableTableAttribute{Variables: vars}
	case AttrLocalVariableTypeTable:
		n := int(r.readU2())
		vars := make([]LocalVariableTypeInfo, 0, n)
		for i := 0; i < n; i++ {
			var v LocalVariableTypeInfo
			var err error
			v.StartPC = r.readU2()
			v.Length = r.readU2()
			if v.Name, err = cp.Utf8(r.readU2()); err != nil {
				return nil, err
			}
			if v.Signature, err = cp.Utf8(r.readU2()); err != nil {
				return nil, err
			}
			v.Slot = r.readU2()
			vars = append(vars, v)
		}
		parsed = &LocalVariableTypeTableAttribute{Variables: vars}
	case AttrDeprecated:
		parsed = &DeprecatedAttribute{}
	case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
		annotations, err := decodeAnnotations(r, cp)
		if err != nil {
			return nil, err
		}
		if a.Name == AttrRuntimeVisibleAnnotations {
			parsed = &RuntimeVisibleAnnotationsAttribute{Annotations: annotations}
		} else {
			parsed = &RuntimeInvisibleAnnotationsAttribute{Annotations: annotations}
		}
	case AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations:
		n := int(r.readU1())
		params := make([][]Annotation, 0, n)
		for i := 0; i < n; i++ {
			annotations, err := decodeAnnotations(r, cp)
			if err != nil {
				return nil, err
			}
			params = append(params, annotations)
		}
		if a.Name == AttrRuntimeVisibleParameterAnnotations {
			parsed = &RuntimeVisibleParameterAnnotationsAttribute{Parameters: params}
		} else {
			parsed = &RuntimeInvisibleParameterAnnotationsAttribute{Parameters: params}
		}
	case AttrRuntimeVisibleTypeAnnotations, AttrRuntimeInvisibleTypeAnnotations:
		n := int(r.readU2())
		annotations := make([]TypeAnnotation, 0, n)
		for i := 0; i < n; i++ {
			ta, err := decodeTypeAnnotation(r, cp)
			if err != nil {
				return nil, err
			}
			annotations = append(annotations, ta)
		}
		if a.Name == AttrRuntimeVisibleTypeAnnotations {
			parsed = &RuntimeVisibleTypeAnnotationsAttribute{Annotations: annotations}
		} else {
			parsed = &RuntimeInvisibleTypeAnnotationsAttribute{Annotations: annotations}
		}
	case AttrAnnotationDefault:
		v, err := decodeAnnotationValue(r, cp)
		if err != nil {
			return nil, err
		}
		parsed = &AnnotationDefaultAttribute{Value: v}
	case AttrBootstrapMethods:
		n := int(r.readU2())
		methods := make([]BootstrapMethodInfo, 0, n)
		for i := 0; i < n; i++ {
			handle, err := cp.MethodHandleAt(r.readU2())
			if err != nil {
				return nil, err
			}
			argc := int(r.readU2())
			args := make([]any, 0, argc)
			for j := 0; j < argc; j++ {
				arg, err := cp.ConstantValueAt(r.readU2(), a.bootstrapResolver())
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			methods = append(methods, BootstrapMethodInfo{Handle: handle, Args: args})
		}
		parsed = &BootstrapMethodsAttribute{Methods: methods}
	case AttrMethodParameters:
		n := int(r.readU1())
		params := make([]MethodParameterInfo, 0, n)
		for i := 0; i < n; i++ {
			var p MethodParameterInfo
			if name := r.readU2(); name != 0 {
				var err error
				if p.Name, err = cp.Utf8(name); err != nil {
					return nil, err
				}
			}
			p.Flags = AccessFlags(r.readU2())
			params = append(params, p)
		}
		parsed = &MethodParametersAttribute{Parameters: params}
	case AttrModule:
		m, err := decodeModule(r, cp)
		if err != nil {
			return nil, err
		}
		parsed = m
	case AttrModulePackages:
		n := int(r.readU2())
		packages := make([]string, 0, n)
		for i := 0; i < n; i++ {
			p, err := cp.PackageName(r.readU2())
			if err != nil {
				return nil, err
			}
			packages = append(packages, p)
		}
		parsed = &ModulePackagesAttribute{Packages: packages}
	case AttrModuleMainClass:
		c, err := cp.ClassAt(r.readU2())
		if err != nil {
			return nil, err
		}
		parsed = &ModuleMainClassAttribute{MainClass: c}
	case AttrNestHost:
		c, err := cp.ClassAt(r.readU2())
		if err != nil {
			return nil, err
		}
		parsed = &NestHostAttribute{Host: c}
	case AttrNestMembers:
		n := int(r.readU2())
		members := make([]ClassDesc, 0, n)
		for i := 0; i < n; i++ {
			c, err := cp.ClassAt(r.readU2())
			if err != nil {
				return nil, err
			}
			members = append(members, c)
		}
		parsed = &NestMembersAttribute{Members: members}
	case AttrRecord:
		n := int(r.readU2())
		components := make([]RecordComponent, 0, n)
		for i := 0; i < n; i++ {
			var c RecordComponent
			var err error
			if c.Name, err = cp.Utf8(r.readU2()); err != nil {
				return nil, err
			}
			if c.Descriptor, err = cp.Utf8(r.readU2()); err != nil {
				return nil, err
			}
			if c.Attributes, err = decodeAttributeList(r, cp, a.model); err != nil {
				return nil, err
			}
			components = append(components, c)
		}
		parsed = &RecordAttribute{Components: components}
	case AttrPermittedSubclasses:
		n := int(r.readU2())
		subclasses := make([]ClassDesc, 0, n)
		for i := 0; i < n; i++ {
			c, err := cp.ClassAt(r.readU2())
			if err != nil {
				return nil, err
			}
			subclasses = append(subclasses, c)
		}
		parsed = &PermittedSubclassesAttribute{Subclasses: subclasses}
	default:
		parsed = &UnknownAttribute{Contents: append([]byte(nil), a.raw...)}
	}
	if r.err != nil {
		return nil, r.err
	}
	// SourceDebugExtension and unknown payloads are opaque; everything
	// else must consume the record exactly.
	if a.Name != AttrSourceDebugExtension && knownAttributes[a.Name] && r.pos != len(r.data) {
		return nil, fmt.Errorf("%w: %d unconsumed payload bytes", ErrMalformed, len(r.data)-r.pos)
	}
	return parsed, nil
}

func (a *Attribute) bootstrapResolver() bootstrapResolver {
	if a.model == nil {
		return nil
	}
	return a.model.bootstrapMethod
}

type ConstantValueAttribute struct {
	Value any
}

type ExceptionsAttribute struct {
	Exceptions []ClassDesc
}

type InnerClassInfo struct {
	Inner ClassDesc
	Outer ClassDesc // zero when absent
	Name  string    // empty for anonymous classes
	Flags AccessFlags
}

type InnerClassesAttribute struct {
	Classes []InnerClassInfo
}

type EnclosingMethodAttribute struct {
	Class            ClassDesc
	MethodName       string // empty when the class is not enclosed in a method
	MethodDescriptor string
}

type SyntheticAttribute struct{}

type SignatureAttribute struct {
	Signature string
}

type SourceFileAttribute struct {
	File string
}

type SourceDebugExtensionAttribute struct {
	Contents []byte
}

type LineNumberInfo struct {
	StartPC uint16
	Line    uint16
}

type LineNumberTableAttribute struct {
	Lines []LineNumberInfo
}

type LocalVariableInfo struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Slot       uint16
}

type LocalVariableTableAttribute struct {
	Variables []LocalVariableInfo
}

type LocalVariableTypeInfo struct {
	StartPC   uint16
	Length    uint16
	Name      string
	Signature string
	Slot      uint16
}

type LocalVariableTypeTableAttribute struct {
	Variables []LocalVariableTypeInfo
}

type DeprecatedAttribute struct{}

type RuntimeVisibleAnnotationsAttribute struct {
	Annotations []Annotation
}

type RuntimeInvisibleAnnotationsAttribute struct {
	Annotations []Annotation
}

type RuntimeVisibleParameterAnnotationsAttribute struct {
	Parameters [][]Annotation
}

type RuntimeInvisibleParameterAnnotationsAttribute struct {
	Parameters [][]Annotation
}

type RuntimeVisibleTypeAnnotationsAttribute struct {
	Annotations []TypeAnnotation
}

type RuntimeInvisibleTypeAnnotationsAttribute struct {
	Annotations []TypeAnnotation
}

type AnnotationDefaultAttribute struct {
	Value AnnotationValue
}

type BootstrapMethodInfo struct {
	Handle MethodHandle
	Args   []any
}

type BootstrapMethodsAttribute struct {
	Methods []BootstrapMethodInfo
}

type MethodParameterInfo struct {
	Name  string // empty when unnamed
	Flags AccessFlags
}

type MethodParametersAttribute struct {
	Parameters []MethodParameterInfo
}

type ModuleRequireInfo struct {
	Module  string
	Flags   AccessFlags
	Version string
}

type ModuleExportInfo struct {
	Package string
	Flags   AccessFlags
	To      []string
}

type ModuleOpenInfo struct {
	Package string
	Flags   AccessFlags
	To      []string
}

type ModuleProvideInfo struct {
	Service ClassDesc
	With    []ClassDesc
}

type ModuleAttribute struct {
	Name     string
	Flags    AccessFlags
	Version  string
	Requires []ModuleRequireInfo
	Exports  []ModuleExportInfo
	Opens    []ModuleOpenInfo
	Uses     []ClassDesc
	Provides []ModuleProvideInfo
}

type ModulePackagesAttribute struct {
	Packages []string
}

type ModuleMainClassAttribute struct {
	MainClass ClassDesc
}

type NestHostAttribute struct {
	Host ClassDesc
}

type NestMembersAttribute struct {
	Members []ClassDesc
}

type RecordComponent struct {
	Name       string
	Descriptor string
	Attributes []*Attribute
}

type RecordAttribute struct {
	Components []RecordComponent
}

type PermittedSubclassesAttribute struct {
	Subclasses []ClassDesc
}

// UnknownAttribute preserves the payload of attributes this package does
// not model, so they survive a parse/write round trip byte for byte.
type UnknownAttribute struct {
	Contents []byte
}

type StackMapTableAttribute struct {
	Frames []StackMapFrame
}

// Annotation is one annotation with its element-value pairs in
// declaration order.
type Annotation struct {
	Type     ClassDesc
	Elements []AnnotationElement
}

type AnnotationElement struct {
	Name  string
	Value AnnotationValue
}

// AnnotationValue is one element value, discriminated by Tag: primitive
// tags and 's' use Const, 'e' uses EnumType/EnumName, 'c' uses Class,
// '@' uses Nested, '[' uses Array.
type AnnotationValue struct {
	Tag      byte
	Const    any
	EnumType ClassDesc
	EnumName string
	Class    ClassDesc
	Nested   *Annotation
	Array    []AnnotationValue
}

// TypeAnnotation is one entry of a type annotation table. TargetInfo and
// TypePath stay raw: neither contains constant pool references, so they
// round-trip and remap untouched.
type TypeAnnotation struct {
	TargetType uint8
	TargetInfo []byte
	TypePath   []byte // pairs of (kind, argument index)
	Annotation Annotation
}

func decodeAnnotations(r *reader, cp ConstantPool) ([]Annotation, error) {
	n := int(r.readU2())
	annotations := make([]Annotation, 0, n)
	for i := 0; i < n; i++ {
		a, err := decodeAnnotation(r, cp)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, a)
	}
	return annotations, nil
}

func decodeAnnotation(r *reader, cp ConstantPool) (Annotation, error) {
	typeDesc, err := cp.Utf8(r.readU2())
	if err != nil {
		return Annotation{}, err
	}
	n := int(r.readU2())
	elements := make([]AnnotationElement, 0, n)
	for i := 0; i < n; i++ {
		name, err := cp.Utf8(r.readU2())
		if err != nil {
			return Annotation{}, err
		}
		value, err := decodeAnnotationValue(r, cp)
		if err != nil {
			return Annotation{}, err
		}
		elements = append(elements, AnnotationElement{Name: name, Value: value})
	}
	return Annotation{Type: ClassDesc(typeDesc), Elements: elements}, nil
}

func decodeAnnotationValue(r *reader, cp ConstantPool) (AnnotationValue, error) {
	tag := r.readU1()
	v := AnnotationValue{Tag: tag}
	switch tag {
	case 'B', 'C', 'I', 'S', 'Z':
		e, err := cp.Get(r.readU2())
		if err != nil {
			return v, err
		}
		c, ok := e.(*ConstantIntegerInfo)
		if !ok {
			return v, fmt.Errorf("%w: element value tag %q needs an Integer entry, got %T", ErrMalformed, tag, e)
		}
		v.Const = c.Value
	case 'D':
		e, err := cp.Get(r.readU2())
		if err != nil {
			return v, err
		}
		c, ok := e.(*ConstantDoubleInfo)
		if !ok {
			return v, fmt.Errorf("%w: element value tag 'D' needs a Double entry, got %T", ErrMalformed, e)
		}
		v.Const = c.Value
	case 'F':
		e, err := cp.Get(r.readU2())
		if err != nil {
			return v, err
		}
		c, ok := e.(*ConstantFloatInfo)
		if !ok {
			return v, fmt.Errorf("%w: element value tag 'F' needs a Float entry, got %T", ErrMalformed, e)
		}
		v.Const = c.Value
	case 'J':
		e, err := cp.Get(r.readU2())
		if err != nil {
			return v, err
		}
		c, ok := e.(*ConstantLongInfo)
		if !ok {
			return v, fmt.Errorf("%w: element value tag 'J' needs a Long entry, got %T", ErrMalformed, e)
		}
		v.Const = c.Value
	case 's':
		s, err := cp.Utf8(r.readU2())
		if err != nil {
			return v, err
		}
		v.Const = s
	case 'e':
		enumType, err := cp.Utf8(r.readU2())
		if err != nil {
			return v, err
		}
		enumName, err := cp.Utf8(r.readU2())
		if err != nil {
			return v, err
		}
		v.EnumType = ClassDesc(enumType)
		v.EnumName = enumName
	case 'c':
		desc, err := cp.Utf8(r.readU2())
		if err != nil {
			return v, err
		}
		v.Class = ClassDesc(desc)
	case '@':
		nested, err := decodeAnnotation(r, cp)
		if err != nil {
			return v, err
		}
		v.Nested = &nested
	case '[':
		n := int(r.readU2())
		v.Array = make([]AnnotationValue, 0, n)
		for i := 0; i < n; i++ {
			el, err := decodeAnnotationValue(r, cp)
			if err != nil {
				return v, err
			}
			v.Array = append(v.Array, el)
		}
	default:
		return v, fmt.Errorf("%w: bad element value tag %#x", ErrMalformed, tag)
	}
	return v, r.err
}

// targetInfoSize returns the byte length of a target_info for the given
// target type. Local variable targets are variable length; for those the
// length depends on the table count, which the caller reads itself.
func targetInfoSize(targetType uint8) (int, bool) {
	switch {
	case targetType <= 0x01:
		return 1, true
	case targetType == 0x10:
		return 2, true
	case targetType >= 0x11 && targetType <= 0x12:
		return 2, true
	case targetType >= 0x13 && targetType <= 0x15:
		return 0, true
	case targetType == 0x16:
		return 1, true
	case targetType == 0x17:
		return 2, true
	case targetType >= 0x40 && targetType <= 0x41:
		return 0, false // 2 + 6*table_length
	case targetType == 0x42:
		return 2, true
	case targetType >= 0x43 && targetType <= 0x46:
		return 2, true
	case targetType >= 0x47 && targetType <= 0x4B:
		return 3, true
	default:
		return 0, true
	}
}

func decodeTypeAnnotation(r *reader, cp ConstantPool) (TypeAnnotation, error) {
	var ta TypeAnnotation
	ta.TargetType = r.readU1()
	size, fixed := targetInfoSize(ta.TargetType)
	if fixed {
		ta.TargetInfo = r.readBytes(size)
	} else {
		tableLength := r.readU2()
		body := r.readBytes(6 * int(tableLength))
		info := make([]byte, 0, 2+len(body))
		info = append(info, byte(tableLength>>8), byte(tableLength))
		ta.TargetInfo = append(info, body...)
	}
	pathLength := int(r.readU1())
	ta.TypePath = r.readBytes(2 * pathLength)
	if r.err != nil {
		return ta, r.err
	}
	a, err := decodeAnnotation(r, cp)
	if err != nil {
		return ta, err
	}
	ta.Annotation = a
	return ta, nil
}

func decodeModule(r *reader, cp ConstantPool) (*ModuleAttribute, error) {
	m := &ModuleAttribute{}
	var err error
	if m.Name, err = cp.ModuleName(r.readU2()); err != nil {
		return nil, err
	}
	m.Flags = AccessFlags(r.readU2())
	if version := r.readU2(); version != 0 {
		if m.Version, err = cp.Utf8(version); err != nil {
			return nil, err
		}
	}
	for i, n := 0, int(r.readU2()); i < n; i++ {
		var req ModuleRequireInfo
		if req.Module, err = cp.ModuleName(r.readU2()); err != nil {
			return nil, err
		}
		req.Flags = AccessFlags(r.readU2())
		if version := r.readU2(); version != 0 {
			if req.Version, err = cp.Utf8(version); err != nil {
				return nil, err
			}
		}
		m.Requires = append(m.Requires, req)
	}
	for i, n := 0, int(r.readU2()); i < n; i++ {
		var exp ModuleExportInfo
		if exp.Package, err = cp.PackageName(r.readU2()); err != nil {
			return nil, err
		}
		exp.Flags = AccessFlags(r.readU2())
		for j, tc := 0, int(r.readU2()); j < tc; j++ {
			to, err := cp.ModuleName(r.readU2())
			if err != nil {
				return nil, err
			}
			exp.To = append(exp.To, to)
		}
		m.Exports = append(m.Exports, exp)
	}
	for i, n := 0, int(r.readU2()); i < n; i++ {
		var op ModuleOpenInfo
		if op.Package, err = cp.PackageName(r.readU2()); err != nil {
			return nil, err
		}
		op.Flags = AccessFlags(r.readU2())
		for j, tc := 0, int(r.readU2()); j < tc; j++ {
			to, err := cp.ModuleName(r.readU2())
			if err != nil {
				return nil, err
			}
			op.To = append(op.To, to)
		}
		m.Opens = append(m.Opens, op)
	}
	for i, n := 0, int(r.readU2()); i < n; i++ {
		use, err := cp.ClassAt(r.readU2())
		if err != nil {
			return nil, err
		}
		m.Uses = append(m.Uses, use)
	}
	for i, n := 0, int(r.readU2()); i < n; i++ {
		var prov ModuleProvideInfo
		if prov.Service, err = cp.ClassAt(r.readU2()); err != nil {
			return nil, err
		}
		for j, wc := 0, int(r.readU2()); j < wc; j++ {
			with, err := cp.ClassAt(r.readU2())
			if err != nil {
				return nil, err
			}
			prov.With = append(prov.With, with)
		}
		m.Provides = append(m.Provides, prov)
	}
	return m, r.err
}

// decodeAttributeList reads an attribute table: count followed by records.
func decodeAttributeList(r *reader, cp ConstantPool, model *ClassModel) ([]*Attribute, error) {
	n := int(r.readU2())
	attributes := make([]*Attribute, 0, n)
	for i := 0; i < n; i++ {
		nameIndex := r.readU2()
		length := int(r.readU4())
		payload := r.readBytes(length)
		if r.err != nil {
			return nil, r.err
		}
		name, err := cp.Utf8(nameIndex)
		if err != nil {
			return nil, err
		}
		attributes = append(attributes, &Attribute{
			Name:  name,
			raw:   payload,
			pool:  cp,
			model: model,
		})
	}
	return attributes, nil
}
