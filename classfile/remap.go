package classfile

import (
	"fmt"
	"strings"
)

// Remapper rewrites every class reference in a class through a mapping
// function: the hierarchy, member descriptors, signatures, bytecode
// operands, annotations, and the nested constants reachable from dynamic
// call sites.
type Remapper struct {
	fn func(ClassDesc) ClassDesc
}

// NewRemapper wraps a mapping function. The function sees plain reference
// types only; arrays and primitives are handled here.
func NewRemapper(fn func(ClassDesc) ClassDesc) *Remapper {
	return &Remapper{fn: fn}
}

// NewTableRemapper builds a remapper from a fixed mapping table. Types
// absent from the table stay as they are.
func NewTableRemapper(mapping map[ClassDesc]ClassDesc) *Remapper {
	return NewRemapper(func(d ClassDesc) ClassDesc {
		if to, ok := mapping[d]; ok {
			return to
		}
		return d
	})
}

// Map rewrites one type. Arrays map through their component type;
// primitives never change.
func (r *Remapper) Map(d ClassDesc) ClassDesc {
	if d.IsArray() {
		dims := 0
		for d.IsArray() {
			dims++
			d = d.ComponentType()
		}
		return r.Map(d).ArrayType(dims)
	}
	if d.IsPrimitive() || d == "" {
		return d
	}
	return r.fn(d)
}

// MapDescriptor rewrites a field or method descriptor.
func (r *Remapper) MapDescriptor(desc string) (string, error) {
	if !strings.HasPrefix(desc, "(") {
		return string(r.Map(ClassDesc(desc))), nil
	}
	params, ret, err := ParseMethodDescriptor(desc)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(string(r.Map(p)))
	}
	sb.WriteByte(')')
	sb.WriteString(string(r.Map(ret)))
	return sb.String(), nil
}

// MapSignature rewrites a generic signature.
func (r *Remapper) MapSignature(sig string) (string, error) {
	return remapSignature(sig, r.Map)
}

func (r *Remapper) mapMemberRef(ref MemberRef) (MemberRef, error) {
	desc, err := r.MapDescriptor(ref.Descriptor)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Owner: r.Map(ref.Owner), Name: ref.Name, Descriptor: desc}, nil
}

func (r *Remapper) mapMethodHandle(h MethodHandle) (MethodHandle, error) {
	desc, err := r.MapDescriptor(h.Descriptor)
	if err != nil {
		return MethodHandle{}, err
	}
	h.Owner = r.Map(h.Owner)
	h.Descriptor = desc
	return h, nil
}

func (r *Remapper) mapDynamic(d DynamicConstant) (DynamicConstant, error) {
	handle, err := r.mapMethodHandle(d.Bootstrap)
	if err != nil {
		return DynamicConstant{}, err
	}
	args := make([]any, len(d.BootstrapArgs))
	for i, arg := range d.BootstrapArgs {
		if args[i], err = r.mapConstant(arg); err != nil {
			return DynamicConstant{}, err
		}
	}
	desc, err := r.MapDescriptor(d.Descriptor)
	if err != nil {
		return DynamicConstant{}, err
	}
	return DynamicConstant{Bootstrap: handle, BootstrapArgs: args, Name: d.Name, Descriptor: desc}, nil
}

// mapConstant rewrites a loadable constant value. Numbers and strings
// pass through; type-bearing constants recurse.
func (r *Remapper) mapConstant(v any) (any, error) {
	switch c := v.(type) {
	case ClassDesc:
		return r.Map(c), nil
	case MethodTypeDesc:
		desc, err := r.MapDescriptor(string(c))
		if err != nil {
			return nil, err
		}
		return MethodTypeDesc(desc), nil
	case MethodHandle:
		return r.mapMethodHandle(c)
	case DynamicConstant:
		return r.mapDynamic(c)
	default:
		return v, nil
	}
}

func (r *Remapper) mapClasses(classes []ClassDesc) []ClassDesc {
	out := make([]ClassDesc, len(classes))
	for i, c := range classes {
		out[i] = r.Map(c)
	}
	return out
}

func (r *Remapper) mapAnnotation(a Annotation) (Annotation, error) {
	out := Annotation{Type: r.Map(a.Type)}
	for _, el := range a.Elements {
		v, err := r.mapAnnotationValue(el.Value)
		if err != nil {
			return Annotation{}, err
		}
		out.Elements = append(out.Elements, AnnotationElement{Name: el.Name, Value: v})
	}
	return out, nil
}

func (r *Remapper) mapAnnotationValue(v AnnotationValue) (AnnotationValue, error) {
	switch v.Tag {
	case 'e':
		v.EnumType = r.Map(v.EnumType)
	case 'c':
		v.Class = r.Map(v.Class)
	case '@':
		nested, err := r.mapAnnotation(*v.Nested)
		if err != nil {
			return v, err
		}
		v.Nested = &nested
	case '[':
		out := make([]AnnotationValue, len(v.Array))
		for i, el := range v.Array {
			var err error
			if out[i], err = r.mapAnnotationValue(el); err != nil {
				return v, err
			}
		}
		v.Array = out
	}
	return v, nil
}

func (r *Remapper) mapAnnotations(annotations []Annotation) ([]Annotation, error) {
	out := make([]Annotation, len(annotations))
	for i, a := range annotations {
		var err error
		if out[i], err = r.mapAnnotation(a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Remapper) mapParameterAnnotations(parameters [][]Annotation) ([][]Annotation, error) {
	out := make([][]Annotation, len(parameters))
	for i, annotations := range parameters {
		var err error
		if out[i], err = r.mapAnnotations(annotations); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Remapper) mapTypeAnnotations(annotations []TypeAnnotation) ([]TypeAnnotation, error) {
	out := make([]TypeAnnotation, len(annotations))
	for i, ta := range annotations {
		a, err := r.mapAnnotation(ta.Annotation)
		if err != nil {
			return nil, err
		}
		ta.Annotation = a
		out[i] = ta
	}
	return out, nil
}

// mapAttribute rewrites one attribute into a detached attribute with the
// same name. Attributes that carry no class references return themselves.
func (r *Remapper) mapAttribute(a *Attribute) (*Attribute, error) {
	parsed, err := a.Parsed()
	if err != nil {
		return nil, err
	}
	switch v := parsed.(type) {
	case *ExceptionsAttribute:
		return NewAttribute(a.Name, &ExceptionsAttribute{Exceptions: r.mapClasses(v.Exceptions)}), nil
	case *InnerClassesAttribute:
		classes := make([]InnerClassInfo, len(v.Classes))
		for i, info := range v.Classes {
			info.Inner = r.Map(info.Inner)
			info.Outer = r.Map(info.Outer)
			classes[i] = info
		}
		return NewAttribute(a.Name, &InnerClassesAttribute{Classes: classes}), nil
	case *EnclosingMethodAttribute:
		out := &EnclosingMethodAttribute{Class: r.Map(v.Class), MethodName: v.MethodName}
		if v.MethodName != "" {
			if out.MethodDescriptor, err = r.MapDescriptor(v.MethodDescriptor); err != nil {
				return nil, err
			}
		}
		return NewAttribute(a.Name, out), nil
	case *SignatureAttribute:
		sig, err := r.MapSignature(v.Signature)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &SignatureAttribute{Signature: sig}), nil
	case *LocalVariableTableAttribute:
		vars := make([]LocalVariableInfo, len(v.Variables))
		for i, lv := range v.Variables {
			if lv.Descriptor, err = r.MapDescriptor(lv.Descriptor); err != nil {
				return nil, err
			}
			vars[i] = lv
		}
		return NewAttribute(a.Name, &LocalVariableTableAttribute{Variables: vars}), nil
	case *LocalVariableTypeTableAttribute:
		vars := make([]LocalVariableTypeInfo, len(v.Variables))
		for i, lv := range v.Variables {
			if lv.Signature, err = r.MapSignature(lv.Signature); err != nil {
				return nil, err
			}
			vars[i] = lv
		}
		return NewAttribute(a.Name, &LocalVariableTypeTableAttribute{Variables: vars}), nil
	case *StackMapTableAttribute:
		frames := make([]StackMapFrame, len(v.Frames))
		for i, f := range v.Frames {
			f.Locals = r.mapVerificationTypes(f.Locals)
			f.Stack = r.mapVerificationTypes(f.Stack)
			frames[i] = f
		}
		return NewAttribute(a.Name, &StackMapTableAttribute{Frames: frames}), nil
	case *RuntimeVisibleAnnotationsAttribute:
		annotations, err := r.mapAnnotations(v.Annotations)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &RuntimeVisibleAnnotationsAttribute{Annotations: annotations}), nil
	case *RuntimeInvisibleAnnotationsAttribute:
		annotations, err := r.mapAnnotations(v.Annotations)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &RuntimeInvisibleAnnotationsAttribute{Annotations: annotations}), nil
	case *RuntimeVisibleParameterAnnotationsAttribute:
		params, err := r.mapParameterAnnotations(v.Parameters)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &RuntimeVisibleParameterAnnotationsAttribute{Parameters: params}), nil
	case *RuntimeInvisibleParameterAnnotationsAttribute:
		params, err := r.mapParameterAnnotations(v.Parameters)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &RuntimeInvisibleParameterAnnotationsAttribute{Parameters: params}), nil
	case *RuntimeVisibleTypeAnnotationsAttribute:
		annotations, err := r.mapTypeAnnotations(v.Annotations)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &RuntimeVisibleTypeAnnotationsAttribute{Annotations: annotations}), nil
	case *RuntimeInvisibleTypeAnnotationsAttribute:
		annotations, err := r.mapTypeAnnotations(v.Annotations)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &RuntimeInvisibleTypeAnnotationsAttribute{Annotations: annotations}), nil
	case *AnnotationDefaultAttribute:
		value, err := r.mapAnnotationValue(v.Value)
		if err != nil {
			return nil, err
		}
		return NewAttribute(a.Name, &AnnotationDefaultAttribute{Value: value}), nil
	case *NestHostAttribute:
		return NewAttribute(a.Name, &NestHostAttribute{Host: r.Map(v.Host)}), nil
	case *NestMembersAttribute:
		return NewAttribute(a.Name, &NestMembersAttribute{Members: r.mapClasses(v.Members)}), nil
	case *PermittedSubclassesAttribute:
		return NewAttribute(a.Name, &PermittedSubclassesAttribute{Subclasses: r.mapClasses(v.Subclasses)}), nil
	case *ModuleMainClassAttribute:
		return NewAttribute(a.Name, &ModuleMainClassAttribute{MainClass: r.Map(v.MainClass)}), nil
	case *ModuleAttribute:
		out := *v
		out.Uses = r.mapClasses(v.Uses)
		out.Provides = make([]ModuleProvideInfo, len(v.Provides))
		for i, prov := range v.Provides {
			out.Provides[i] = ModuleProvideInfo{Service: r.Map(prov.Service), With: r.mapClasses(prov.With)}
		}
		return NewAttribute(a.Name, &out), nil
	case *RecordAttribute:
		components := make([]RecordComponent, len(v.Components))
		for i, c := range v.Components {
			if c.Descriptor, err = r.MapDescriptor(c.Descriptor); err != nil {
				return nil, err
			}
			attrs := make([]*Attribute, len(c.Attributes))
			for j, ca := range c.Attributes {
				if attrs[j], err = r.mapAttribute(ca); err != nil {
					return nil, err
				}
			}
			c.Attributes = attrs
			components[i] = c
		}
		return NewAttribute(a.Name, &RecordAttribute{Components: components}), nil
	default:
		return a, nil
	}
}

func (r *Remapper) mapVerificationTypes(types []VerificationType) []VerificationType {
	out := make([]VerificationType, len(types))
	for i, v := range types {
		if v.Tag == VTObject {
			v.ClassName = r.Map(v.ClassName)
		}
		out[i] = v
	}
	return out
}

// CodeTransform rewrites every type-bearing instruction operand and
// exception handler.
func (r *Remapper) CodeTransform() CodeTransform {
	return func(b *CodeBuilder, el CodeElement) {
		switch e := el.(type) {
		case Instruction:
			r.remapInstruction(b, e)
		case ExceptionHandler:
			e.CatchType = r.Map(e.CatchType)
			b.With(e)
		case *Attribute:
			mapped, err := r.mapAttribute(e)
			if err != nil {
				b.fail(err)
				return
			}
			b.With(mapped)
		default:
			b.With(el)
		}
	}
}

func (r *Remapper) remapInstruction(b *CodeBuilder, in Instruction) {
	switch in.Opcode {
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		ref, err := in.FieldRef()
		if err == nil {
			ref, err = r.mapMemberRef(ref)
		}
		if err != nil {
			b.fail(err)
			return
		}
		b.FieldInstruction(in.Opcode, ref)
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		ref, iface, err := in.MethodRef()
		if err == nil {
			ref, err = r.mapMemberRef(ref)
		}
		if err != nil {
			b.fail(err)
			return
		}
		if in.Opcode == OpInvokeinterface {
			count := uint8(0)
			if len(in.Operands) >= 3 {
				count = in.Operands[2]
			}
			b.record(codeOp{kind: opMethod, op: in.Opcode, ref: ref, iface: true, count: count}, in)
		} else {
			b.InvokeInstruction(in.Opcode, ref, iface)
		}
	case OpInvokedynamic:
		site, err := in.InvokeDynamic()
		if err == nil {
			site, err = r.mapDynamic(site)
		}
		if err != nil {
			b.fail(err)
			return
		}
		b.InvokeDynamicInstruction(site)
	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		c, err := in.ClassOperand()
		if err != nil {
			b.fail(err)
			return
		}
		b.TypeInstruction(in.Opcode, r.Map(c))
	case OpMultianewarray:
		c, err := in.ClassOperand()
		if err != nil {
			b.fail(err)
			return
		}
		dims := uint8(0)
		if len(in.Operands) >= 3 {
			dims = in.Operands[2]
		}
		b.MultianewarrayInstruction(r.Map(c), dims)
	case OpLdc, OpLdcW, OpLdc2W:
		v, err := in.Constant()
		if err == nil {
			v, err = r.mapConstant(v)
		}
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opConst, op: in.Opcode, konst: v}, in)
	default:
		b.With(in)
	}
}

// MethodTransform rewrites method attributes; code recurses through the
// code transform.
func (r *Remapper) MethodTransform() MethodTransform {
	codeT := r.CodeTransform()
	return func(b *MethodBuilder, el MethodElement) {
		switch e := el.(type) {
		case *CodeAttribute:
			TransformingCode(codeT)(b, el)
		case *Attribute:
			mapped, err := r.mapAttribute(e)
			if err != nil {
				b.err = err
				return
			}
			b.With(mapped)
		default:
			b.With(el)
		}
	}
}

// FieldTransform rewrites field attributes.
func (r *Remapper) FieldTransform() FieldTransform {
	return func(b *FieldBuilder, el FieldElement) {
		if a, ok := el.(*Attribute); ok {
			mapped, err := r.mapAttribute(a)
			if err != nil {
				b.err = err
				return
			}
			b.With(mapped)
			return
		}
		b.With(el)
	}
}

// ClassTransform rewrites the whole class body. The class's own name is
// the caller's business: TransformClass seeds it from the input, so remap
// it through RemapClass which also renames this_class.
func (r *Remapper) ClassTransform() ClassTransform {
	fieldT := r.FieldTransform()
	methodT := r.MethodTransform()
	return func(b *ClassBuilder, el ClassElement) {
		switch e := el.(type) {
		case Superclass:
			b.With(Superclass{Class: r.Map(e.Class)})
		case Interfaces:
			b.With(Interfaces{Classes: r.mapClasses(e.Classes)})
		case *FieldModel:
			desc, err := r.MapDescriptor(e.Descriptor)
			if err != nil {
				b.fail(err)
				return
			}
			b.WithField(e.Name, ClassDesc(desc), e.Flags, func(fb *FieldBuilder) {
				if err := e.Elements(func(fe FieldElement) error {
					fieldT(fb, fe)
					return fb.err
				}); err != nil && fb.err == nil {
					fb.err = err
				}
			})
		case *MethodModel:
			desc, err := r.MapDescriptor(e.Descriptor)
			if err != nil {
				b.fail(err)
				return
			}
			b.WithMethod(e.Name, desc, e.Flags, func(mb *MethodBuilder) {
				if err := e.Elements(func(me MethodElement) error {
					methodT(mb, me)
					return mb.err
				}); err != nil && mb.err == nil {
					mb.err = err
				}
			})
		case *Attribute:
			mapped, err := r.mapAttribute(e)
			if err != nil {
				b.fail(err)
				return
			}
			b.With(mapped)
		default:
			b.With(el)
		}
	}
}

// RemapClass rewrites every class reference in a parsed class, including
// its own name, and serializes the result.
func RemapClass(m *ClassModel, r *Remapper) ([]byte, error) {
	b := &ClassBuilder{
		minor:     m.Minor,
		major:     m.Major,
		flags:     m.Flags,
		thisClass: r.Map(m.ThisClass),
	}
	t := r.ClassTransform()
	if err := m.Elements(func(el ClassElement) error {
		t(b, el)
		return b.err
	}); err != nil && b.err == nil {
		b.err = err
	}
	bytes, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("remapping %s: %w", m.ThisClass.DisplayName(), err)
	}
	return bytes, nil
}
