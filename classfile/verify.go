package classfile

import (
	"fmt"
	"strings"
)

// Verify runs structural checks over a parsed class and returns every
// problem found. It does not stop at the first: each diagnostic stands on
// its own so callers can report them all. A nil result means the class
// passed.
//
// The checks are structural, not a bytecode type check: constant pool
// references must resolve to entries of the right kind, every attribute's
// recorded length must match its decoded content, and a set of semantic
// rules over names, flags, and member shapes must hold.
func Verify(m *ClassModel) []error {
	v := &verifier{m: m}
	v.checkPool()
	v.checkClass()
	for _, f := range m.Fields {
		v.checkField(f)
	}
	for _, method := range m.Methods {
		v.checkMethod(method)
	}
	v.checkAttributes(m.Attributes, fmt.Sprintf("class %s", m.ThisClass.DisplayName()))
	return v.errs
}

type verifier struct {
	m    *ClassModel
	errs []error
}

func (v *verifier) errorf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

// checkPool touches every entry, resolving its references so dangling or
// mistyped indexes surface even when nothing else reads them.
func (v *verifier) checkPool() {
	pool := v.m.ConstantPool()
	for index := uint16(1); int(index) < pool.Size(); index++ {
		entry := pool[index-1]
		if entry == nil {
			continue
		}
		var err error
		switch e := entry.(type) {
		case *ConstantClassInfo:
			_, err = pool.Utf8(e.NameIndex)
		case *ConstantStringInfo:
			_, err = pool.Utf8(e.StringIndex)
		case *ConstantFieldrefInfo, *ConstantMethodrefInfo, *ConstantInterfaceMethodrefInfo:
			_, _, err = pool.MemberRefAt(index)
		case *ConstantNameAndTypeInfo:
			_, _, err = pool.NameAndType(index)
		case *ConstantMethodHandleInfo:
			_, err = pool.MethodHandleAt(index)
		case *ConstantMethodTypeInfo:
			_, err = pool.Utf8(e.DescriptorIndex)
		case *ConstantDynamicInfo:
			_, _, err = pool.NameAndType(e.NameAndTypeIndex)
		case *ConstantInvokeDynamicInfo:
			_, _, err = pool.NameAndType(e.NameAndTypeIndex)
		case *ConstantModuleInfo:
			_, err = pool.Utf8(e.NameIndex)
		case *ConstantPackageInfo:
			_, err = pool.Utf8(e.NameIndex)
		}
		if err != nil {
			v.errorf("constant pool entry %d: %v", index, err)
		}
	}
}

func validClassName(name string) bool {
	if name == "" {
		return false
	}
	// Array classes appear under their descriptor form.
	if strings.HasPrefix(name, "[") {
		_, rest, err := parseFieldType(name, 0)
		return err == nil && rest == len(name)
	}
	return !strings.ContainsAny(name, ".;[")
}

func validMemberName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".;[/")
}

func validMethodName(name string) bool {
	if name == InitName || name == ClassInitName {
		return true
	}
	return validMemberName(name) && !strings.ContainsAny(name, "<>")
}

func (v *verifier) checkClass() {
	m := v.m
	if !validClassName(m.ThisClass.InternalName()) {
		v.errorf("invalid class name %q", m.ThisClass.InternalName())
	}
	if m.Superclass == "" && m.ThisClass != "Ljava/lang/Object;" && !m.Flags.IsModule() && m.ThisClass != "Lmodule-info;" {
		v.errorf("class %s has no superclass", m.ThisClass.DisplayName())
	}
	if m.Flags.IsInterface() && m.Superclass != "" && m.Superclass != "Ljava/lang/Object;" {
		v.errorf("interface %s extends %s instead of java.lang.Object",
			m.ThisClass.DisplayName(), m.Superclass.DisplayName())
	}

	seenInterfaces := make(map[ClassDesc]bool)
	for _, iface := range m.Interfaces {
		if seenInterfaces[iface] {
			v.errorf("duplicate interface %s", iface.DisplayName())
		}
		seenInterfaces[iface] = true
	}

	seenFields := make(map[string]bool)
	for _, f := range m.Fields {
		key := f.Name + ":" + f.Descriptor
		if seenFields[key] {
			v.errorf("duplicate field %s %s", f.Name, f.Descriptor)
		}
		seenFields[key] = true
	}
	seenMethods := make(map[string]bool)
	for _, method := range m.Methods {
		key := method.Name + method.Descriptor
		if seenMethods[key] {
			v.errorf("duplicate method %s%s", method.Name, method.Descriptor)
		}
		seenMethods[key] = true
	}

	if a := m.FindAttribute(AttrInnerClasses); a != nil {
		ic, err := AttributeAs[InnerClassesAttribute](a)
		if err == nil && ic != nil {
			for _, info := range ic.Classes {
				if info.Outer != "" && info.Inner == info.Outer {
					v.errorf("InnerClasses entry lists %s as its own outer class", info.Inner.DisplayName())
				}
			}
		}
	}
	if m.FindAttribute(AttrNestHost) != nil && m.FindAttribute(AttrNestMembers) != nil {
		v.errorf("class %s has both a NestHost and a NestMembers attribute", m.ThisClass.DisplayName())
	}
	if m.FindAttribute(AttrPermittedSubclasses) != nil && m.Flags.IsFinal() {
		v.errorf("final class %s cannot have permitted subclasses", m.ThisClass.DisplayName())
	}

}

func (v *verifier) checkField(f *FieldModel) {
	where := fmt.Sprintf("field %s", f.Name)
	if !validMemberName(f.Name) {
		v.errorf("invalid field name %q", f.Name)
	}
	if _, _, err := parseFieldType(f.Descriptor, 0); err != nil || f.Descriptor == "V" {
		v.errorf("%s has invalid descriptor %q", where, f.Descriptor)
	}
	if a := f.FindAttribute(AttrConstantValue); a != nil {
		cv, err := AttributeAs[ConstantValueAttribute](a)
		if err != nil {
			v.errorf("%s: %v", where, err)
		} else if cv != nil && !constantValueMatches(f.Descriptor, cv.Value) {
			v.errorf("%s of type %s has a mismatched ConstantValue of type %T",
				where, f.Type().DisplayName(), cv.Value)
		}
	}
	v.checkAttributes(f.Attributes, where)
}

// constantValueMatches checks the constant's kind against the field
// descriptor: the integral types all store as Integer entries.
func constantValueMatches(desc string, value any) bool {
	switch desc {
	case "I", "S", "C", "B", "Z":
		_, ok := value.(int32)
		return ok
	case "J":
		_, ok := value.(int64)
		return ok
	case "F":
		_, ok := value.(float32)
		return ok
	case "D":
		_, ok := value.(float64)
		return ok
	case "Ljava/lang/String;":
		_, ok := value.(string)
		return ok
	default:
		return false
	}
}

func (v *verifier) checkMethod(m *MethodModel) {
	where := fmt.Sprintf("method %s%s", m.Name, m.Descriptor)
	if !validMethodName(m.Name) {
		v.errorf("invalid method name %q", m.Name)
	}
	if _, _, err := ParseMethodDescriptor(m.Descriptor); err != nil {
		v.errorf("%s has invalid descriptor: %v", where, err)
	}
	if m.Name == ClassInitName && !m.Flags.IsStatic() && v.m.Major >= Java8Version {
		v.errorf("%s must be static", where)
	}
	if m.Name == InitName && v.m.Flags.IsInterface() {
		v.errorf("interface %s declares a constructor", v.m.ThisClass.DisplayName())
	}

	abstractOrNative := m.Flags.IsAbstract() || m.Flags.IsNative()
	code, err := m.Code()
	if err != nil {
		v.errorf("%s: %v", where, err)
	}
	switch {
	case abstractOrNative && code != nil:
		v.errorf("%s is abstract or native but has a Code attribute", where)
	case !abstractOrNative && code == nil && !v.m.Flags.IsModule():
		v.errorf("%s has no Code attribute", where)
	}
	if code != nil {
		slots, err := argumentSlots(m.Descriptor, m.Flags.IsStatic())
		if err == nil && int(code.MaxLocals) < slots {
			v.errorf("%s declares max_locals %d but its arguments need %d slots",
				where, code.MaxLocals, slots)
		}
		v.checkAttributes(code.Attributes, where+" code")
	}
	v.checkAttributes(m.Attributes, where)
}

// checkAttributes decodes each attribute and, for attributes still bound
// to their raw payload, recomputes the payload length from the decoded
// content. A mismatch means the record's length field disagrees with its
// body. Repeated single-instance attribute kinds on one owner are also
// reported here.
func (v *verifier) checkAttributes(attrs []*Attribute, where string) {
	seen := make(map[string]bool)
	for _, a := range attrs {
		if seen[a.Name] && !attributeAllowsMultiple(a.Name) {
			v.errorf("%s: multiple %s attributes", where, a.Name)
		}
		seen[a.Name] = true
	}
	for _, a := range attrs {
		parsed, err := a.Parsed()
		if err != nil {
			v.errorf("%s: %v", where, err)
			continue
		}
		if rec, ok := parsed.(*RecordAttribute); ok {
			for _, c := range rec.Components {
				v.checkAttributes(c.Attributes, fmt.Sprintf("%s: record component %s", where, c.Name))
			}
		}
		if !a.IsBound() {
			continue
		}
		expected, ok := payloadSize(parsed)
		if !ok {
			continue
		}
		if expected != len(a.raw) {
			v.errorf("%s: %s attribute declares %d payload bytes but its content needs %d",
				where, a.Name, len(a.raw), expected)
		}
	}
}

// payloadSize recomputes the serialized payload length of a decoded
// attribute. The second result is false for opaque payloads that carry
// their own length (unknown attributes, debug extensions).
func payloadSize(parsed any) (int, bool) {
	switch p := parsed.(type) {
	case *ConstantValueAttribute, *SignatureAttribute, *SourceFileAttribute,
		*ModuleMainClassAttribute, *NestHostAttribute:
		return 2, true
	case *SyntheticAttribute, *DeprecatedAttribute:
		return 0, true
	case *EnclosingMethodAttribute:
		return 4, true
	case *CodeAttribute:
		size := 10 + len(p.Code) + 8*len(p.Handlers)
		attrSize, ok := attributesSize(p.Attributes)
		return size + attrSize, ok
	case *StackMapTableAttribute:
		size := 2
		for _, f := range p.Frames {
			size += f.encodedSize()
		}
		return size, true
	case *ExceptionsAttribute:
		return 2 + 2*len(p.Exceptions), true
	case *InnerClassesAttribute:
		return 2 + 8*len(p.Classes), true
	case *LineNumberTableAttribute:
		return 2 + 4*len(p.Lines), true
	case *LocalVariableTableAttribute:
		return 2 + 10*len(p.Variables), true
	case *LocalVariableTypeTableAttribute:
		return 2 + 10*len(p.Variables), true
	case *RuntimeVisibleAnnotationsAttribute:
		return annotationsSize(p.Annotations), true
	case *RuntimeInvisibleAnnotationsAttribute:
		return annotationsSize(p.Annotations), true
	case *RuntimeVisibleParameterAnnotationsAttribute:
		return parameterAnnotationsSize(p.Parameters), true
	case *RuntimeInvisibleParameterAnnotationsAttribute:
		return parameterAnnotationsSize(p.Parameters), true
	case *RuntimeVisibleTypeAnnotationsAttribute:
		return typeAnnotationsSize(p.Annotations), true
	case *RuntimeInvisibleTypeAnnotationsAttribute:
		return typeAnnotationsSize(p.Annotations), true
	case *AnnotationDefaultAttribute:
		return valueSize(p.Value), true
	case *BootstrapMethodsAttribute:
		size := 2
		for _, m := range p.Methods {
			size += 4 + 2*len(m.Args)
		}
		return size, true
	case *MethodParametersAttribute:
		return 1 + 4*len(p.Parameters), true
	case *ModuleAttribute:
		size := 16 + 6*len(p.Requires) + 2*len(p.Uses)
		for _, exp := range p.Exports {
			size += 6 + 2*len(exp.To)
		}
		for _, op := range p.Opens {
			size += 6 + 2*len(op.To)
		}
		for _, prov := range p.Provides {
			size += 4 + 2*len(prov.With)
		}
		return size, true
	case *ModulePackagesAttribute:
		return 2 + 2*len(p.Packages), true
	case *NestMembersAttribute:
		return 2 + 2*len(p.Members), true
	case *RecordAttribute:
		size := 2
		for _, c := range p.Components {
			attrSize, ok := attributesSize(c.Attributes)
			if !ok {
				return 0, false
			}
			size += 4 + attrSize
		}
		return size, true
	case *PermittedSubclassesAttribute:
		return 2 + 2*len(p.Subclasses), true
	default:
		return 0, false
	}
}

// attributesSize totals a nested attribute list, recomputing each entry
// from its decoded content so a stored-length lie inside a container (a
// record component, a Code body) still shifts the container's total. Only
// payloads the library cannot recompute fall back to the stored bytes.
func attributesSize(attrs []*Attribute) (int, bool) {
	size := 2
	for _, a := range attrs {
		payload := -1
		if parsed, err := a.Parsed(); err == nil {
			if n, ok := payloadSize(parsed); ok {
				payload = n
			}
		}
		if payload < 0 {
			if !a.IsBound() {
				return 0, false
			}
			payload = len(a.raw)
		}
		size += 6 + payload
	}
	return size, true
}

func annotationsSize(annotations []Annotation) int {
	size := 2
	for _, a := range annotations {
		size += annotationSize(a)
	}
	return size
}

func annotationSize(a Annotation) int {
	size := 4
	for _, el := range a.Elements {
		size += 2 + valueSize(el.Value)
	}
	return size
}

func valueSize(v AnnotationValue) int {
	switch v.Tag {
	case 'e':
		return 5
	case '@':
		if v.Nested == nil {
			return 1
		}
		return 1 + annotationSize(*v.Nested)
	case '[':
		size := 3
		for _, el := range v.Array {
			size += valueSize(el)
		}
		return size
	default:
		return 3
	}
}

func parameterAnnotationsSize(params [][]Annotation) int {
	size := 1
	for _, annotations := range params {
		size += annotationsSize(annotations)
	}
	return size
}

func typeAnnotationsSize(annotations []TypeAnnotation) int {
	size := 2
	for _, ta := range annotations {
		size += 1 + len(ta.TargetInfo) + 1 + len(ta.TypePath) + annotationSize(ta.Annotation)
	}
	return size
}
