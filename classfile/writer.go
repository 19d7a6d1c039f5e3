package classfile

import (
	"fmt"
	"math"
)

type writer struct {
	buf []byte
}

func (w *writer) u1(v uint8)      { w.buf = append(w.buf, v) }
func (w *writer) u2(v uint16)     { w.buf = append(w.buf, byte(v>>8), byte(v)) }
func (w *writer) u4(v uint32)     { w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
func (w *writer) bytes(b []byte)  { w.buf = append(w.buf, b...) }
func (w *writer) appendTo(o *writer) { o.bytes(w.buf) }

// Bytes serializes the assembled class. Every symbolic reference is
// interned into a fresh constant pool; the pool header is rendered last,
// once the body has pulled in everything it needs.
func (b *ClassBuilder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	pb := NewPoolBuilder()
	body := &writer{}

	body.u2(uint16(b.flags))
	body.u2(pb.Class(b.thisClass))
	if b.superclass == "" {
		body.u2(0)
	} else {
		body.u2(pb.Class(b.superclass))
	}
	if len(b.interfaces) > math.MaxUint16 {
		return nil, fmt.Errorf("too many interfaces: %d", len(b.interfaces))
	}
	body.u2(uint16(len(b.interfaces)))
	for _, iface := range b.interfaces {
		body.u2(pb.Class(iface))
	}

	if len(b.fields) > math.MaxUint16 {
		return nil, fmt.Errorf("too many fields: %d", len(b.fields))
	}
	body.u2(uint16(len(b.fields)))
	for _, f := range b.fields {
		body.u2(uint16(f.Flags))
		body.u2(pb.Utf8(f.Name))
		body.u2(pb.Utf8(f.Descriptor))
		if err := encodeAttributeList(body, pb, f.Attributes); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
	}

	if len(b.methods) > math.MaxUint16 {
		return nil, fmt.Errorf("too many methods: %d", len(b.methods))
	}
	body.u2(uint16(len(b.methods)))
	for _, m := range b.methods {
		body.u2(uint16(m.Flags))
		body.u2(pb.Utf8(m.Name))
		body.u2(pb.Utf8(m.Descriptor))
		if err := encodeAttributeList(body, pb, m.Attributes); err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
	}

	// Class attributes last: a synthesized BootstrapMethods attribute
	// joins whatever the builder accumulated, built from the entries the
	// body's dynamic constants interned.
	attrs := &writer{}
	count := 0
	for _, a := range b.attrs {
		if a.Name == AttrBootstrapMethods {
			continue
		}
		if err := encodeAttribute(attrs, pb, a); err != nil {
			return nil, err
		}
		count++
	}
	if len(pb.BootstrapMethods()) > 0 {
		bsm, err := encodeBootstrapTable(pb)
		if err != nil {
			return nil, err
		}
		attrs.u2(pb.Utf8(AttrBootstrapMethods))
		attrs.u4(uint32(len(bsm)))
		attrs.bytes(bsm)
		count++
	}
	body.u2(uint16(count))
	attrs.appendTo(body)

	if err := pb.Err(); err != nil {
		return nil, err
	}

	out := &writer{}
	out.u4(Magic)
	out.u2(b.minor)
	out.u2(b.major)
	if err := encodeConstantPool(out, pb.Pool()); err != nil {
		return nil, err
	}
	body.appendTo(out)
	return out.buf, nil
}

// encodeBootstrapTable renders the bootstrap method table. Encoding an
// argument can intern further bootstrap methods (nested dynamic
// constants), so the table is re-rendered until it stops growing.
func encodeBootstrapTable(pb *PoolBuilder) ([]byte, error) {
	for {
		before := len(pb.BootstrapMethods())
		w := &writer{}
		w.u2(uint16(before))
		for _, entry := range pb.BootstrapMethods()[:before] {
			w.u2(entry.handleIndex)
			w.u2(uint16(len(entry.argIndexes)))
			for _, arg := range entry.argIndexes {
				w.u2(arg)
			}
		}
		if err := pb.Err(); err != nil {
			return nil, err
		}
		if len(pb.BootstrapMethods()) == before {
			return w.buf, nil
		}
	}
}

func encodeConstantPool(w *writer, pool ConstantPool) error {
	if pool.Size() > math.MaxUint16 {
		return fmt.Errorf("constant pool overflow: %d slots", pool.Size())
	}
	w.u2(uint16(pool.Size()))
	for _, entry := range pool {
		if entry == nil {
			continue
		}
		w.u1(uint8(entry.Tag()))
		switch e := entry.(type) {
		case *ConstantUtf8Info:
			encoded := encodeModifiedUtf8(e.Value)
			if len(encoded) > math.MaxUint16 {
				return fmt.Errorf("utf8 constant too long: %d bytes", len(encoded))
			}
			w.u2(uint16(len(encoded)))
			w.bytes(encoded)
		case *ConstantIntegerInfo:
			w.u4(uint32(e.Value))
		case *ConstantFloatInfo:
			w.u4(math.Float32bits(e.Value))
		case *ConstantLongInfo:
			w.u4(uint32(uint64(e.Value) >> 32))
			w.u4(uint32(uint64(e.Value)))
		case *ConstantDoubleInfo:
			bits := math.Float64bits(e.Value)
			w.u4(uint32(bits >> 32))
			w.u4(uint32(bits))
		case *ConstantClassInfo:
			w.u2(e.NameIndex)
		case *ConstantStringInfo:
			w.u2(e.StringIndex)
		case *ConstantFieldrefInfo:
			w.u2(e.ClassIndex)
			w.u2(e.NameAndTypeIndex)
		case *ConstantMethodrefInfo:
			w.u2(e.ClassIndex)
			w.u2(e.NameAndTypeIndex)
		case *ConstantInterfaceMethodrefInfo:
			w.u2(e.ClassIndex)
			w.u2(e.NameAndTypeIndex)
		case *ConstantNameAndTypeInfo:
			w.u2(e.NameIndex)
			w.u2(e.DescriptorIndex)
		case *ConstantMethodHandleInfo:
			w.u1(uint8(e.ReferenceKind))
			w.u2(e.ReferenceIndex)
		case *ConstantMethodTypeInfo:
			w.u2(e.DescriptorIndex)
		case *ConstantDynamicInfo:
			w.u2(e.BootstrapMethodAttrIndex)
			w.u2(e.NameAndTypeIndex)
		case *ConstantInvokeDynamicInfo:
			w.u2(e.BootstrapMethodAttrIndex)
			w.u2(e.NameAndTypeIndex)
		case *ConstantModuleInfo:
			w.u2(e.NameIndex)
		case *ConstantPackageInfo:
			w.u2(e.NameIndex)
		default:
			return fmt.Errorf("unsupported constant pool entry %T", entry)
		}
	}
	return nil
}

func encodeAttributeList(w *writer, pb *PoolBuilder, attrs []*Attribute) error {
	kept := make([]*Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a.Name == AttrBootstrapMethods {
			// Synthesized from the interned table at the class level.
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) > math.MaxUint16 {
		return fmt.Errorf("too many attributes: %d", len(kept))
	}
	w.u2(uint16(len(kept)))
	for _, a := range kept {
		if err := encodeAttribute(w, pb, a); err != nil {
			return err
		}
	}
	return nil
}

func encodeAttribute(w *writer, pb *PoolBuilder, a *Attribute) error {
	parsed, err := a.Parsed()
	if err != nil {
		return err
	}
	payload := &writer{}
	if err := encodeAttributePayload(payload, pb, a.Name, parsed); err != nil {
		return fmt.Errorf("encoding %s attribute: %w", a.Name, err)
	}
	w.u2(pb.Utf8(a.Name))
	w.u4(uint32(len(payload.buf)))
	payload.appendTo(w)
	return nil
}

func encodeAttributePayload(w *writer, pb *PoolBuilder, name string, parsed any) error {
	switch v := parsed.(type) {
	case *ConstantValueAttribute:
		w.u2(pb.LoadableConstant(v.Value))
	case *CodeAttribute:
		return encodeCode(w, pb, v)
	case *StackMapTableAttribute:
		w.u2(uint16(len(v.Frames)))
		for _, f := range v.Frames {
			if err := encodeStackMapFrame(w, pb, f); err != nil {
				return err
			}
		}
	case *ExceptionsAttribute:
		w.u2(uint16(len(v.Exceptions)))
		for _, c := range v.Exceptions {
			w.u2(pb.Class(c))
		}
	case *InnerClassesAttribute:
		w.u2(uint16(len(v.Classes)))
		for _, info := range v.Classes {
			w.u2(pb.Class(info.Inner))
			if info.Outer == "" {
				w.u2(0)
			} else {
				w.u2(pb.Class(info.Outer))
			}
			if info.Name == "" {
				w.u2(0)
			} else {
				w.u2(pb.Utf8(info.Name))
			}
			w.u2(uint16(info.Flags))
		}
	case *EnclosingMethodAttribute:
		w.u2(pb.Class(v.Class))
		if v.MethodName == "" {
			w.u2(0)
		} else {
			w.u2(pb.NameAndType(v.MethodName, v.MethodDescriptor))
		}
	case *SyntheticAttribute, *DeprecatedAttribute:
	case *SignatureAttribute:
		w.u2(pb.Utf8(v.Signature))
	case *SourceFileAttribute:
		w.u2(pb.Utf8(v.File))
	case *SourceDebugExtensionAttribute:
		w.bytes(v.Contents)
	case *LineNumberTableAttribute:
		w.u2(uint16(len(v.Lines)))
		for _, l := range v.Lines {
			w.u2(l.StartPC)
			w.u2(l.Line)
		}
	case *LocalVariableTableAttribute:
		w.u2(uint16(len(v.Variables)))
		for _, lv := range v.Variables {
			w.u2(lv.StartPC)
			w.u2(lv.Length)
			w.u2(pb.Utf8(lv.Name))
			w.u2(pb.Utf8(lv.Descriptor))
			w.u2(lv.Slot)
		}
	case *LocalVariableTypeTableAttribute:
		w.u2(uint16(len(v.Variables)))
		for _, lv := range v.Variables {
			w.u2(lv.StartPC)
			w.u2(lv.Length)
			w.u2(pb.Utf8(lv.Name))
			w.u2(pb.Utf8(lv.Signature))
			w.u2(lv.Slot)
		}
	case *RuntimeVisibleAnnotationsAttribute:
		return encodeAnnotations(w, pb, v.Annotations)
	case *RuntimeInvisibleAnnotationsAttribute:
		return encodeAnnotations(w, pb, v.Annotations)
	case *RuntimeVisibleParameterAnnotationsAttribute:
		return encodeParameterAnnotations(w, pb, v.Parameters)
	case *RuntimeInvisibleParameterAnnotationsAttribute:
		return encodeParameterAnnotations(w, pb, v.Parameters)
	case *RuntimeVisibleTypeAnnotationsAttribute:
		return encodeTypeAnnotations(w, pb, v.Annotations)
	case *RuntimeInvisibleTypeAnnotationsAttribute:
		return encodeTypeAnnotations(w, pb, v.Annotations)
	case *AnnotationDefaultAttribute:
		return encodeAnnotationValue(w, pb, v.Value)
	case *MethodParametersAttribute:
		w.u1(uint8(len(v.Parameters)))
		for _, p := range v.Parameters {
			if p.Name == "" {
				w.u2(0)
			} else {
				w.u2(pb.Utf8(p.Name))
			}
			w.u2(uint16(p.Flags))
		}
	case *ModuleAttribute:
		return encodeModule(w, pb, v)
	case *ModulePackagesAttribute:
		w.u2(uint16(len(v.Packages)))
		for _, p := range v.Packages {
			w.u2(pb.Package(p))
		}
	case *ModuleMainClassAttribute:
		w.u2(pb.Class(v.MainClass))
	case *NestHostAttribute:
		w.u2(pb.Class(v.Host))
	case *NestMembersAttribute:
		w.u2(uint16(len(v.Members)))
		for _, m := range v.Members {
			w.u2(pb.Class(m))
		}
	case *RecordAttribute:
		w.u2(uint16(len(v.Components)))
		for _, c := range v.Components {
			w.u2(pb.Utf8(c.Name))
			w.u2(pb.Utf8(c.Descriptor))
			if err := encodeAttributeList(w, pb, c.Attributes); err != nil {
				return err
			}
		}
	case *PermittedSubclassesAttribute:
		w.u2(uint16(len(v.Subclasses)))
		for _, s := range v.Subclasses {
			w.u2(pb.Class(s))
		}
	case *UnknownAttribute:
		w.bytes(v.Contents)
	default:
		return fmt.Errorf("unsupported parsed form %T for attribute %s", parsed, name)
	}
	return nil
}

func encodeVerificationType(w *writer, pb *PoolBuilder, v VerificationType) error {
	w.u1(v.Tag)
	switch v.Tag {
	case VTObject:
		w.u2(pb.Class(v.ClassName))
	case VTUninitialized:
		w.u2(v.Offset)
	case VTTop, VTInteger, VTFloat, VTDouble, VTLong, VTNull, VTUninitializedThis:
	default:
		return fmt.Errorf("bad verification type tag %d", v.Tag)
	}
	return nil
}

func encodeStackMapFrame(w *writer, pb *PoolBuilder, f StackMapFrame) error {
	w.u1(f.FrameType)
	switch {
	case f.FrameType <= sameFrameEnd:
	case f.FrameType <= sameLocals1StackItemEnd:
		if len(f.Stack) != 1 {
			return fmt.Errorf("frame type %d needs exactly one stack item, have %d", f.FrameType, len(f.Stack))
		}
		return encodeVerificationType(w, pb, f.Stack[0])
	case f.FrameType <= reservedFrameEnd:
		return fmt.Errorf("reserved frame type %d", f.FrameType)
	case f.FrameType == sameLocals1StackItemExtFT:
		w.u2(f.OffsetDelta)
		if len(f.Stack) != 1 {
			return fmt.Errorf("frame type %d needs exactly one stack item, have %d", f.FrameType, len(f.Stack))
		}
		return encodeVerificationType(w, pb, f.Stack[0])
	case f.FrameType <= chopFrameEnd, f.FrameType == sameFrameExtendedFT:
		w.u2(f.OffsetDelta)
	case f.FrameType <= appendFrameEnd:
		w.u2(f.OffsetDelta)
		if len(f.Locals) != int(f.FrameType-sameFrameExtendedFT) {
			return fmt.Errorf("frame type %d needs %d appended locals, have %d", f.FrameType, f.FrameType-sameFrameExtendedFT, len(f.Locals))
		}
		for _, v := range f.Locals {
			if err := encodeVerificationType(w, pb, v); err != nil {
				return err
			}
		}
	default:
		w.u2(f.OffsetDelta)
		w.u2(uint16(len(f.Locals)))
		for _, v := range f.Locals {
			if err := encodeVerificationType(w, pb, v); err != nil {
				return err
			}
		}
		w.u2(uint16(len(f.Stack)))
		for _, v := range f.Stack {
			if err := encodeVerificationType(w, pb, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeAnnotations(w *writer, pb *PoolBuilder, annotations []Annotation) error {
	w.u2(uint16(len(annotations)))
	for _, a := range annotations {
		if err := encodeAnnotation(w, pb, a); err != nil {
			return err
		}
	}
	return nil
}

func encodeParameterAnnotations(w *writer, pb *PoolBuilder, params [][]Annotation) error {
	w.u1(uint8(len(params)))
	for _, annotations := range params {
		if err := encodeAnnotations(w, pb, annotations); err != nil {
			return err
		}
	}
	return nil
}

func encodeTypeAnnotations(w *writer, pb *PoolBuilder, annotations []TypeAnnotation) error {
	w.u2(uint16(len(annotations)))
	for _, ta := range annotations {
		w.u1(ta.TargetType)
		w.bytes(ta.TargetInfo)
		w.u1(uint8(len(ta.TypePath) / 2))
		w.bytes(ta.TypePath)
		if err := encodeAnnotation(w, pb, ta.Annotation); err != nil {
			return err
		}
	}
	return nil
}

func encodeAnnotation(w *writer, pb *PoolBuilder, a Annotation) error {
	w.u2(pb.Utf8(string(a.Type)))
	w.u2(uint16(len(a.Elements)))
	for _, el := range a.Elements {
		w.u2(pb.Utf8(el.Name))
		if err := encodeAnnotationValue(w, pb, el.Value); err != nil {
			return err
		}
	}
	return nil
}

func encodeAnnotationValue(w *writer, pb *PoolBuilder, v AnnotationValue) error {
	w.u1(v.Tag)
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z':
		c, ok := v.Const.(int32)
		if !ok {
			return fmt.Errorf("element value tag %q needs an int32, have %T", v.Tag, v.Const)
		}
		w.u2(pb.Integer(c))
	case 'D':
		c, ok := v.Const.(float64)
		if !ok {
			return fmt.Errorf("element value tag 'D' needs a float64, have %T", v.Const)
		}
		w.u2(pb.Double(c))
	case 'F':
		c, ok := v.Const.(float32)
		if !ok {
			return fmt.Errorf("element value tag 'F' needs a float32, have %T", v.Const)
		}
		w.u2(pb.Float(c))
	case 'J':
		c, ok := v.Const.(int64)
		if !ok {
			return fmt.Errorf("element value tag 'J' needs an int64, have %T", v.Const)
		}
		w.u2(pb.Long(c))
	case 's':
		c, ok := v.Const.(string)
		if !ok {
			return fmt.Errorf("element value tag 's' needs a string, have %T", v.Const)
		}
		w.u2(pb.Utf8(c))
	case 'e':
		w.u2(pb.Utf8(string(v.EnumType)))
		w.u2(pb.Utf8(v.EnumName))
	case 'c':
		w.u2(pb.Utf8(string(v.Class)))
	case '@':
		if v.Nested == nil {
			return fmt.Errorf("element value tag '@' missing annotation")
		}
		return encodeAnnotation(w, pb, *v.Nested)
	case '[':
		w.u2(uint16(len(v.Array)))
		for _, el := range v.Array {
			if err := encodeAnnotationValue(w, pb, el); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("bad element value tag %#x", v.Tag)
	}
	return nil
}

func encodeModule(w *writer, pb *PoolBuilder, m *ModuleAttribute) error {
	w.u2(pb.Module(m.Name))
	w.u2(uint16(m.Flags))
	if m.Version == "" {
		w.u2(0)
	} else {
		w.u2(pb.Utf8(m.Version))
	}
	w.u2(uint16(len(m.Requires)))
	for _, req := range m.Requires {
		w.u2(pb.Module(req.Module))
		w.u2(uint16(req.Flags))
		if req.Version == "" {
			w.u2(0)
		} else {
			w.u2(pb.Utf8(req.Version))
		}
	}
	w.u2(uint16(len(m.Exports)))
	for _, exp := range m.Exports {
		w.u2(pb.Package(exp.Package))
		w.u2(uint16(exp.Flags))
		w.u2(uint16(len(exp.To)))
		for _, to := range exp.To {
			w.u2(pb.Module(to))
		}
	}
	w.u2(uint16(len(m.Opens)))
	for _, op := range m.Opens {
		w.u2(pb.Package(op.Package))
		w.u2(uint16(op.Flags))
		w.u2(uint16(len(op.To)))
		for _, to := range op.To {
			w.u2(pb.Module(to))
		}
	}
	w.u2(uint16(len(m.Uses)))
	for _, use := range m.Uses {
		w.u2(pb.Class(use))
	}
	w.u2(uint16(len(m.Provides)))
	for _, prov := range m.Provides {
		w.u2(pb.Class(prov.Service))
		w.u2(uint16(len(prov.With)))
		for _, with := range prov.With {
			w.u2(pb.Class(with))
		}
	}
	return nil
}

// encodeCode renders a Code attribute payload. Parsed code converts to
// recorded operations first so every pool operand re-interns; assembled
// code already holds its operations.
func encodeCode(w *writer, pb *PoolBuilder, c *CodeAttribute) error {
	ops := c.ops
	if ops == nil {
		cb := &CodeBuilder{}
		if err := c.Instructions(func(in Instruction) error {
			cb.passthrough(in)
			return cb.err
		}); err != nil {
			return err
		}
		if cb.err != nil {
			return cb.err
		}
		ops = cb.ops
	}
	code := &writer{}
	for _, op := range ops {
		if err := encodeCodeOp(code, pb, op); err != nil {
			return err
		}
	}
	if len(code.buf) > math.MaxUint32 {
		return fmt.Errorf("code too long: %d bytes", len(code.buf))
	}
	w.u2(c.MaxStack)
	w.u2(c.MaxLocals)
	w.u4(uint32(len(code.buf)))
	code.appendTo(w)
	w.u2(uint16(len(c.Handlers)))
	for _, h := range c.Handlers {
		w.u2(h.StartPC)
		w.u2(h.EndPC)
		w.u2(h.HandlerPC)
		if h.CatchType == "" {
			w.u2(0)
		} else {
			w.u2(pb.Class(h.CatchType))
		}
	}
	return encodeAttributeList(w, pb, c.Attributes)
}

func encodeCodeOp(w *writer, pb *PoolBuilder, op codeOp) error {
	switch op.kind {
	case opRaw:
		w.bytes(op.raw)
	case opField:
		w.u1(op.op)
		w.u2(pb.FieldRef(op.ref))
	case opMethod:
		w.u1(op.op)
		w.u2(pb.MethodRef(op.ref, op.iface && op.op != OpInvokevirtual))
		if op.op == OpInvokeinterface {
			w.u1(op.count)
			w.u1(0)
		}
	case opIndy:
		w.u1(op.op)
		w.u2(pb.InvokeDynamic(op.indy))
		w.u1(0)
		w.u1(0)
	case opClass:
		w.u1(op.op)
		w.u2(pb.Class(op.class))
	case opMulti:
		w.u1(op.op)
		w.u2(pb.Class(op.class))
		w.u1(op.dims)
	case opConst:
		index := pb.LoadableConstant(op.konst)
		if op.op == OpLdc {
			if index > math.MaxUint8 {
				// Widening to ldc_w would change the instruction length
				// and invalidate every later branch target.
				return fmt.Errorf("ldc constant landed at pool index %d, beyond one-byte reach", index)
			}
			w.u1(op.op)
			w.u1(uint8(index))
		} else {
			w.u1(op.op)
			w.u2(index)
		}
	default:
		return fmt.Errorf("unsupported code op kind %d", op.kind)
	}
	return nil
}
