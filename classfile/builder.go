package classfile

import "fmt"

// codeOp is one recorded instruction awaiting encoding. Pool operands are
// symbolic; indexes are assigned when the owning class is serialized.
// Raw ops carry the full original encoding, opcode included, and are
// emitted verbatim.
type codeOp struct {
	kind  opKind
	op    uint8
	raw   []byte
	ref   MemberRef
	iface bool
	class ClassDesc
	dims  uint8
	count uint8 // invokeinterface operand count
	konst any
	indy  DynamicConstant
}

type opKind uint8

const (
	opRaw opKind = iota
	opField
	opMethod
	opIndy
	opClass
	opMulti
	opConst
)

// CodeBuilder assembles the body of a Code attribute. Instructions are
// recorded in order and encoded against the class's constant pool at
// write time. Pass-through of parsed instructions preserves their exact
// byte layout, so branch offsets and switch padding stay valid.
type CodeBuilder struct {
	maxStack  uint16
	maxLocals uint16
	ops       []codeOp
	handlers  []ExceptionHandler
	attrs     []*Attribute
	emitted   []CodeElement
	err       error
}

func (b *CodeBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// SetMaxs sets the operand stack and local variable sizes. Nothing is
// inferred from the instruction stream.
func (b *CodeBuilder) SetMaxs(maxStack, maxLocals uint16) {
	b.maxStack = maxStack
	b.maxLocals = maxLocals
}

func (b *CodeBuilder) record(op codeOp, el CodeElement) {
	b.ops = append(b.ops, op)
	b.emitted = append(b.emitted, el)
}

// With accepts any code element: parsed instructions pass through with
// their pool operands re-resolved symbolically, handlers and attributes
// are appended.
func (b *CodeBuilder) With(el CodeElement) {
	if b.err != nil {
		return
	}
	switch e := el.(type) {
	case Instruction:
		b.passthrough(e)
	case ExceptionHandler:
		b.handlers = append(b.handlers, e)
		b.emitted = append(b.emitted, e)
	case *Attribute:
		b.attrs = append(b.attrs, e)
		b.emitted = append(b.emitted, e)
	default:
		b.fail(fmt.Errorf("unsupported code element %T", el))
	}
}

func (b *CodeBuilder) passthrough(in Instruction) {
	switch in.Opcode {
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		ref, err := in.FieldRef()
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opField, op: in.Opcode, ref: ref}, in)
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		ref, iface, err := in.MethodRef()
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opMethod, op: in.Opcode, ref: ref, iface: iface}, in)
	case OpInvokeinterface:
		ref, _, err := in.MethodRef()
		if err != nil {
			b.fail(err)
			return
		}
		count := uint8(0)
		if len(in.Operands) >= 3 {
			count = in.Operands[2]
		}
		b.record(codeOp{kind: opMethod, op: in.Opcode, ref: ref, iface: true, count: count}, in)
	case OpInvokedynamic:
		d, err := in.InvokeDynamic()
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opIndy, op: in.Opcode, indy: d}, in)
	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		c, err := in.ClassOperand()
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opClass, op: in.Opcode, class: c}, in)
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
		b.record(codeOp{kind: opMulti, op: in.Opcode, class: c, dims: dims}, in)
	case OpLdc, OpLdcW, OpLdc2W:
		v, err := in.Constant()
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opConst, op: in.Opcode, konst: v}, in)
	default:
		raw := make([]byte, 0, 1+len(in.Operands))
		raw = append(raw, in.Opcode)
		raw = append(raw, in.Operands...)
		b.record(codeOp{kind: opRaw, raw: raw}, in)
	}
}

// Raw appends an instruction with verbatim operand bytes. The caller is
// responsible for operand layout; pool-referencing opcodes should use the
// typed methods instead so their indexes survive re-interning.
func (b *CodeBuilder) Raw(op uint8, operands ...byte) {
	raw := append([]byte{op}, operands...)
	in := Instruction{Opcode: op, Operands: raw[1:]}
	b.record(codeOp{kind: opRaw, raw: raw}, in)
}

// FieldInstruction appends a getstatic/putstatic/getfield/putfield.
func (b *CodeBuilder) FieldInstruction(op uint8, ref MemberRef) {
	switch op {
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		b.record(codeOp{kind: opField, op: op, ref: ref}, Instruction{Opcode: op})
	default:
		b.fail(fmt.Errorf("opcode %#x is not a field instruction", op))
	}
}

// InvokeInstruction appends an invokevirtual/special/static/interface.
func (b *CodeBuilder) InvokeInstruction(op uint8, ref MemberRef, isInterface bool) {
	switch op {
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		b.record(codeOp{kind: opMethod, op: op, ref: ref, iface: isInterface}, Instruction{Opcode: op})
	case OpInvokeinterface:
		slots, err := argumentSlots(ref.Descriptor, false)
		if err != nil {
			b.fail(err)
			return
		}
		b.record(codeOp{kind: opMethod, op: op, ref: ref, iface: true, count: uint8(slots)}, Instruction{Opcode: op})
	default:
		b.fail(fmt.Errorf("opcode %#x is not an invoke instruction", op))
	}
}

// InvokeDynamicInstruction appends an invokedynamic for the given call
// site.
func (b *CodeBuilder) InvokeDynamicInstruction(site DynamicConstant) {
	b.record(codeOp{kind: opIndy, op: OpInvokedynamic, indy: site}, Instruction{Opcode: OpInvokedynamic})
}

// TypeInstruction appends a new/anewarray/checkcast/instanceof.
func (b *CodeBuilder) TypeInstruction(op uint8, class ClassDesc) {
	switch op {
	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		b.record(codeOp{kind: opClass, op: op, class: class}, Instruction{Opcode: op})
	default:
		b.fail(fmt.Errorf("opcode %#x is not a type instruction", op))
	}
}

// MultianewarrayInstruction appends a multianewarray.
func (b *CodeBuilder) MultianewarrayInstruction(class ClassDesc, dims uint8) {
	b.record(codeOp{kind: opMulti, op: OpMultianewarray, class: class, dims: dims}, Instruction{Opcode: OpMultianewarray})
}

// ConstantInstruction appends an ldc-family load of the given loadable
// constant. Wide values (int64, float64) use ldc2_w; everything else uses
// ldc and is widened to ldc_w only when freshly assembled here.
func (b *CodeBuilder) ConstantInstruction(v any) {
	switch v.(type) {
	case int64, float64:
		b.record(codeOp{kind: opConst, op: OpLdc2W, konst: v}, Instruction{Opcode: OpLdc2W})
	default:
		b.record(codeOp{kind: opConst, op: OpLdc, konst: v}, Instruction{Opcode: OpLdc})
	}
}

// WithHandler appends an exception table entry.
func (b *CodeBuilder) WithHandler(h ExceptionHandler) {
	b.With(h)
}

// WithAttribute appends a code-level attribute.
func (b *CodeBuilder) WithAttribute(a *Attribute) {
	b.With(a)
}

// build materializes the recorded body as an unbound CodeAttribute.
func (b *CodeBuilder) build() (*CodeAttribute, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &CodeAttribute{
		MaxStack:   b.maxStack,
		MaxLocals:  b.maxLocals,
		Handlers:   b.handlers,
		Attributes: b.attrs,
		ops:        b.ops,
	}, nil
}

// checkSingleAttribute rejects a second instance of an attribute kind
// that allows only one per owner.
func checkSingleAttribute(attrs []*Attribute, name string) error {
	if !attributeAllowsMultiple(name) && findAttribute(attrs, name) != nil {
		return fmt.Errorf("second %s attribute on one owner", name)
	}
	return nil
}

// FieldBuilder assembles one field.
type FieldBuilder struct {
	field   *FieldModel
	emitted []FieldElement
	err     error
}

// SetFlags replaces the field's access flags.
func (b *FieldBuilder) SetFlags(flags AccessFlags) { b.field.Flags = flags }

// With accepts a field element.
func (b *FieldBuilder) With(el FieldElement) {
	if b.err != nil {
		return
	}
	switch e := el.(type) {
	case *Attribute:
		if err := checkSingleAttribute(b.field.Attributes, e.Name); err != nil {
			b.err = err
			return
		}
		b.field.Attributes = append(b.field.Attributes, e)
		b.emitted = append(b.emitted, e)
	default:
		if b.err == nil {
			b.err = fmt.Errorf("unsupported field element %T", el)
		}
	}
}

// WithAttribute appends a field attribute.
func (b *FieldBuilder) WithAttribute(a *Attribute) { b.With(a) }

// MethodBuilder assembles one method.
type MethodBuilder struct {
	method  *MethodModel
	emitted []MethodElement
	err     error
}

// SetFlags replaces the method's access flags.
func (b *MethodBuilder) SetFlags(flags AccessFlags) { b.method.Flags = flags }

// With accepts a method element. A parsed Code attribute passes through
// instruction by instruction so its pool operands re-intern correctly.
func (b *MethodBuilder) With(el MethodElement) {
	if b.err != nil {
		return
	}
	switch e := el.(type) {
	case *CodeAttribute:
		b.WithCode(e.MaxStack, e.MaxLocals, func(cb *CodeBuilder) {
			if err := e.Elements(func(ce CodeElement) error {
				cb.With(ce)
				return cb.err
			}); err != nil {
				cb.fail(err)
			}
		})
		if b.err == nil {
			b.emitted[len(b.emitted)-1] = e
		}
	case *Attribute:
		if err := checkSingleAttribute(b.method.Attributes, e.Name); err != nil {
			b.err = err
			return
		}
		b.method.Attributes = append(b.method.Attributes, e)
		b.emitted = append(b.emitted, e)
	default:
		b.err = fmt.Errorf("unsupported method element %T", el)
	}
}

// WithAttribute appends a method attribute.
func (b *MethodBuilder) WithAttribute(a *Attribute) { b.With(a) }

// WithCode assembles a Code attribute for the method through fn.
func (b *MethodBuilder) WithCode(maxStack, maxLocals uint16, fn func(*CodeBuilder)) {
	if b.err != nil {
		return
	}
	if err := checkSingleAttribute(b.method.Attributes, AttrCode); err != nil {
		b.err = err
		return
	}
	cb := &CodeBuilder{maxStack: maxStack, maxLocals: maxLocals}
	fn(cb)
	code, err := cb.build()
	if err != nil {
		b.err = err
		return
	}
	a := NewAttribute(AttrCode, code)
	b.method.Attributes = append(b.method.Attributes, a)
	b.emitted = append(b.emitted, code)
}

// ClassBuilder assembles a whole class for serialization. Elements
// accumulate in order; Bytes interns every symbol into a fresh constant
// pool and renders the file.
type ClassBuilder struct {
	minor      uint16
	major      uint16
	flags      AccessFlags
	thisClass  ClassDesc
	superclass ClassDesc
	interfaces []ClassDesc
	fields     []*FieldModel
	methods    []*MethodModel
	attrs      []*Attribute
	emitted    []ClassElement
	err        error
}

// Build assembles a class through fn and serializes it.
func Build(thisClass ClassDesc, fn func(*ClassBuilder)) ([]byte, error) {
	b := NewClassBuilder(thisClass)
	if fn != nil {
		fn(b)
	}
	return b.Bytes()
}

// NewClassBuilder starts a class with the default file version.
func NewClassBuilder(thisClass ClassDesc) *ClassBuilder {
	return &ClassBuilder{
		major:      DefaultMajorVersion,
		thisClass:  thisClass,
		superclass: "Ljava/lang/Object;",
	}
}

func (b *ClassBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// SetVersion sets the class file version.
func (b *ClassBuilder) SetVersion(major, minor uint16) {
	b.major, b.minor = major, minor
}

// SetFlags replaces the class access flags.
func (b *ClassBuilder) SetFlags(flags AccessFlags) { b.flags = flags }

// SetThisClass replaces the class's own name.
func (b *ClassBuilder) SetThisClass(class ClassDesc) { b.thisClass = class }

// SetSuperclass replaces the superclass. An empty desc removes it, as for
// java/lang/Object and module descriptors.
func (b *ClassBuilder) SetSuperclass(class ClassDesc) { b.superclass = class }

// With accepts any class element.
func (b *ClassBuilder) With(el ClassElement) {
	if b.err != nil {
		return
	}
	switch e := el.(type) {
	case Superclass:
		b.superclass = e.Class
	case Interfaces:
		b.interfaces = append(b.interfaces, e.Classes...)
	case *FieldModel:
		b.fields = append(b.fields, e)
	case *MethodModel:
		b.methods = append(b.methods, e)
	case *Attribute:
		if err := checkSingleAttribute(b.attrs, e.Name); err != nil {
			b.fail(err)
			return
		}
		b.attrs = append(b.attrs, e)
	default:
		b.fail(fmt.Errorf("unsupported class element %T", el))
		return
	}
	b.emitted = append(b.emitted, el)
}

// WithInterface appends one implemented interface.
func (b *ClassBuilder) WithInterface(class ClassDesc) {
	b.With(Interfaces{Classes: []ClassDesc{class}})
}

// WithAttribute appends a class-level attribute.
func (b *ClassBuilder) WithAttribute(a *Attribute) { b.With(a) }

// WithField assembles a field through fn and appends it.
func (b *ClassBuilder) WithField(name string, desc ClassDesc, flags AccessFlags, fn func(*FieldBuilder)) {
	if b.err != nil {
		return
	}
	fb := &FieldBuilder{field: &FieldModel{Flags: flags, Name: name, Descriptor: string(desc)}}
	if fn != nil {
		fn(fb)
	}
	if fb.err != nil {
		b.fail(fb.err)
		return
	}
	b.With(fb.field)
}

// WithMethod assembles a method through fn and appends it.
func (b *ClassBuilder) WithMethod(name, descriptor string, flags AccessFlags, fn func(*MethodBuilder)) {
	if b.err != nil {
		return
	}
	mb := &MethodBuilder{method: &MethodModel{Flags: flags, Name: name, Descriptor: descriptor}}
	if fn != nil {
		fn(mb)
	}
	if mb.err != nil {
		b.fail(mb.err)
		return
	}
	b.With(mb.method)
}

// Err returns the first failure recorded while assembling.
func (b *ClassBuilder) Err() error { return b.err }
