package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcode mnemonics. The numbering is the instruction set's own.
const (
	OpNop             = 0x00
	OpAconstNull      = 0x01
	OpIconstM1        = 0x02
	OpIconst0         = 0x03
	OpIconst1         = 0x04
	OpIconst2         = 0x05
	OpIconst3         = 0x06
	OpIconst4         = 0x07
	OpIconst5         = 0x08
	OpLconst0         = 0x09
	OpLconst1         = 0x0a
	OpFconst0         = 0x0b
	OpFconst1         = 0x0c
	OpFconst2         = 0x0d
	OpDconst0         = 0x0e
	OpDconst1         = 0x0f
	OpBipush          = 0x10
	OpSipush          = 0x11
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpIload           = 0x15
	OpLload           = 0x16
	OpFload           = 0x17
	OpDload           = 0x18
	OpAload           = 0x19
	OpIload0          = 0x1a
	OpAload0          = 0x2a
	OpAload1          = 0x2b
	OpAload2          = 0x2c
	OpAload3          = 0x2d
	OpIstore          = 0x36
	OpLstore          = 0x37
	OpFstore          = 0x38
	OpDstore          = 0x39
	OpAstore          = 0x3a
	OpPop             = 0x57
	OpDup             = 0x59
	OpSwap            = 0x5f
	OpIadd            = 0x60
	OpIinc            = 0x84
	OpIfeq            = 0x99
	OpIfne            = 0x9a
	OpGoto            = 0xa7
	OpJsr             = 0xa8
	OpRet             = 0xa9
	OpTableswitch     = 0xaa
	OpLookupswitch    = 0xab
	OpIreturn         = 0xac
	OpLreturn         = 0xad
	OpFreturn         = 0xae
	OpDreturn         = 0xaf
	OpAreturn         = 0xb0
	OpReturn          = 0xb1
	OpGetstatic       = 0xb2
	OpPutstatic       = 0xb3
	OpGetfield        = 0xb4
	OpPutfield        = 0xb5
	OpInvokevirtual   = 0xb6
	OpInvokespecial   = 0xb7
	OpInvokestatic    = 0xb8
	OpInvokeinterface = 0xb9
	OpInvokedynamic   = 0xba
	OpNew             = 0xbb
	OpNewarray        = 0xbc
	OpAnewarray       = 0xbd
	OpArraylength     = 0xbe
	OpAthrow          = 0xbf
	OpCheckcast       = 0xc0
	OpInstanceof      = 0xc1
	OpMonitorenter    = 0xc2
	OpMonitorexit     = 0xc3
	OpWide            = 0xc4
	OpMultianewarray  = 0xc5
	OpIfnull          = 0xc6
	OpIfnonnull       = 0xc7
	OpGotoW           = 0xc8
	OpJsrW            = 0xc9
)

// opWidths holds the total instruction length in bytes, opcode included.
// Zero marks an undefined opcode; -1 marks the variable length
// instructions (tableswitch, lookupswitch, wide).
var opWidths = [256]int8{}

var opcodeNames = [256]string{}

func init() {
	for op := 0x00; op <= 0x0f; op++ {
		opWidths[op] = 1
	}
	names := map[int]string{
		0x00: "nop", 0x01: "aconst_null", 0x02: "iconst_m1", 0x03: "iconst_0",
		0x04: "iconst_1", 0x05: "iconst_2", 0x06: "iconst_3", 0x07: "iconst_4",
		0x08: "iconst_5", 0x09: "lconst_0", 0x0a: "lconst_1", 0x0b: "fconst_0",
		0x0c: "fconst_1", 0x0d: "fconst_2", 0x0e: "dconst_0", 0x0f: "dconst_1",
		0x10: "bipush", 0x11: "sipush", 0x12: "ldc", 0x13: "ldc_w", 0x14: "ldc2_w",
		0x15: "iload", 0x16: "lload", 0x17: "fload", 0x18: "dload", 0x19: "aload",
		0x36: "istore", 0x37: "lstore", 0x38: "fstore", 0x39: "dstore", 0x3a: "astore",
		0x84: "iinc", 0xa7: "goto", 0xa8: "jsr", 0xa9: "ret",
		0xaa: "tableswitch", 0xab: "lookupswitch",
		0xac: "ireturn", 0xad: "lreturn", 0xae: "freturn", 0xaf: "dreturn",
		0xb0: "areturn", 0xb1: "return",
		0xb2: "getstatic", 0xb3: "putstatic", 0xb4: "getfield", 0xb5: "putfield",
		0xb6: "invokevirtual", 0xb7: "invokespecial", 0xb8: "invokestatic",
		0xb9: "invokeinterface", 0xba: "invokedynamic",
		0xbb: "new", 0xbc: "newarray", 0xbd: "anewarray", 0xbe: "arraylength",
		0xbf: "athrow", 0xc0: "checkcast", 0xc1: "instanceof",
		0xc2: "monitorenter", 0xc3: "monitorexit", 0xc4: "wide",
		0xc5: "multianewarray", 0xc6: "ifnull", 0xc7: "ifnonnull",
		0xc8: "goto_w", 0xc9: "jsr_w",
	}
	loadNames := []string{"iload", "lload", "fload", "dload", "aload"}
	for i, base := range loadNames {
		for n := 0; n < 4; n++ {
			names[0x1a+4*i+n] = fmt.Sprintf("%s_%d", base, n)
		}
	}
	storeNames := []string{"istore", "lstore", "fstore", "dstore", "astore"}
	for i, base := range storeNames {
		for n := 0; n < 4; n++ {
			names[0x3b+4*i+n] = fmt.Sprintf("%s_%d", base, n)
		}
	}
	arrayLoads := []string{"iaload", "laload", "faload", "daload", "aaload", "baload", "caload", "saload"}
	for i, n := range arrayLoads {
		names[0x2e+i] = n
	}
	arrayStores := []string{"iastore", "lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore"}
	for i, n := range arrayStores {
		names[0x4f+i] = n
	}
	stack := []string{"pop", "pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap"}
	for i, n := range stack {
		names[0x57+i] = n
	}
	arith := []string{
		"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
		"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
		"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
		"ishl", "lshl", "ishr", "lshr", "iushr", "lushr",
		"iand", "land", "ior", "lor", "ixor", "lxor",
	}
	for i, n := range arith {
		names[0x60+i] = n
	}
	conv := []string{
		"i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l", "f2d",
		"d2i", "d2l", "d2f", "i2b", "i2c", "i2s",
		"lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg",
	}
	for i, n := range conv {
		names[0x85+i] = n
	}
	branches := []string{
		"ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
		"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple",
		"if_acmpeq", "if_acmpne",
	}
	for i, n := range branches {
		names[0x99+i] = n
	}
	for op, n := range names {
		opcodeNames[op] = n
	}

	// One-byte instructions: constants through math, conversions,
	// comparisons, the plain returns, and the bare object ops.
	for op := 0x1a; op <= 0x35; op++ {
		opWidths[op] = 1
	}
	for op := 0x3b; op <= 0x83; op++ {
		opWidths[op] = 1
	}
	for op := 0x85; op <= 0x98; op++ {
		opWidths[op] = 1
	}
	for _, op := range []int{0xac, 0xad, 0xae, 0xaf, 0xb0, 0xb1, 0xbe, 0xbf, 0xc2, 0xc3} {
		opWidths[op] = 1
	}
	for _, op := range []int{0x10, 0x12, 0x15, 0x16, 0x17, 0x18, 0x19, 0x36, 0x37, 0x38, 0x39, 0x3a, 0xa9, 0xbc} {
		opWidths[op] = 2
	}
	for op := 0x99; op <= 0xa8; op++ {
		opWidths[op] = 3
	}
	for _, op := range []int{0x11, 0x13, 0x14, 0x84, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xbb, 0xbd, 0xc0, 0xc1, 0xc6, 0xc7} {
		opWidths[op] = 3
	}
	opWidths[0xc5] = 4
	for _, op := range []int{0xb9, 0xba, 0xc8, 0xc9} {
		opWidths[op] = 5
	}
	opWidths[0xaa] = -1
	opWidths[0xab] = -1
	opWidths[0xc4] = -1
}

// instructionWidth computes the byte length of the instruction starting
// at pc, including the opcode. Switch instructions depend on pc through
// their alignment padding; wide depends on the modified opcode.
func instructionWidth(code []byte, pc int) (int, error) {
	op := code[pc]
	switch w := opWidths[op]; {
	case w > 0:
		return int(w), nil
	case w == 0:
		return 0, fmt.Errorf("%w: undefined opcode %#x at pc %d", ErrMalformed, op, pc)
	}
	switch op {
	case OpWide:
		if pc+1 >= len(code) {
			return 0, fmt.Errorf("%w: truncated wide at pc %d", ErrMalformed, pc)
		}
		if code[pc+1] == OpIinc {
			return 6, nil
		}
		return 4, nil
	case OpTableswitch:
		pad := 3 - pc%4
		base := pc + 1 + pad
		if base+12 > len(code) {
			return 0, fmt.Errorf("%w: truncated tableswitch at pc %d", ErrMalformed, pc)
		}
		low := int32(binary.BigEndian.Uint32(code[base+4:]))
		high := int32(binary.BigEndian.Uint32(code[base+8:]))
		if high < low {
			return 0, fmt.Errorf("%w: tableswitch at pc %d has high %d < low %d", ErrMalformed, pc, high, low)
		}
		return 1 + pad + 12 + 4*(int(high)-int(low)+1), nil
	case OpLookupswitch:
		pad := 3 - pc%4
		base := pc + 1 + pad
		if base+8 > len(code) {
			return 0, fmt.Errorf("%w: truncated lookupswitch at pc %d", ErrMalformed, pc)
		}
		npairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if npairs < 0 {
			return 0, fmt.Errorf("%w: lookupswitch at pc %d has negative pair count", ErrMalformed, pc)
		}
		return 1 + pad + 8 + 8*int(npairs), nil
	}
	return 0, fmt.Errorf("%w: undefined opcode %#x at pc %d", ErrMalformed, op, pc)
}

// Instruction is one decoded bytecode instruction. Operands holds the
// raw bytes after the opcode; the typed accessors resolve constant pool
// operands symbolically.
type Instruction struct {
	Opcode   uint8
	PC       int
	Operands []byte

	pool ConstantPool
	code *CodeAttribute
}

func (in Instruction) Name() string {
	if n := opcodeNames[in.Opcode]; n != "" {
		return n
	}
	return fmt.Sprintf("op_%#x", in.Opcode)
}

func (in Instruction) operandU2(offset int) (uint16, error) {
	if offset+2 > len(in.Operands) {
		return 0, fmt.Errorf("%w: %s at pc %d missing operand bytes", ErrMalformed, in.Name(), in.PC)
	}
	return binary.BigEndian.Uint16(in.Operands[offset:]), nil
}

// FieldRef resolves the operand of a getfield/putfield/getstatic/putstatic.
func (in Instruction) FieldRef() (MemberRef, error) {
	index, err := in.operandU2(0)
	if err != nil {
		return MemberRef{}, err
	}
	ref, _, err := in.pool.MemberRefAt(index)
	return ref, err
}

// MethodRef resolves the operand of an invokevirtual/special/static/
// interface. The second result reports whether the reference is an
// interface method reference.
func (in Instruction) MethodRef() (MemberRef, bool, error) {
	index, err := in.operandU2(0)
	if err != nil {
		return MemberRef{}, false, err
	}
	return in.pool.MemberRefAt(index)
}

// InvokeDynamic resolves the call site of an invokedynamic.
func (in Instruction) InvokeDynamic() (DynamicConstant, error) {
	index, err := in.operandU2(0)
	if err != nil {
		return DynamicConstant{}, err
	}
	e, err := in.pool.Get(index)
	if err != nil {
		return DynamicConstant{}, err
	}
	indy, ok := e.(*ConstantInvokeDynamicInfo)
	if !ok {
		return DynamicConstant{}, fmt.Errorf("%w: index %d is a %T, want InvokeDynamic", ErrPoolIndex, index, e)
	}
	var resolve bootstrapResolver
	if in.code != nil && in.code.model != nil {
		resolve = in.code.model.bootstrapMethod
	}
	if resolve == nil {
		return DynamicConstant{}, fmt.Errorf("%w: invokedynamic at pc %d outside a class context", ErrPoolIndex, in.PC)
	}
	handle, args, err := resolve(indy.BootstrapMethodAttrIndex)
	if err != nil {
		return DynamicConstant{}, err
	}
	name, desc, err := in.pool.NameAndType(indy.NameAndTypeIndex)
	if err != nil {
		return DynamicConstant{}, err
	}
	return DynamicConstant{Bootstrap: handle, BootstrapArgs: args, Name: name, Descriptor: desc}, nil
}

// ClassOperand resolves the class operand of new/anewarray/checkcast/
// instanceof/multianewarray.
func (in Instruction) ClassOperand() (ClassDesc, error) {
	index, err := in.operandU2(0)
	if err != nil {
		return "", err
	}
	return in.pool.ClassAt(index)
}

// Constant resolves the operand of an ldc, ldc_w, or ldc2_w.
func (in Instruction) Constant() (any, error) {
	var index uint16
	if in.Opcode == OpLdc {
		if len(in.Operands) < 1 {
			return nil, fmt.Errorf("%w: ldc at pc %d missing operand", ErrMalformed, in.PC)
		}
		index = uint16(in.Operands[0])
	} else {
		var err error
		if index, err = in.operandU2(0); err != nil {
			return nil, err
		}
	}
	var resolve bootstrapResolver
	if in.code != nil && in.code.model != nil {
		resolve = in.code.model.bootstrapMethod
	}
	return in.pool.ConstantValueAt(index, resolve)
}

// CodeAttribute is the decoded form of a Code attribute. Bound code keeps
// the raw bytecode; code assembled by a CodeBuilder keeps the recorded
// operations until serialization.
type CodeAttribute struct {
	MaxStack   uint16
	MaxLocals  uint16
	Code       []byte
	Handlers   []ExceptionHandler
	Attributes []*Attribute

	ops   []codeOp
	pool  ConstantPool
	model *ClassModel
}

func decodeCode(r *reader, cp ConstantPool, model *ClassModel) (*CodeAttribute, error) {
	c := &CodeAttribute{pool: cp, model: model}
	c.MaxStack = r.readU2()
	c.MaxLocals = r.readU2()
	codeLen := int(r.readU4())
	c.Code = r.readBytes(codeLen)
	n := int(r.readU2())
	c.Handlers = make([]ExceptionHandler, 0, n)
	for i := 0; i < n; i++ {
		var h ExceptionHandler
		h.StartPC = r.readU2()
		h.EndPC = r.readU2()
		h.HandlerPC = r.readU2()
		catchType := r.readU2()
		if r.err != nil {
			return nil, r.err
		}
		if catchType != 0 {
			var err error
			if h.CatchType, err = cp.ClassAt(catchType); err != nil {
				return nil, err
			}
		}
		c.Handlers = append(c.Handlers, h)
	}
	var err error
	if c.Attributes, err = decodeAttributeList(r, cp, model); err != nil {
		return nil, err
	}
	return c, r.err
}

// FindAttribute returns the first code-level attribute with the given
// name, or nil.
func (c *CodeAttribute) FindAttribute(name string) *Attribute {
	return findAttribute(c.Attributes, name)
}

// Instructions walks the bytecode in order, calling fn once per
// instruction. Iteration stops at the first error, either from a
// malformed instruction stream or from fn itself.
func (c *CodeAttribute) Instructions(fn func(Instruction) error) error {
	if c.Code == nil && c.ops != nil {
		return fmt.Errorf("code was assembled, not parsed; it has no byte form until written")
	}
	pc := 0
	for pc < len(c.Code) {
		width, err := instructionWidth(c.Code, pc)
		if err != nil {
			return err
		}
		if pc+width > len(c.Code) {
			return fmt.Errorf("%w: instruction at pc %d overruns code", ErrMalformed, pc)
		}
		in := Instruction{
			Opcode:   c.Code[pc],
			PC:       pc,
			Operands: c.Code[pc+1 : pc+width],
			pool:     c.pool,
			code:     c,
		}
		if err := fn(in); err != nil {
			return err
		}
		pc += width
	}
	return nil
}

// Elements streams the code body as transformable elements: instructions
// first, then exception handlers, then code-level attributes.
func (c *CodeAttribute) Elements(fn func(CodeElement) error) error {
	if err := c.Instructions(func(in Instruction) error { return fn(in) }); err != nil {
		return err
	}
	for _, h := range c.Handlers {
		if err := fn(h); err != nil {
			return err
		}
	}
	for _, a := range c.Attributes {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}
