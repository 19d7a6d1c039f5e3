package classfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// poolKey identifies an entry for interning. Reference entries key on the
// already-interned indexes of their operands, so structurally equal
// constants always collapse to one slot.
type poolKey struct {
	tag ConstantTag
	s   string
	i1  uint16
	i2  uint16
	num uint64
}

type bootstrapEntry struct {
	handleIndex uint16
	argIndexes  []uint16
}

// PoolBuilder accumulates a constant pool for serialization. Every Add
// method interns: asking for the same constant twice returns the same
// index. Errors stick; once the builder has failed, further adds return 0
// and the error surfaces from Err.
type PoolBuilder struct {
	entries   []ConstantPoolEntry
	lookup    map[poolKey]uint16
	bootstrap []bootstrapEntry
	bsmLookup map[string]uint16
	err       error
}

func NewPoolBuilder() *PoolBuilder {
	return &PoolBuilder{
		lookup:    make(map[poolKey]uint16),
		bsmLookup: make(map[string]uint16),
	}
}

// Err returns the first failure encountered while interning.
func (b *PoolBuilder) Err() error { return b.err }

// Pool returns the accumulated entries as a read-side pool.
func (b *PoolBuilder) Pool() ConstantPool { return ConstantPool(b.entries) }

// BootstrapMethods returns the accumulated bootstrap method table, for
// synthesizing the BootstrapMethods attribute at write time.
func (b *PoolBuilder) BootstrapMethods() []bootstrapEntry { return b.bootstrap }

func (b *PoolBuilder) fail(format string, args ...any) uint16 {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return 0
}

func (b *PoolBuilder) add(key poolKey, entry ConstantPoolEntry) uint16 {
	if b.err != nil {
		return 0
	}
	if index, ok := b.lookup[key]; ok {
		return index
	}
	slots := entry.Tag().slots()
	next := len(b.entries) + 1
	if next+slots-1 > math.MaxUint16 {
		return b.fail("constant pool overflow: more than %d slots", math.MaxUint16)
	}
	b.entries = append(b.entries, entry)
	for i := 1; i < slots; i++ {
		b.entries = append(b.entries, nil)
	}
	index := uint16(next)
	b.lookup[key] = index
	return index
}

func (b *PoolBuilder) Utf8(s string) uint16 {
	return b.add(poolKey{tag: ConstantUtf8, s: s}, &ConstantUtf8Info{Value: s})
}

func (b *PoolBuilder) Integer(v int32) uint16 {
	return b.add(poolKey{tag: ConstantInteger, num: uint64(uint32(v))}, &ConstantIntegerInfo{Value: v})
}

func (b *PoolBuilder) Float(v float32) uint16 {
	return b.add(poolKey{tag: ConstantFloat, num: uint64(math.Float32bits(v))}, &ConstantFloatInfo{Value: v})
}

func (b *PoolBuilder) Long(v int64) uint16 {
	return b.add(poolKey{tag: ConstantLong, num: uint64(v)}, &ConstantLongInfo{Value: v})
}

func (b *PoolBuilder) Double(v float64) uint16 {
	return b.add(poolKey{tag: ConstantDouble, num: math.Float64bits(v)}, &ConstantDoubleInfo{Value: v})
}

func (b *PoolBuilder) String(s string) uint16 {
	i := b.Utf8(s)
	return b.add(poolKey{tag: ConstantString, i1: i}, &ConstantStringInfo{StringIndex: i})
}

// Class interns a Class entry. Array types keep their descriptor form as
// the class name; everything else uses the internal (slash) name.
func (b *PoolBuilder) Class(desc ClassDesc) uint16 {
	i := b.Utf8(desc.InternalName())
	return b.add(poolKey{tag: ConstantClass, i1: i}, &ConstantClassInfo{NameIndex: i})
}

func (b *PoolBuilder) NameAndType(name, descriptor string) uint16 {
	ni := b.Utf8(name)
	di := b.Utf8(descriptor)
	return b.add(poolKey{tag: ConstantNameAndType, i1: ni, i2: di},
		&ConstantNameAndTypeInfo{NameIndex: ni, DescriptorIndex: di})
}

func (b *PoolBuilder) FieldRef(ref MemberRef) uint16 {
	ci := b.Class(ref.Owner)
	nt := b.NameAndType(ref.Name, ref.Descriptor)
	return b.add(poolKey{tag: ConstantFieldref, i1: ci, i2: nt},
		&ConstantFieldrefInfo{ClassIndex: ci, NameAndTypeIndex: nt})
}

func (b *PoolBuilder) MethodRef(ref MemberRef, isInterface bool) uint16 {
	ci := b.Class(ref.Owner)
	nt := b.NameAndType(ref.Name, ref.Descriptor)
	if isInterface {
		return b.add(poolKey{tag: ConstantInterfaceMethodref, i1: ci, i2: nt},
			&ConstantInterfaceMethodrefInfo{ClassIndex: ci, NameAndTypeIndex: nt})
	}
	return b.add(poolKey{tag: ConstantMethodref, i1: ci, i2: nt},
		&ConstantMethodrefInfo{ClassIndex: ci, NameAndTypeIndex: nt})
}

func (b *PoolBuilder) MethodType(desc MethodTypeDesc) uint16 {
	i := b.Utf8(string(desc))
	return b.add(poolKey{tag: ConstantMethodType, i1: i}, &ConstantMethodTypeInfo{DescriptorIndex: i})
}

func (b *PoolBuilder) MethodHandle(h MethodHandle) uint16 {
	ref := MemberRef{Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}
	var ri uint16
	if h.Kind.isFieldKind() {
		ri = b.FieldRef(ref)
	} else {
		ri = b.MethodRef(ref, h.IsInterface)
	}
	return b.add(poolKey{tag: ConstantMethodHandle, i1: ri, num: uint64(h.Kind)},
		&ConstantMethodHandleInfo{ReferenceKind: h.Kind, ReferenceIndex: ri})
}

func (b *PoolBuilder) Module(name string) uint16 {
	i := b.Utf8(name)
	return b.add(poolKey{tag: ConstantModule, i1: i}, &ConstantModuleInfo{NameIndex: i})
}

func (b *PoolBuilder) Package(name string) uint16 {
	i := b.Utf8(name)
	return b.add(poolKey{tag: ConstantPackage, i1: i}, &ConstantPackageInfo{NameIndex: i})
}

// BootstrapMethod interns an entry in the class's bootstrap method table
// and returns its index within that table (not a pool index).
func (b *PoolBuilder) BootstrapMethod(handle MethodHandle, args []any) uint16 {
	hi := b.MethodHandle(handle)
	argIndexes := make([]uint16, len(args))
	for i, arg := range args {
		argIndexes[i] = b.LoadableConstant(arg)
	}
	if b.err != nil {
		return 0
	}
	var key strings.Builder
	key.WriteString(strconv.Itoa(int(hi)))
	for _, ai := range argIndexes {
		key.WriteByte(':')
		key.WriteString(strconv.Itoa(int(ai)))
	}
	k := key.String()
	if index, ok := b.bsmLookup[k]; ok {
		return index
	}
	if len(b.bootstrap) > math.MaxUint16 {
		return b.fail("bootstrap method table overflow")
	}
	index := uint16(len(b.bootstrap))
	b.bootstrap = append(b.bootstrap, bootstrapEntry{handleIndex: hi, argIndexes: argIndexes})
	b.bsmLookup[k] = index
	return index
}

func (b *PoolBuilder) dynamic(d DynamicConstant, tag ConstantTag) uint16 {
	bi := b.BootstrapMethod(d.Bootstrap, d.BootstrapArgs)
	nt := b.NameAndType(d.Name, d.Descriptor)
	var entry ConstantPoolEntry
	if tag == ConstantDynamic {
		entry = &ConstantDynamicInfo{BootstrapMethodAttrIndex: bi, NameAndTypeIndex: nt}
	} else {
		entry = &ConstantInvokeDynamicInfo{BootstrapMethodAttrIndex: bi, NameAndTypeIndex: nt}
	}
	return b.add(poolKey{tag: tag, i1: bi, i2: nt}, entry)
}

func (b *PoolBuilder) Dynamic(d DynamicConstant) uint16 {
	return b.dynamic(d, ConstantDynamic)
}

func (b *PoolBuilder) InvokeDynamic(d DynamicConstant) uint16 {
	return b.dynamic(d, ConstantInvokeDynamic)
}

// LoadableConstant interns the symbolic value of any ldc-family operand.
func (b *PoolBuilder) LoadableConstant(v any) uint16 {
	switch c := v.(type) {
	case int32:
		return b.Integer(c)
	case int64:
		return b.Long(c)
	case float32:
		return b.Float(c)
	case float64:
		return b.Double(c)
	case string:
		return b.String(c)
	case ClassDesc:
		return b.Class(c)
	case MethodTypeDesc:
		return b.MethodType(c)
	case MethodHandle:
		return b.MethodHandle(c)
	case DynamicConstant:
		return b.Dynamic(c)
	default:
		return b.fail("unsupported loadable constant type %T", v)
	}
}
