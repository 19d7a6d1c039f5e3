package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// reader walks a byte slice with a sticky error: after the first
// out-of-bounds read every further read returns zero values, and the
// error surfaces once at a checkpoint.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(n int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.pos, len(r.data)-r.pos)
	}
}

func (r *reader) readU1() uint8 {
	if r.err != nil {
		return 0
	}
	if r.pos+1 > len(r.data) {
		r.fail(1)
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) readU2() uint16 {
	if r.err != nil {
		return 0
	}
	if r.pos+2 > len(r.data) {
		r.fail(2)
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) readU4() uint32 {
	if r.err != nil {
		return 0
	}
	if r.pos+4 > len(r.data) {
		r.fail(4)
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// readBytes returns a view of the next n bytes. The result is never nil
// on success, even for n == 0.
func (r *reader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail(n)
		return nil
	}
	v := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return v
}

// Parse reads a class file. The header, constant pool, and member tables
// are decoded eagerly; attribute payloads are kept raw and decode on
// first access through Attribute.Parsed.
func Parse(data []byte) (*ClassModel, error) {
	r := &reader{data: data}
	if magic := r.readU4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrMalformed, magic)
	}
	m := &ClassModel{}
	m.Minor = r.readU2()
	m.Major = r.readU2()
	if r.err == nil && m.Major < 45 {
		return nil, fmt.Errorf("%w: class file version %d.%d predates the format", ErrMalformed, m.Major, m.Minor)
	}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}
	m.pool = pool

	m.Flags = AccessFlags(r.readU2())
	thisClass := r.readU2()
	superClass := r.readU2()
	interfaceCount := int(r.readU2())
	interfaces := make([]uint16, 0, interfaceCount)
	for i := 0; i < interfaceCount; i++ {
		interfaces = append(interfaces, r.readU2())
	}
	if r.err != nil {
		return nil, r.err
	}
	if m.ThisClass, err = pool.ClassAt(thisClass); err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}
	if superClass != 0 {
		if m.Superclass, err = pool.ClassAt(superClass); err != nil {
			return nil, fmt.Errorf("resolving super_class: %w", err)
		}
	}
	for _, index := range interfaces {
		iface, err := pool.ClassAt(index)
		if err != nil {
			return nil, fmt.Errorf("resolving interface: %w", err)
		}
		m.Interfaces = append(m.Interfaces, iface)
	}

	fieldCount := int(r.readU2())
	for i := 0; i < fieldCount; i++ {
		f := &FieldModel{Flags: AccessFlags(r.readU2())}
		nameIndex := r.readU2()
		descIndex := r.readU2()
		if f.Attributes, err = decodeAttributeList(r, pool, m); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		if f.Name, err = pool.Utf8(nameIndex); err != nil {
			return nil, fmt.Errorf("field %d name: %w", i, err)
		}
		if f.Descriptor, err = pool.Utf8(descIndex); err != nil {
			return nil, fmt.Errorf("field %d descriptor: %w", i, err)
		}
		m.Fields = append(m.Fields, f)
	}

	methodCount := int(r.readU2())
	for i := 0; i < methodCount; i++ {
		method := &MethodModel{Flags: AccessFlags(r.readU2())}
		nameIndex := r.readU2()
		descIndex := r.readU2()
		if method.Attributes, err = decodeAttributeList(r, pool, m); err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		if method.Name, err = pool.Utf8(nameIndex); err != nil {
			return nil, fmt.Errorf("method %d name: %w", i, err)
		}
		if method.Descriptor, err = pool.Utf8(descIndex); err != nil {
			return nil, fmt.Errorf("method %d descriptor: %w", i, err)
		}
		m.Methods = append(m.Methods, method)
	}

	if m.Attributes, err = decodeAttributeList(r, pool, m); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after class body", ErrMalformed, len(data)-r.pos)
	}
	return m, nil
}

func parseConstantPool(r *reader) (ConstantPool, error) {
	count := int(r.readU2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: constant pool count is zero", ErrMalformed)
	}
	pool := make(ConstantPool, count-1)
	for index := 1; index < count; index++ {
		tag := ConstantTag(r.readU1())
		var entry ConstantPoolEntry
		switch tag {
		case ConstantUtf8:
			length := int(r.readU2())
			raw := r.readBytes(length)
			if r.err != nil {
				return nil, r.err
			}
			s, err := decodeModifiedUtf8(raw)
			if err != nil {
				return nil, fmt.Errorf("constant pool entry %d: %w", index, err)
			}
			entry = &ConstantUtf8Info{Value: s}
		case ConstantInteger:
			entry = &ConstantIntegerInfo{Value: int32(r.readU4())}
		case ConstantFloat:
			entry = &ConstantFloatInfo{Value: math.Float32frombits(r.readU4())}
		case ConstantLong:
			hi := uint64(r.readU4())
			lo := uint64(r.readU4())
			entry = &ConstantLongInfo{Value: int64(hi<<32 | lo)}
		case ConstantDouble:
			hi := uint64(r.readU4())
			lo := uint64(r.readU4())
			entry = &ConstantDoubleInfo{Value: math.Float64frombits(hi<<32 | lo)}
		case ConstantClass:
			entry = &ConstantClassInfo{NameIndex: r.readU2()}
		case ConstantString:
			entry = &ConstantStringInfo{StringIndex: r.readU2()}
		case ConstantFieldref:
			entry = &ConstantFieldrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
		case ConstantMethodref:
			entry = &ConstantMethodrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
		case ConstantInterfaceMethodref:
			entry = &ConstantInterfaceMethodrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
		case ConstantNameAndType:
			entry = &ConstantNameAndTypeInfo{NameIndex: r.readU2(), DescriptorIndex: r.readU2()}
		case ConstantMethodHandle:
			kind := MethodHandleKind(r.readU1())
			if r.err == nil && (kind < RefGetField || kind > RefInvokeInterface) {
				return nil, fmt.Errorf("%w: constant pool entry %d has method handle kind %d", ErrMalformed, index, kind)
			}
			entry = &ConstantMethodHandleInfo{ReferenceKind: kind, ReferenceIndex: r.readU2()}
		case ConstantMethodType:
			entry = &ConstantMethodTypeInfo{DescriptorIndex: r.readU2()}
		case ConstantDynamic:
			entry = &ConstantDynamicInfo{BootstrapMethodAttrIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
		case ConstantInvokeDynamic:
			entry = &ConstantInvokeDynamicInfo{BootstrapMethodAttrIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
		case ConstantModule:
			entry = &ConstantModuleInfo{NameIndex: r.readU2()}
		case ConstantPackage:
			entry = &ConstantPackageInfo{NameIndex: r.readU2()}
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: constant pool entry %d has tag %d", ErrMalformed, index, tag)
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[index-1] = entry
		if tag.slots() == 2 {
			index++
			if index >= count {
				return nil, fmt.Errorf("%w: long or double entry at index %d overruns the pool", ErrMalformed, index-1)
			}
		}
	}
	return pool, nil
}
