package classfile

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decode failure caused by byte-level
// input that does not follow the class file format.
var ErrMalformed = errors.New("malformed class file")

// ErrPoolIndex is wrapped by failures caused by a constant pool reference
// pointing at slot 0, past the end of the table, or at an entry of the
// wrong kind.
var ErrPoolIndex = errors.New("bad constant pool reference")

type ConstantPoolEntry interface {
	Tag() ConstantTag
}

type ConstantUtf8Info struct {
	Value string
}

func (c *ConstantUtf8Info) Tag() ConstantTag { return ConstantUtf8 }

type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() ConstantTag { return ConstantInteger }

type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() ConstantTag { return ConstantFloat }

type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() ConstantTag { return ConstantLong }

type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() ConstantTag { return ConstantDouble }

type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() ConstantTag { return ConstantClass }

type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() ConstantTag { return ConstantString }

type ConstantFieldrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldrefInfo) Tag() ConstantTag { return ConstantFieldref }

type ConstantMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodrefInfo) Tag() ConstantTag { return ConstantMethodref }

type ConstantInterfaceMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodrefInfo) Tag() ConstantTag { return ConstantInterfaceMethodref }

type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() ConstantTag { return ConstantNameAndType }

type ConstantMethodHandleInfo struct {
	ReferenceKind  MethodHandleKind
	ReferenceIndex uint16
}

func (c *ConstantMethodHandleInfo) Tag() ConstantTag { return ConstantMethodHandle }

type ConstantMethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodTypeInfo) Tag() ConstantTag { return ConstantMethodType }

type ConstantDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamicInfo) Tag() ConstantTag { return ConstantDynamic }

type ConstantInvokeDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamicInfo) Tag() ConstantTag { return ConstantInvokeDynamic }

type ConstantModuleInfo struct {
	NameIndex uint16
}

func (c *ConstantModuleInfo) Tag() ConstantTag { return ConstantModule }

type ConstantPackageInfo struct {
	NameIndex uint16
}

func (c *ConstantPackageInfo) Tag() ConstantTag { return ConstantPackage }

// ConstantPool is the read side of a class file's constant table. Entries
// are 1-based; slot 0 is reserved to mean "no entry" in optional references.
// Long and Double entries leave a nil hole in the slot that follows them.
type ConstantPool []ConstantPoolEntry

// Size returns the number of index slots including the unused slot 0,
// matching the constant_pool_count field of the serialized form.
func (cp ConstantPool) Size() int { return len(cp) + 1 }

// Get returns the entry at the given 1-based index. It fails for index 0,
// for indexes past the end of the table, and for the hole slot after a
// Long or Double entry.
func (cp ConstantPool) Get(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) > len(cp) {
		return nil, fmt.Errorf("%w: index %d outside [1, %d)", ErrPoolIndex, index, cp.Size())
	}
	e := cp[index-1]
	if e == nil {
		return nil, fmt.Errorf("%w: index %d is the unusable slot after a long or double", ErrPoolIndex, index)
	}
	return e, nil
}

// Utf8 resolves a Utf8 entry to its string value.
func (cp ConstantPool) Utf8(index uint16) (string, error) {
	e, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	u, ok := e.(*ConstantUtf8Info)
	if !ok {
		return "", fmt.Errorf("%w: index %d is a %T, want Utf8", ErrPoolIndex, index, e)
	}
	return u.Value, nil
}

// ClassName resolves a Class entry to its internal name (or array
// descriptor, for array classes).
func (cp ConstantPool) ClassName(index uint16) (string, error) {
	e, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	c, ok := e.(*ConstantClassInfo)
	if !ok {
		return "", fmt.Errorf("%w: index %d is a %T, want Class", ErrPoolIndex, index, e)
	}
	return cp.Utf8(c.NameIndex)
}

// ClassAt resolves a Class entry to a ClassDesc.
func (cp ConstantPool) ClassAt(index uint16) (ClassDesc, error) {
	name, err := cp.ClassName(index)
	if err != nil {
		return "", err
	}
	return ClassDescOfInternal(name), nil
}

// NameAndType resolves a NameAndType entry to its two strings.
func (cp ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	e, err := cp.Get(index)
	if err != nil {
		return "", "", err
	}
	nt, ok := e.(*ConstantNameAndTypeInfo)
	if !ok {
		return "", "", fmt.Errorf("%w: index %d is a %T, want NameAndType", ErrPoolIndex, index, e)
	}
	if name, err = cp.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = cp.Utf8(nt.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef is the symbolic form of a Fieldref, Methodref, or
// InterfaceMethodref entry.
type MemberRef struct {
	Owner      ClassDesc
	Name       string
	Descriptor string
}

// MemberRefAt resolves a Fieldref/Methodref/InterfaceMethodref entry. The
// second result reports whether the owner is an interface (true only for
// InterfaceMethodref).
func (cp ConstantPool) MemberRefAt(index uint16) (MemberRef, bool, error) {
	e, err := cp.Get(index)
	if err != nil {
		return MemberRef{}, false, err
	}
	var classIndex, natIndex uint16
	var iface bool
	switch r := e.(type) {
	case *ConstantFieldrefInfo:
		classIndex, natIndex = r.ClassIndex, r.NameAndTypeIndex
	case *ConstantMethodrefInfo:
		classIndex, natIndex = r.ClassIndex, r.NameAndTypeIndex
	case *ConstantInterfaceMethodrefInfo:
		classIndex, natIndex, iface = r.ClassIndex, r.NameAndTypeIndex, true
	default:
		return MemberRef{}, false, fmt.Errorf("%w: index %d is a %T, want a member reference", ErrPoolIndex, index, e)
	}
	owner, err := cp.ClassAt(classIndex)
	if err != nil {
		return MemberRef{}, false, err
	}
	name, desc, err := cp.NameAndType(natIndex)
	if err != nil {
		return MemberRef{}, false, err
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc}, iface, nil
}

// MethodHandle is the symbolic form of a MethodHandle entry.
type MethodHandle struct {
	Kind        MethodHandleKind
	Owner       ClassDesc
	Name        string
	Descriptor  string
	IsInterface bool
}

// MethodHandleAt resolves a MethodHandle entry.
func (cp ConstantPool) MethodHandleAt(index uint16) (MethodHandle, error) {
	e, err := cp.Get(index)
	if err != nil {
		return MethodHandle{}, err
	}
	mh, ok := e.(*ConstantMethodHandleInfo)
	if !ok {
		return MethodHandle{}, fmt.Errorf("%w: index %d is a %T, want MethodHandle", ErrPoolIndex, index, e)
	}
	ref, iface, err := cp.MemberRefAt(mh.ReferenceIndex)
	if err != nil {
		return MethodHandle{}, err
	}
	return MethodHandle{
		Kind:        mh.ReferenceKind,
		Owner:       ref.Owner,
		Name:        ref.Name,
		Descriptor:  ref.Descriptor,
		IsInterface: iface,
	}, nil
}

// MethodTypeDesc is the symbolic form of a MethodType entry: a method
// descriptor string such as "(I)V".
type MethodTypeDesc string

// DynamicConstant is the symbolic form of a Dynamic entry. Bootstrap
// arguments hold loadable constant values (the same closed set Constant
// values come from).
type DynamicConstant struct {
	Bootstrap     MethodHandle
	BootstrapArgs []any
	Name          string
	Descriptor    string
}

// bootstrapResolver resolves an index into the owning class's
// BootstrapMethods attribute. A ClassModel supplies one; detached pools
// have none and fail on dynamic entries.
type bootstrapResolver func(index uint16) (MethodHandle, []any, error)

// ConstantValueAt resolves a loadable constant pool entry (the operand set
// of the ldc family) to its symbolic value: int32, int64, float32,
// float64, string, ClassDesc, MethodTypeDesc, MethodHandle, or
// DynamicConstant.
func (cp ConstantPool) ConstantValueAt(index uint16, bsm bootstrapResolver) (any, error) {
	e, err := cp.Get(index)
	if err != nil {
		return nil, err
	}
	switch v := e.(type) {
	case *ConstantIntegerInfo:
		return v.Value, nil
	case *ConstantLongInfo:
		return v.Value, nil
	case *ConstantFloatInfo:
		return v.Value, nil
	case *ConstantDoubleInfo:
		return v.Value, nil
	case *ConstantStringInfo:
		s, err := cp.Utf8(v.StringIndex)
		if err != nil {
			return nil, err
		}
		return s, nil
	case *ConstantClassInfo:
		return cp.ClassAt(index)
	case *ConstantMethodTypeInfo:
		d, err := cp.Utf8(v.DescriptorIndex)
		if err != nil {
			return nil, err
		}
		return MethodTypeDesc(d), nil
	case *ConstantMethodHandleInfo:
		return cp.MethodHandleAt(index)
	case *ConstantDynamicInfo:
		if bsm == nil {
			return nil, fmt.Errorf("%w: dynamic constant at index %d outside a class context", ErrPoolIndex, index)
		}
		handle, args, err := bsm(v.BootstrapMethodAttrIndex)
		if err != nil {
			return nil, err
		}
		name, desc, err := cp.NameAndType(v.NameAndTypeIndex)
		if err != nil {
			return nil, err
		}
		return DynamicConstant{Bootstrap: handle, BootstrapArgs: args, Name: name, Descriptor: desc}, nil
	default:
		return nil, fmt.Errorf("%w: index %d is a %T, not a loadable constant", ErrPoolIndex, index, e)
	}
}

// ModuleName resolves a Module entry to its name.
func (cp ConstantPool) ModuleName(index uint16) (string, error) {
	e, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	m, ok := e.(*ConstantModuleInfo)
	if !ok {
		return "", fmt.Errorf("%w: index %d is a %T, want Module", ErrPoolIndex, index, e)
	}
	return cp.Utf8(m.NameIndex)
}

// PackageName resolves a Package entry to its name.
func (cp ConstantPool) PackageName(index uint16) (string, error) {
	e, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	p, ok := e.(*ConstantPackageInfo)
	if !ok {
		return "", fmt.Errorf("%w: index %d is a %T, want Package", ErrPoolIndex, index, e)
	}
	return cp.Utf8(p.NameIndex)
}
