package classfile

const (
	Magic = 0xCAFEBABE

	// Class file versions for a few releases the library cares about.
	Java5Version  = 49
	Java8Version  = 52
	Java11Version = 55
	Java17Version = 61
	Java21Version = 65

	// DefaultMajorVersion is used by builders unless overridden.
	DefaultMajorVersion = Java17Version
)

type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000
)

func (f AccessFlags) IsPublic() bool       { return f&AccPublic != 0 }
func (f AccessFlags) IsPrivate() bool      { return f&AccPrivate != 0 }
func (f AccessFlags) IsProtected() bool    { return f&AccProtected != 0 }
func (f AccessFlags) IsStatic() bool       { return f&AccStatic != 0 }
func (f AccessFlags) IsFinal() bool        { return f&AccFinal != 0 }
func (f AccessFlags) IsSuper() bool        { return f&AccSuper != 0 }
func (f AccessFlags) IsSynchronized() bool { return f&AccSynchronized != 0 }
func (f AccessFlags) IsVolatile() bool     { return f&AccVolatile != 0 }
func (f AccessFlags) IsBridge() bool       { return f&AccBridge != 0 }
func (f AccessFlags) IsTransient() bool    { return f&AccTransient != 0 }
func (f AccessFlags) IsVarargs() bool      { return f&AccVarargs != 0 }
func (f AccessFlags) IsNative() bool       { return f&AccNative != 0 }
func (f AccessFlags) IsInterface() bool    { return f&AccInterface != 0 }
func (f AccessFlags) IsAbstract() bool     { return f&AccAbstract != 0 }
func (f AccessFlags) IsStrict() bool       { return f&AccStrict != 0 }
func (f AccessFlags) IsSynthetic() bool    { return f&AccSynthetic != 0 }
func (f AccessFlags) IsAnnotation() bool   { return f&AccAnnotation != 0 }
func (f AccessFlags) IsEnum() bool         { return f&AccEnum != 0 }
func (f AccessFlags) IsModule() bool       { return f&AccModule != 0 }

type ConstantTag uint8

const (
	ConstantUtf8               ConstantTag = 1
	ConstantInteger            ConstantTag = 3
	ConstantFloat              ConstantTag = 4
	ConstantLong               ConstantTag = 5
	ConstantDouble             ConstantTag = 6
	ConstantClass              ConstantTag = 7
	ConstantString             ConstantTag = 8
	ConstantFieldref           ConstantTag = 9
	ConstantMethodref          ConstantTag = 10
	ConstantInterfaceMethodref ConstantTag = 11
	ConstantNameAndType        ConstantTag = 12
	ConstantMethodHandle       ConstantTag = 15
	ConstantMethodType         ConstantTag = 16
	ConstantDynamic            ConstantTag = 17
	ConstantInvokeDynamic      ConstantTag = 18
	ConstantModule             ConstantTag = 19
	ConstantPackage            ConstantTag = 20
)

// slots reports how many constant pool index slots an entry of the given
// tag occupies. Long and Double take two consecutive slots.
func (t ConstantTag) slots() int {
	if t == ConstantLong || t == ConstantDouble {
		return 2
	}
	return 1
}

type MethodHandleKind uint8

const (
	RefGetField         MethodHandleKind = 1
	RefGetStatic        MethodHandleKind = 2
	RefPutField         MethodHandleKind = 3
	RefPutStatic        MethodHandleKind = 4
	RefInvokeVirtual    MethodHandleKind = 5
	RefInvokeStatic     MethodHandleKind = 6
	RefInvokeSpecial    MethodHandleKind = 7
	RefNewInvokeSpecial MethodHandleKind = 8
	RefInvokeInterface  MethodHandleKind = 9
)

// isFieldKind reports whether the handle kind refers to a field rather
// than a method, which decides how its lookup descriptor is parsed.
func (k MethodHandleKind) isFieldKind() bool {
	return k >= RefGetField && k <= RefPutStatic
}

// Attribute names as they appear in the constant pool.
const (
	AttrAnnotationDefault                    = "AnnotationDefault"
	AttrBootstrapMethods                     = "BootstrapMethods"
	AttrCode                                 = "Code"
	AttrConstantValue                        = "ConstantValue"
	AttrDeprecated                           = "Deprecated"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrExceptions                           = "Exceptions"
	AttrInnerClasses                         = "InnerClasses"
	AttrLineNumberTable                      = "LineNumberTable"
	AttrLocalVariableTable                   = "LocalVariableTable"
	AttrLocalVariableTypeTable               = "LocalVariableTypeTable"
	AttrMethodParameters                     = "MethodParameters"
	AttrModule                               = "Module"
	AttrModuleMainClass                      = "ModuleMainClass"
	AttrModulePackages                       = "ModulePackages"
	AttrNestHost                             = "NestHost"
	AttrNestMembers                          = "NestMembers"
	AttrPermittedSubclasses                  = "PermittedSubclasses"
	AttrRecord                               = "Record"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrRuntimeInvisibleTypeAnnotations      = "RuntimeInvisibleTypeAnnotations"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeVisibleTypeAnnotations        = "RuntimeVisibleTypeAnnotations"
	AttrSignature                            = "Signature"
	AttrSourceDebugExtension                 = "SourceDebugExtension"
	AttrSourceFile                           = "SourceFile"
	AttrStackMapTable                        = "StackMapTable"
	AttrSynthetic                            = "Synthetic"
)

var knownAttributes = map[string]bool{
	AttrAnnotationDefault:                    true,
	AttrBootstrapMethods:                     true,
	AttrCode:                                 true,
	AttrConstantValue:                        true,
	AttrDeprecated:                           true,
	AttrEnclosingMethod:                      true,
	AttrExceptions:                           true,
	AttrInnerClasses:                         true,
	AttrLineNumberTable:                      true,
	AttrLocalVariableTable:                   true,
	AttrLocalVariableTypeTable:               true,
	AttrMethodParameters:                     true,
	AttrModule:                               true,
	AttrModuleMainClass:                      true,
	AttrModulePackages:                       true,
	AttrNestHost:                             true,
	AttrPermittedSubclasses:                  true,
	AttrNestMembers:                          true,
	AttrRecord:                               true,
	AttrRuntimeInvisibleAnnotations:          true,
	AttrRuntimeInvisibleParameterAnnotations: true,
	AttrRuntimeInvisibleTypeAnnotations:      true,
	AttrRuntimeVisibleAnnotations:            true,
	AttrRuntimeVisibleParameterAnnotations:   true,
	AttrRuntimeVisibleTypeAnnotations:        true,
	AttrSignature:                            true,
	AttrSourceDebugExtension:                 true,
	AttrSourceFile:                           true,
	AttrStackMapTable:                        true,
	AttrSynthetic:                            true,
}

// attributeAllowsMultiple reports whether the format permits more than one
// attribute of the given name on a single owner. The debug tables may
// repeat inside one Code attribute; every other attribute the library
// knows is single-instance. Unknown attributes cannot be judged and are
// allowed to repeat.
func attributeAllowsMultiple(name string) bool {
	switch name {
	case AttrLineNumberTable, AttrLocalVariableTable, AttrLocalVariableTypeTable:
		return true
	}
	return !knownAttributes[name]
}

// Initializer method names, the only names allowed to contain '<' and '>'.
const (
	InitName      = "<init>"
	ClassInitName = "<clinit>"
)

// Stack map frame type ranges.
const (
	sameFrameEnd               = 63
	sameLocals1StackItemEnd    = 127
	reservedFrameEnd           = 246
	sameLocals1StackItemExtFT  = 247
	chopFrameStart             = 248
	chopFrameEnd               = 250
	sameFrameExtendedFT        = 251
	appendFrameStart           = 252
	appendFrameEnd             = 254
	fullFrameFT                = 255
)

// Verification type tags inside stack map frames.
const (
	VTTop               uint8 = 0
	VTInteger           uint8 = 1
	VTFloat             uint8 = 2
	VTDouble            uint8 = 3
	VTLong              uint8 = 4
	VTNull              uint8 = 5
	VTUninitializedThis uint8 = 6
	VTObject            uint8 = 7
	VTUninitialized     uint8 = 8
)
