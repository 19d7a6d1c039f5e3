package classfile

import "fmt"

// VerificationType is one entry of a stack map frame's locals or stack.
// ClassName is set only for VTObject; Offset only for VTUninitialized.
type VerificationType struct {
	Tag       uint8
	ClassName ClassDesc
	Offset    uint16
}

// encodedSize is the serialized length of the entry: object and
// uninitialized entries carry a two-byte operand after the tag.
func (v VerificationType) encodedSize() int {
	if v.Tag == VTObject || v.Tag == VTUninitialized {
		return 3
	}
	return 1
}

// StackMapFrame is one frame of a StackMapTable attribute in symbolic
// form. FrameType is preserved from the input (or chosen by the writer);
// Locals and Stack hold only what the frame type carries: the one stack
// item for same_locals_1_stack_item frames, the appended locals for
// append frames, and the full lists for full frames.
type StackMapFrame struct {
	FrameType   uint8
	OffsetDelta uint16
	Locals      []VerificationType
	Stack       []VerificationType
}

func decodeVerificationType(r *reader, cp ConstantPool) (VerificationType, error) {
	tag := r.readU1()
	v := VerificationType{Tag: tag}
	switch tag {
	case VTTop, VTInteger, VTFloat, VTDouble, VTLong, VTNull, VTUninitializedThis:
	case VTObject:
		c, err := cp.ClassAt(r.readU2())
		if err != nil {
			return v, err
		}
		v.ClassName = c
	case VTUninitialized:
		v.Offset = r.readU2()
	default:
		return v, fmt.Errorf("%w: bad verification type tag %d", ErrMalformed, tag)
	}
	return v, r.err
}

func decodeStackMapTable(r *reader, cp ConstantPool) ([]StackMapFrame, error) {
	n := int(r.readU2())
	frames := make([]StackMapFrame, 0, n)
	for i := 0; i < n; i++ {
		frameType := r.readU1()
		if r.err != nil {
			return nil, r.err
		}
		frame := StackMapFrame{FrameType: frameType}
		switch {
		case frameType <= sameFrameEnd:
			frame.OffsetDelta = uint16(frameType)
		case frameType <= sameLocals1StackItemEnd:
			frame.OffsetDelta = uint16(frameType - sameFrameEnd - 1)
			v, err := decodeVerificationType(r, cp)
			if err != nil {
				return nil, err
			}
			frame.Stack = []VerificationType{v}
		case frameType <= reservedFrameEnd:
			return nil, fmt.Errorf("%w: reserved frame type %d", ErrMalformed, frameType)
		case frameType == sameLocals1StackItemExtFT:
			frame.OffsetDelta = r.readU2()
			v, err := decodeVerificationType(r, cp)
			if err != nil {
				return nil, err
			}
			frame.Stack = []VerificationType{v}
		case frameType <= chopFrameEnd:
			frame.OffsetDelta = r.readU2()
		case frameType == sameFrameExtendedFT:
			frame.OffsetDelta = r.readU2()
		case frameType <= appendFrameEnd:
			frame.OffsetDelta = r.readU2()
			count := int(frameType - sameFrameExtendedFT)
			for j := 0; j < count; j++ {
				v, err := decodeVerificationType(r, cp)
				if err != nil {
					return nil, err
				}
				frame.Locals = append(frame.Locals, v)
			}
		default: // full frame
			frame.OffsetDelta = r.readU2()
			for j, lc := 0, int(r.readU2()); j < lc; j++ {
				v, err := decodeVerificationType(r, cp)
				if err != nil {
					return nil, err
				}
				frame.Locals = append(frame.Locals, v)
			}
			for j, sc := 0, int(r.readU2()); j < sc; j++ {
				v, err := decodeVerificationType(r, cp)
				if err != nil {
					return nil, err
				}
				frame.Stack = append(frame.Stack, v)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// encodedSize is the serialized length of the frame including its type
// byte.
func (f StackMapFrame) encodedSize() int {
	size := 1
	switch {
	case f.FrameType <= sameFrameEnd:
	case f.FrameType <= sameLocals1StackItemEnd:
		for _, v := range f.Stack {
			size += v.encodedSize()
		}
	case f.FrameType == sameLocals1StackItemExtFT:
		size += 2
		for _, v := range f.Stack {
			size += v.encodedSize()
		}
	case f.FrameType >= chopFrameStart && f.FrameType <= chopFrameEnd:
		size += 2
	case f.FrameType == sameFrameExtendedFT:
		size += 2
	case f.FrameType >= appendFrameStart && f.FrameType <= appendFrameEnd:
		size += 2
		for _, v := range f.Locals {
			size += v.encodedSize()
		}
	case f.FrameType == fullFrameFT:
		size += 6
		for _, v := range f.Locals {
			size += v.encodedSize()
		}
		for _, v := range f.Stack {
			size += v.encodedSize()
		}
	}
	return size
}
