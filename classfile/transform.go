package classfile

// Transforms rebuild class structure element by element. A transform
// receives each element of the original in order and decides what the
// builder sees: pass it through unchanged, replace it, drop it, or
// surround it with new elements. Anything the transform never touches is
// re-encoded as it was.
type (
	ClassTransform  func(*ClassBuilder, ClassElement)
	FieldTransform  func(*FieldBuilder, FieldElement)
	MethodTransform func(*MethodBuilder, MethodElement)
	CodeTransform   func(*CodeBuilder, CodeElement)
)

// The identity transforms pass every element through untouched.
var (
	AcceptAllClass  ClassTransform  = func(b *ClassBuilder, el ClassElement) { b.With(el) }
	AcceptAllField  FieldTransform  = func(b *FieldBuilder, el FieldElement) { b.With(el) }
	AcceptAllMethod MethodTransform = func(b *MethodBuilder, el MethodElement) { b.With(el) }
	AcceptAllCode   CodeTransform   = func(b *CodeBuilder, el CodeElement) { b.With(el) }
)

// AndThen composes two transforms: everything t emits is fed, element by
// element, through next. t runs against a scratch builder so its output
// can be replayed.
func (t ClassTransform) AndThen(next ClassTransform) ClassTransform {
	return func(b *ClassBuilder, el ClassElement) {
		scratch := &ClassBuilder{
			minor:      b.minor,
			major:      b.major,
			flags:      b.flags,
			thisClass:  b.thisClass,
			superclass: b.superclass,
		}
		t(scratch, el)
		if scratch.err != nil {
			b.fail(scratch.err)
			return
		}
		for _, e := range scratch.emitted {
			next(b, e)
			if b.err != nil {
				return
			}
		}
	}
}

func (t MethodTransform) AndThen(next MethodTransform) MethodTransform {
	return func(b *MethodBuilder, el MethodElement) {
		scratch := &MethodBuilder{method: &MethodModel{
			Flags:      b.method.Flags,
			Name:       b.method.Name,
			Descriptor: b.method.Descriptor,
		}}
		t(scratch, el)
		if scratch.err != nil {
			b.err = scratch.err
			return
		}
		for _, e := range scratch.emitted {
			next(b, e)
			if b.err != nil {
				return
			}
		}
	}
}

func (t FieldTransform) AndThen(next FieldTransform) FieldTransform {
	return func(b *FieldBuilder, el FieldElement) {
		scratch := &FieldBuilder{field: &FieldModel{
			Flags:      b.field.Flags,
			Name:       b.field.Name,
			Descriptor: b.field.Descriptor,
		}}
		t(scratch, el)
		if scratch.err != nil {
			b.err = scratch.err
			return
		}
		for _, e := range scratch.emitted {
			next(b, e)
			if b.err != nil {
				return
			}
		}
	}
}

func (t CodeTransform) AndThen(next CodeTransform) CodeTransform {
	return func(b *CodeBuilder, el CodeElement) {
		scratch := &CodeBuilder{maxStack: b.maxStack, maxLocals: b.maxLocals}
		t(scratch, el)
		if scratch.err != nil {
			b.fail(scratch.err)
			return
		}
		for _, e := range scratch.emitted {
			next(b, e)
			if b.err != nil {
				return
			}
		}
	}
}

// TransformingFields lifts a field transform to the class level: every
// field streams through ft, everything else passes through.
func TransformingFields(ft FieldTransform) ClassTransform {
	return func(b *ClassBuilder, el ClassElement) {
		f, ok := el.(*FieldModel)
		if !ok {
			b.With(el)
			return
		}
		b.WithField(f.Name, ClassDesc(f.Descriptor), f.Flags, func(fb *FieldBuilder) {
			if err := f.Elements(func(fe FieldElement) error {
				ft(fb, fe)
				return fb.err
			}); err != nil && fb.err == nil {
				fb.err = err
			}
		})
	}
}

// TransformingMethods lifts a method transform to the class level.
func TransformingMethods(mt MethodTransform) ClassTransform {
	return func(b *ClassBuilder, el ClassElement) {
		m, ok := el.(*MethodModel)
		if !ok {
			b.With(el)
			return
		}
		b.WithMethod(m.Name, m.Descriptor, m.Flags, func(mb *MethodBuilder) {
			if err := m.Elements(func(me MethodElement) error {
				mt(mb, me)
				return mb.err
			}); err != nil && mb.err == nil {
				mb.err = err
			}
		})
	}
}

// TransformingCode lifts a code transform to the method level: the Code
// attribute streams through ct, other method attributes pass through.
func TransformingCode(ct CodeTransform) MethodTransform {
	return func(b *MethodBuilder, el MethodElement) {
		code, ok := el.(*CodeAttribute)
		if !ok {
			b.With(el)
			return
		}
		b.WithCode(code.MaxStack, code.MaxLocals, func(cb *CodeBuilder) {
			if err := code.Elements(func(ce CodeElement) error {
				ct(cb, ce)
				return cb.err
			}); err != nil {
				cb.fail(err)
			}
		})
	}
}

// TransformingAllCode lifts a code transform straight to the class level.
func TransformingAllCode(ct CodeTransform) ClassTransform {
	return TransformingMethods(TransformingCode(ct))
}

// TransformClass streams a parsed class through a transform and
// serializes the result. The output class keeps the input's version,
// flags, and name; the transform sees every body element.
func TransformClass(m *ClassModel, t ClassTransform) ([]byte, error) {
	b := &ClassBuilder{
		minor:     m.Minor,
		major:     m.Major,
		flags:     m.Flags,
		thisClass: m.ThisClass,
	}
	if err := m.Elements(func(el ClassElement) error {
		t(b, el)
		return b.err
	}); err != nil && b.err == nil {
		b.err = err
	}
	return b.Bytes()
}
