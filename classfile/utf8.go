package classfile

import "fmt"

// The class file format stores strings in "modified UTF-8": NUL is encoded
// as the two-byte sequence C0 80 and supplementary characters as a pair of
// three-byte-encoded UTF-16 surrogates. Byte 0x00 and the four-byte form
// of standard UTF-8 never appear.

func decodeModifiedUtf8(bytes []byte) (string, error) {
	runes := make([]rune, 0, len(bytes))
	i := 0
	for i < len(bytes) {
		b := bytes[i]
		switch {
		case b == 0:
			return "", fmt.Errorf("%w: raw NUL byte in modified UTF-8 at offset %d", ErrMalformed, i)
		case b&0x80 == 0:
			runes = append(runes, rune(b))
			i++
		case b&0xE0 == 0xC0:
			if i+1 >= len(bytes) || bytes[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: malformed two-byte sequence at offset %d", ErrMalformed, i)
			}
			runes = append(runes, rune(b&0x1F)<<6|rune(bytes[i+1]&0x3F))
			i += 2
		case b&0xF0 == 0xE0:
			if i+2 >= len(bytes) || bytes[i+1]&0xC0 != 0x80 || bytes[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: malformed three-byte sequence at offset %d", ErrMalformed, i)
			}
			r := rune(b&0x0F)<<12 | rune(bytes[i+1]&0x3F)<<6 | rune(bytes[i+2]&0x3F)
			if r >= 0xDC00 && r <= 0xDFFF {
				return "", fmt.Errorf("%w: low surrogate without a high surrogate at offset %d", ErrMalformed, i)
			}
			if r >= 0xD800 && r <= 0xDBFF {
				if i+5 >= len(bytes) || bytes[i+3]&0xF0 != 0xE0 || bytes[i+4]&0xC0 != 0x80 || bytes[i+5]&0xC0 != 0x80 {
					return "", fmt.Errorf("%w: high surrogate without a low surrogate at offset %d", ErrMalformed, i)
				}
				low := rune(bytes[i+3]&0x0F)<<12 | rune(bytes[i+4]&0x3F)<<6 | rune(bytes[i+5]&0x3F)
				if low < 0xDC00 || low > 0xDFFF {
					return "", fmt.Errorf("%w: high surrogate without a low surrogate at offset %d", ErrMalformed, i)
				}
				runes = append(runes, 0x10000+(r-0xD800)<<10+(low-0xDC00))
				i += 6
				continue
			}
			runes = append(runes, r)
			i += 3
		default:
			return "", fmt.Errorf("%w: invalid modified UTF-8 byte %#02x at offset %d", ErrMalformed, b, i)
		}
	}
	return string(runes), nil
}

func encodeModifiedUtf8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			out = append(out, 0xE0|byte(r>>12), 0x80|byte(r>>6&0x3F), 0x80|byte(r&0x3F))
		default:
			r -= 0x10000
			high := 0xD800 + (r >> 10)
			low := 0xDC00 + (r & 0x3FF)
			out = append(out,
				0xE0|byte(high>>12), 0x80|byte(high>>6&0x3F), 0x80|byte(high&0x3F),
				0xE0|byte(low>>12), 0x80|byte(low>>6&0x3F), 0x80|byte(low&0x3F))
		}
	}
	return out
}
