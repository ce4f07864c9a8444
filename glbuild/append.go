package glbuild

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

const decimalDigits = 9

// AppendFloat appends a GLSL float literal. neg replaces the minus sign and
// decimal the decimal separator, both are usually '-' and '.'.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Trim zeroes but keep one after the separator so the literal stays a float.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// appendStageName appends base followed by the stage index, i.e. "uSampler1".
func appendStageName(b []byte, base string, stage int) []byte {
	b = append(b, base...)
	return strconv.AppendInt(b, int64(stage), 10)
}

// appendUniformDecl appends "uniform typ name[arrayLen];". arrayLen<=0 declares a scalar.
func appendUniformDecl(b []byte, typename, name string, arrayLen int) []byte {
	b = append(b, "uniform "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	if arrayLen > 0 {
		b = append(b, '[')
		b = strconv.AppendInt(b, int64(arrayLen), 10)
		b = append(b, ']')
	}
	b = append(b, ";\n"...)
	return b
}

// appendAttribDecl appends a vertex input bound to a fixed slot.
func appendAttribDecl(b []byte, slot uint32, typename, name string) []byte {
	b = append(b, "layout(location = "...)
	b = strconv.AppendUint(b, uint64(slot), 10)
	b = append(b, ") in "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ";\n"...)
	return b
}

func appendInOutDecl(b []byte, qualifier, typename, prefix, name, suffix string) []byte {
	b = append(b, qualifier...)
	b = append(b, ' ')
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, prefix...)
	b = append(b, name...)
	b = append(b, suffix...)
	b = append(b, ";\n"...)
	return b
}

// appendLine appends a tab indented statement line built from parts.
func appendLine(b []byte, parts ...string) []byte {
	b = append(b, '\t')
	for _, p := range parts {
		b = append(b, p...)
	}
	return append(b, '\n')
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]

	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
