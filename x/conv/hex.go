// Package conv holds tiny allocation-free byte formatting helpers for debug
// output on MCU builds.
package conv

const hexdigits = "0123456789abcdef"

// AppendHex appends the lowercase hex encoding of b to dst.
func AppendHex(dst []byte, b []byte) []byte {
	for _, v := range b {
		dst = append(dst, hexdigits[v>>4], hexdigits[v&0xF])
	}
	return dst
}
