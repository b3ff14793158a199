package cache

import (
	"fmt"
	"strings"
)

// SlotExt is appended to every encoded slot name.
const SlotExt = ".json"

const hexDigits = "0123456789ABCDEF"

func isPlain(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// SlotName maps a cache key to a storage object name. Every byte outside
// [A-Za-z0-9] becomes %XX, so the mapping is injective and the result is
// a valid file name on every platform. It is never a hash:
//
//	SlotName("monet:page:1") == "monet%3Apage%3A1.json"
func SlotName(key string) string {
	var b strings.Builder
	b.Grow(len(key) + len(SlotExt))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isPlain(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	b.WriteString(SlotExt)
	return b.String()
}

// KeyFromSlot reverses SlotName. Names that SlotName cannot produce are
// rejected.
func KeyFromSlot(name string) (string, error) {
	enc, ok := strings.CutSuffix(name, SlotExt)
	if !ok {
		return "", fmt.Errorf("cache: slot %q lacks %s suffix", name, SlotExt)
	}
	out := make([]byte, 0, len(enc))
	for i := 0; i < len(enc); i++ {
		c := enc[i]
		switch {
		case isPlain(c):
			out = append(out, c)
		case c == '%' && i+2 < len(enc):
			hi, lo := unhex(enc[i+1]), unhex(enc[i+2])
			if hi < 0 || lo < 0 {
				return "", fmt.Errorf("cache: slot %q has bad escape at %d", name, i)
			}
			v := byte(hi<<4 | lo)
			if isPlain(v) {
				return "", fmt.Errorf("cache: slot %q escapes a plain byte at %d", name, i)
			}
			out = append(out, v)
			i += 2
		default:
			return "", fmt.Errorf("cache: slot %q has invalid byte at %d", name, i)
		}
	}
	return string(out), nil
}

// unhex accepts only the upper-case digits SlotName emits.
func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
