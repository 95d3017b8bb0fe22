package normalize

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// uriReserved are the characters whose escapes DecodeURI leaves intact.
const uriReserved = ";/?:@&=+$,#"

// uriUnescaped are the characters EncodeURI never escapes.
const uriUnescaped = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" +
	"-_.!~*'()" + uriReserved

var errMalformedURI = errors.New("malformed percent-encoding")

// DecodeURI decodes percent-encoded UTF-8 sequences the way labels and
// column names are encoded at rest: escapes of reserved characters stay
// encoded. Malformed input is returned unchanged.
func DecodeURI(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}
	out, err := decodeURI(s)
	if err != nil {
		return s
	}
	return out
}

func decodeURI(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '%' {
			b.WriteByte(s[i])
			i++
			continue
		}
		c, ok := unhex(s, i)
		if !ok {
			return "", errMalformedURI
		}
		if c < utf8.RuneSelf {
			if strings.IndexByte(uriReserved, c) >= 0 {
				b.WriteString(s[i : i+3])
			} else {
				b.WriteByte(c)
			}
			i += 3
			continue
		}

		n := sequenceLen(c)
		if n == 0 {
			return "", errMalformedURI
		}
		seq := []byte{c}
		j := i + 3
		for k := 1; k < n; k++ {
			cc, ok := unhex(s, j)
			if !ok || cc&0xC0 != 0x80 {
				return "", errMalformedURI
			}
			seq = append(seq, cc)
			j += 3
		}
		if !utf8.Valid(seq) {
			return "", errMalformedURI
		}
		b.Write(seq)
		i = j
	}
	return b.String(), nil
}

// EncodeURI percent-encodes every byte outside the URI unreserved and
// reserved sets. It is the inverse of DecodeURI for well-formed text.
func EncodeURI(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(uriUnescaped, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

func unhex(s string, i int) (byte, bool) {
	if i+2 >= len(s) || s[i] != '%' {
		return 0, false
	}
	hi, ok1 := fromHex(s[i+1])
	lo, ok2 := fromHex(s[i+2])
	if !ok1 || !ok2 {
		return 0, false
	}
	return hi<<4 | lo, true
}

func fromHex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func sequenceLen(lead byte) int {
	switch {
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	}
	return 0
}
