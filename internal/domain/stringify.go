package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// stringify re-serializes a JSON document the way a browser's
// JSON.stringify prints a parsed value: object keys keep their first-seen
// order (a repeated key keeps its first position and its last value),
// numbers use the shortest round-trip form without trailing ".0", and
// non-ASCII text is written unescaped. An empty indent gives compact output.
func stringify(data []byte, indent string) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errInvalidJSON
	}
	var b strings.Builder
	writeValue(&b, gjson.ParseBytes(data), indent, "")
	return b.String(), nil
}

var errInvalidJSON = errors.New("invalid JSON")

type member struct {
	key   string
	value gjson.Result
}

func writeValue(b *strings.Builder, v gjson.Result, indent, prefix string) {
	switch {
	case v.IsObject():
		writeObject(b, v, indent, prefix)
	case v.IsArray():
		writeArray(b, v.Array(), indent, prefix)
	case v.Type == gjson.String:
		writeString(b, v.Str)
	case v.Type == gjson.Number:
		b.WriteString(formatNumber(v.Num))
	case v.Type == gjson.True:
		b.WriteString("true")
	case v.Type == gjson.False:
		b.WriteString("false")
	default:
		b.WriteString("null")
	}
}

func writeObject(b *strings.Builder, v gjson.Result, indent, prefix string) {
	var members []member
	index := make(map[string]int)
	v.ForEach(func(key, value gjson.Result) bool {
		if i, ok := index[key.Str]; ok {
			members[i].value = value
			return true
		}
		index[key.Str] = len(members)
		members = append(members, member{key: key.Str, value: value})
		return true
	})

	if len(members) == 0 {
		b.WriteString("{}")
		return
	}

	inner := prefix + indent
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		if indent != "" {
			b.WriteByte('\n')
			b.WriteString(inner)
		}
		writeString(b, m.key)
		b.WriteByte(':')
		if indent != "" {
			b.WriteByte(' ')
		}
		writeValue(b, m.value, indent, inner)
	}
	if indent != "" {
		b.WriteByte('\n')
		b.WriteString(prefix)
	}
	b.WriteByte('}')
}

func writeArray(b *strings.Builder, items []gjson.Result, indent, prefix string) {
	if len(items) == 0 {
		b.WriteString("[]")
		return
	}

	inner := prefix + indent
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		if indent != "" {
			b.WriteByte('\n')
			b.WriteString(inner)
		}
		writeValue(b, item, indent, inner)
	}
	if indent != "" {
		b.WriteByte('\n')
		b.WriteString(prefix)
	}
	b.WriteByte(']')
}

func writeString(b *strings.Builder, s string) {
	const hex = "0123456789abcdef"

	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// formatNumber prints f the way JavaScript's Number#toString does.
// Non-finite values become null, as JSON has no spelling for them.
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// Shortest round-trip digits, e.g. "1.5e-07".
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	e, _ := strconv.Atoi(exp)
	k := len(digits)
	n := e + 1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	out := digits[:1]
	if k > 1 {
		out += "." + digits[1:]
	}
	if n-1 >= 0 {
		return sign + out + "e+" + strconv.Itoa(n-1)
	}
	return sign + out + "e-" + strconv.Itoa(1-n)
}
