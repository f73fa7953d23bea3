package species

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind tags which representation a Label carries.
type Kind int

const (
	KindText Kind = iota
	KindBytes
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Label is a single model output. Classifiers may emit class names, raw
// encoded bytes or a numeric class index.
type Label struct {
	kind  Kind
	text  string
	raw   []byte
	index int64
}

func TextLabel(s string) Label {
	return Label{kind: KindText, text: s}
}

func BytesLabel(b []byte) Label {
	return Label{kind: KindBytes, raw: append([]byte(nil), b...)}
}

func IndexLabel(i int64) Label {
	return Label{kind: KindIndex, index: i}
}

func (l Label) Kind() Kind {
	return l.kind
}

// String decodes the label into text. Invalid UTF-8 in a byte label is
// dropped, not replaced.
func (l Label) String() string {
	switch l.kind {
	case KindBytes:
		return decodeIgnoringInvalid(l.raw)
	case KindIndex:
		return strconv.FormatInt(l.index, 10)
	default:
		return l.text
	}
}

func decodeIgnoringInvalid(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}
