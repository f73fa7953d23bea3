package diagnostics

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrNotONNX = errors.New("not an ONNX model")

// OpsetImport is one entry of ModelProto.opset_import.
type OpsetImport struct {
	Domain  string
	Version int64
}

// ONNXHeader holds the top-level ModelProto fields that identify who
// produced a model and for which runtime version.
type ONNXHeader struct {
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	Opsets          []OpsetImport
}

// ModelProto field numbers from onnx.proto.
const (
	fieldIRVersion       protowire.Number = 1
	fieldProducerName    protowire.Number = 2
	fieldProducerVersion protowire.Number = 3
	fieldDomain          protowire.Number = 4
	fieldModelVersion    protowire.Number = 5
	fieldOpsetImport     protowire.Number = 8

	fieldOpsetDomain  protowire.Number = 1
	fieldOpsetVersion protowire.Number = 2
)

// ParseONNXHeader decodes the identifying fields of a serialized ModelProto
// and skips everything else, the graph included.
func ParseONNXHeader(b []byte) (ONNXHeader, error) {
	var h ONNXHeader

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return h, fmt.Errorf("%w: %v", ErrNotONNX, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldIRVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return h, fmt.Errorf("%w: ir_version: %v", ErrNotONNX, protowire.ParseError(m))
			}
			h.IRVersion = int64(v)
			n = m
		case num == fieldModelVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return h, fmt.Errorf("%w: model_version: %v", ErrNotONNX, protowire.ParseError(m))
			}
			h.ModelVersion = int64(v)
			n = m
		case typ == protowire.BytesType && isHeaderString(num):
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return h, fmt.Errorf("%w: field %d: %v", ErrNotONNX, num, protowire.ParseError(m))
			}
			h.setString(num, string(v))
			n = m
		case num == fieldOpsetImport && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return h, fmt.Errorf("%w: opset_import: %v", ErrNotONNX, protowire.ParseError(m))
			}
			opset, err := parseOpset(v)
			if err != nil {
				return h, err
			}
			h.Opsets = append(h.Opsets, opset)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return h, fmt.Errorf("%w: field %d: %v", ErrNotONNX, num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}

	if h.IRVersion == 0 && h.ProducerName == "" {
		return h, fmt.Errorf("%w: no ir_version or producer_name", ErrNotONNX)
	}

	return h, nil
}

func isHeaderString(num protowire.Number) bool {
	return num == fieldProducerName || num == fieldProducerVersion || num == fieldDomain
}

func (h *ONNXHeader) setString(num protowire.Number, v string) {
	switch num {
	case fieldProducerName:
		h.ProducerName = v
	case fieldProducerVersion:
		h.ProducerVersion = v
	case fieldDomain:
		h.Domain = v
	}
}

func parseOpset(b []byte) (OpsetImport, error) {
	var op OpsetImport
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return op, fmt.Errorf("%w: opset_import: %v", ErrNotONNX, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldOpsetDomain && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return op, fmt.Errorf("%w: opset domain: %v", ErrNotONNX, protowire.ParseError(m))
			}
			op.Domain = string(v)
			n = m
		case num == fieldOpsetVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return op, fmt.Errorf("%w: opset version: %v", ErrNotONNX, protowire.ParseError(m))
			}
			op.Version = int64(v)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return op, fmt.Errorf("%w: opset field %d: %v", ErrNotONNX, num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return op, nil
}
