package kvrpc

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype the KV service is spoken in.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals messages as JSON. A *json.RawMessage target receives
// the payload untouched, which lets callers decide for themselves whether a
// reply is well formed.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if raw, ok := v.(*json.RawMessage); ok {
		return *raw, nil
	}
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if raw, ok := v.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decoding json message")
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }
