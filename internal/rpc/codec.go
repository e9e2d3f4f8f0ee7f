package rpc

import (
	"encoding/json"
	"fmt"
)

// CodecName is registered for the "application/json" Connect content type.
const CodecName = "json"

// JSONCodec encodes plain Go messages with encoding/json. It replaces
// Connect's protojson codec, so the messages in this package need no
// generated protobuf code.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", msg, err)
	}
	return nil
}
