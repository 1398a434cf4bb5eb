// Package grpc is the wire boundary between a process hosting a Backend and
// HubDispatcher and everything outside it: the workItemStream that feeds a
// HubDispatcher's claimed work items to remote workers, and the
// client-service RPCs (startInstance, getInstance, raiseEvent, ...) that
// front a Backend for out-of-process callers.
//
// There is no .proto/protoc step in this tree, so the service descriptors
// below are authored by hand in the shape protoc-gen-go-grpc would
// otherwise generate, and messages are plain Go structs from
// internal/protos rather than generated proto.Message implementations. A
// JSON codec stands in for the usual protobuf wire codec so grpc-go's
// transport, flow control and streaming machinery still apply unmodified.
package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// codecName is negotiated over the grpc+<name> content-subtype so a client
// dialing with DialOption() and a server registered with this codec
// agree on how to (de)serialize every message on the wire.
const codecName = "json"

// jsonCodec implements encoding.Codec (google.golang.org/grpc/encoding) by
// marshaling messages as JSON instead of protobuf wire format.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
