// Package rpccodec registers a JSON encoding.Codec for gRPC under the
// content-subtype "oraclejson". The retrieval pack carries no protoc
// toolchain or generated .pb.go stubs, so the oracle's service methods
// exchange plain Go structs marshaled as JSON instead of protobuf wire
// bytes — the transport, interceptor chain, and health service are all
// still real gRPC (api/grpc/server, api/grpc/middleware), only the
// message encoding differs from what protoc-gen-go-grpc would emit.
package rpccodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the content-subtype gRPC negotiates for this codec
// ("application/grpc+oraclejson").
const Name = "oraclejson"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpccodec: unmarshal: %w", err)
	}
	return nil
}

func (codec) Name() string { return Name }

func init() {
	encoding.RegisterCodec(codec{})
}
