package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"

	"github.com/shubham1172/durabletask-go/internal/protos"
)

func TestJsonCodec_RegisteredUnderName(t *testing.T) {
	c := encoding.GetCodec(codecName)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestJsonCodec_MarshalUnmarshalRoundTrip(t *testing.T) {
	c := jsonCodec{}
	in := &protos.CreateInstanceRequest{Name: "MyOrchestration", InstanceId: "abc-123"}

	data, err := c.Marshal(in)
	require.NoError(t, err)

	var out protos.CreateInstanceRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.InstanceId, out.InstanceId)
}

func TestJsonCodec_UnmarshalEmptyIsNoop(t *testing.T) {
	c := jsonCodec{}
	var out protos.CreateInstanceRequest
	require.NoError(t, c.Unmarshal(nil, &out))
	assert.Equal(t, "", out.Name)
}
