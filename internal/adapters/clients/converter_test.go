package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestJSONConverter_Accepts(t *testing.T) {
	tests := []struct {
		mediaType string
		expected  bool
	}{
		{"application/json", true},
		{"application/problem+json", true},
		{"application/x-protobuf", false},
		{"text/plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			assert.Equal(t, tt.expected, JSONConverter{}.Accepts(tt.mediaType, &greeting{}))
		})
	}
}

func TestJSONConverter_Decode(t *testing.T) {
	var g greeting
	require.NoError(t, JSONConverter{}.Decode([]byte(`{"message":"hi"}`), &g))
	assert.Equal(t, "hi", g.Message)

	err := JSONConverter{}.Decode([]byte(`not json`), &g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding json")
}

func TestProtobufConverter_AcceptsOnlyMessages(t *testing.T) {
	conv := ProtobufConverter{}

	assert.True(t, conv.Accepts(MediaTypeProtobuf, &wrapperspb.StringValue{}))
	assert.True(t, conv.Accepts("application/protobuf", &wrapperspb.StringValue{}))
	assert.True(t, conv.Accepts(MediaTypeJSON, &wrapperspb.StringValue{}))
	assert.False(t, conv.Accepts(MediaTypeProtobuf, &greeting{}))
	assert.False(t, conv.Accepts("text/plain", &wrapperspb.StringValue{}))
}

func TestProtobufConverter_DecodeBinary(t *testing.T) {
	data, err := proto.Marshal(wrapperspb.String("binary"))
	require.NoError(t, err)

	var out wrapperspb.StringValue
	require.NoError(t, ProtobufConverter{}.Decode(data, &out))
	assert.Equal(t, "binary", out.GetValue())
}

func TestProtobufConverter_DecodeJSON(t *testing.T) {
	var out structpb.Struct
	require.NoError(t, ProtobufConverter{}.Decode([]byte(`{"name":"restcall","retries":3}`), &out))
	assert.Equal(t, "restcall", out.GetFields()["name"].GetStringValue())
	assert.InDelta(t, 3.0, out.GetFields()["retries"].GetNumberValue(), 0)
}

func TestProtobufConverter_DecodeRejectsNonMessage(t *testing.T) {
	err := ProtobufConverter{}.Decode([]byte(`{}`), &greeting{})
	require.ErrorIs(t, err, errNotProto)
}

func TestConverterOrder_ProtobufBeforeJSON(t *testing.T) {
	call := &Call[wrapperspb.StringValue]{converters: []Converter{ProtobufConverter{}, JSONConverter{}}}

	var msg wrapperspb.StringValue
	conv, err := call.converterFor("application/json", &msg)
	require.NoError(t, err)
	assert.IsType(t, ProtobufConverter{}, conv)

	plain := &Call[greeting]{converters: []Converter{ProtobufConverter{}, JSONConverter{}}}
	conv, err = plain.converterFor("application/json", &greeting{})
	require.NoError(t, err)
	assert.IsType(t, JSONConverter{}, conv)
}

func TestConverterFor_MissingContentTypeIsJSON(t *testing.T) {
	call := &Call[greeting]{converters: []Converter{ProtobufConverter{}, JSONConverter{}}}

	conv, err := call.converterFor("", &greeting{})
	require.NoError(t, err)
	assert.IsType(t, JSONConverter{}, conv)

	csvOnly := &Call[greeting]{converters: []Converter{csvConverter{}}}
	conv, err = csvOnly.converterFor("", &greeting{})
	require.NoError(t, err)
	assert.IsType(t, csvConverter{}, conv)
}

type csvConverter struct{}

func (csvConverter) Accepts(mediaType string, _ any) bool { return mediaType == "text/csv" }
func (csvConverter) Decode([]byte, any) error             { return nil }
