package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Media types understood by the built-in converters.
const (
	MediaTypeJSON     = "application/json"
	MediaTypeProtobuf = "application/x-protobuf"
)

// errNotProto is returned when a protobuf converter is asked to fill a non-message value.
var errNotProto = errors.New("target is not a proto.Message")

// Converter decodes response bodies of the media types it accepts.
type Converter interface {
	// Accepts reports whether the converter can decode mediaType into v.
	Accepts(mediaType string, v any) bool

	// Decode fills v, a non-nil pointer, from data.
	Decode(data []byte, v any) error
}

// JSONConverter decodes application/json and +json bodies with encoding/json.
type JSONConverter struct{}

// Accepts implements Converter.
func (JSONConverter) Accepts(mediaType string, _ any) bool {
	return isJSON(mediaType)
}

// Decode implements Converter.
func (JSONConverter) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}
	return nil
}

// ProtobufConverter decodes protobuf messages, binary or in protobuf JSON mapping.
// It only accepts targets that implement proto.Message, so it can sit in front
// of JSONConverter in a converter list.
type ProtobufConverter struct {
	// DiscardUnknown ignores unknown JSON fields instead of failing.
	DiscardUnknown bool
}

// Accepts implements Converter.
func (ProtobufConverter) Accepts(mediaType string, v any) bool {
	if _, ok := v.(proto.Message); !ok {
		return false
	}

	return mediaType == MediaTypeProtobuf || mediaType == "application/protobuf" || isJSON(mediaType)
}

// Decode implements Converter. Data starting with '{' is read as protobuf JSON.
func (c ProtobufConverter) Decode(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return errNotProto
	}

	if len(data) > 0 && data[0] == '{' {
		opts := protojson.UnmarshalOptions{DiscardUnknown: c.DiscardUnknown}
		if err := opts.Unmarshal(data, msg); err != nil {
			return fmt.Errorf("decoding protobuf json: %w", err)
		}
		return nil
	}

	if err := proto.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decoding protobuf: %w", err)
	}
	return nil
}

func isJSON(mediaType string) bool {
	return mediaType == MediaTypeJSON || strings.HasSuffix(mediaType, "+json")
}
