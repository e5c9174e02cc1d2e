package mei

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts an element tree to a protobuf Struct. Each element becomes
// a struct with a "tag" string, an "attrs" struct of strings, and, if the
// element has children, a "children" list.
func ToStruct(e Element) *structpb.Struct {
	attrs := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	for _, a := range e.Attrs() {
		attrs.Fields[a.Name] = structpb.NewStringValue(a.Value)
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"tag":   structpb.NewStringValue(e.Tag()),
		"attrs": structpb.NewStructValue(attrs),
	}}
	if cs := e.Children(); len(cs) != 0 {
		vs := make([]*structpb.Value, len(cs))
		for i, c := range cs {
			vs[i] = structpb.NewStructValue(ToStruct(c))
		}
		s.Fields["children"] = structpb.NewListValue(&structpb.ListValue{Values: vs})
	}
	return s
}

var jsonOptions = protojson.MarshalOptions{
	Multiline: true,
	Indent:    "  ",
}

// MarshalJSON serializes an element tree as the JSON form of its Struct.
func MarshalJSON(e Element) ([]byte, error) {
	return jsonOptions.Marshal(ToStruct(e))
}

// MarshalBinary serializes an element tree as the protobuf wire form of its
// Struct.
func MarshalBinary(e Element) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(ToStruct(e))
}
