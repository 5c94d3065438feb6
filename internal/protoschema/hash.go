package protoschema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// HashPrefix identifies the hash algorithm in stored content hashes.
const HashPrefix = "sha256:"

var scalarTypes = map[string]descriptorpb.FieldDescriptorProto_Type{
	"double":   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	"float":    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	"int32":    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	"int64":    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"uint32":   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	"uint64":   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	"sint32":   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	"sint64":   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
	"fixed32":  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	"fixed64":  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	"sfixed32": descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	"sfixed64": descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	"bool":     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"string":   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"bytes":    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
}

// Hash computes the content hash of a definition over its deterministic
// descriptor encoding. Only wire-significant shape contributes: names,
// field numbers, types and labels. Comments and formatting never do.
func Hash(def *Definition) (string, error) {
	var msg gproto.Message
	switch def.Kind {
	case KindMessage:
		msg = messageDescriptor(def)
	case KindEnum:
		msg = enumDescriptor(def)
	default:
		return "", fmt.Errorf("unknown definition kind '%s' for %s", def.Kind, def.Name)
	}

	raw, err := gproto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode descriptor for %s: %w", def.Name, err)
	}

	sum := sha256.Sum256(raw)
	return HashPrefix + hex.EncodeToString(sum[:]), nil
}

func messageDescriptor(def *Definition) *descriptorpb.DescriptorProto {
	desc := &descriptorpb.DescriptorProto{Name: gproto.String(def.Name)}

	for _, f := range def.Fields {
		fd := &descriptorpb.FieldDescriptorProto{
			Name:   gproto.String(f.Name),
			Number: gproto.Int32(int32(f.Number)),
		}

		label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
		if f.Repeated || strings.HasPrefix(f.Type, "map<") {
			label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
		}
		fd.Label = label.Enum()

		if t, ok := scalarTypes[f.Type]; ok {
			fd.Type = t.Enum()
		} else {
			// Named and map types are hashed by their spelled-out type name.
			// Both sides of any comparison go through this same lowering, so
			// the encoding only has to be deterministic, not resolved.
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
			fd.TypeName = gproto.String(f.Type)
		}

		desc.Field = append(desc.Field, fd)
	}

	for _, n := range def.Nested {
		switch n.Kind {
		case KindEnum:
			desc.EnumType = append(desc.EnumType, enumDescriptor(n))
		default:
			desc.NestedType = append(desc.NestedType, messageDescriptor(n))
		}
	}

	return desc
}

func enumDescriptor(def *Definition) *descriptorpb.EnumDescriptorProto {
	desc := &descriptorpb.EnumDescriptorProto{Name: gproto.String(def.Name)}
	for _, v := range def.Values {
		desc.Value = append(desc.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   gproto.String(v.Name),
			Number: gproto.Int32(int32(v.Number)),
		})
	}
	return desc
}
