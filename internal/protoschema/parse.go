package protoschema

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/emicklei/proto"
)

// ParseFile parses a .proto source file from disk.
func ParseFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proto file '%s': %w", path, err)
	}
	defer file.Close()

	return Parse(file, path)
}

// Parse parses .proto source from r. The name is used in error messages only.
func Parse(r io.Reader, name string) (*File, error) {
	parser := proto.NewParser(r)
	parser.Filename(name)

	parsed, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse proto source '%s': %w", name, err)
	}

	f := &File{}
	for _, el := range parsed.Elements {
		switch v := el.(type) {
		case *proto.Syntax:
			f.Syntax = v.Value
		case *proto.Package:
			f.Package = v.Name
		case *proto.Import:
			f.Imports = append(f.Imports, v.Filename)
		case *proto.Message:
			f.Definitions = append(f.Definitions, messageDefinition(v))
		case *proto.Enum:
			f.Definitions = append(f.Definitions, enumDefinition(v))
		}
	}

	sort.Slice(f.Definitions, func(i, j int) bool {
		return f.Definitions[i].Name < f.Definitions[j].Name
	})

	return f, nil
}

func messageDefinition(m *proto.Message) *Definition {
	d := &Definition{Name: m.Name, Kind: KindMessage}

	for _, el := range m.Elements {
		switch v := el.(type) {
		case *proto.NormalField:
			d.Fields = append(d.Fields, Field{
				Name:     v.Name,
				Type:     v.Type,
				Number:   v.Sequence,
				Repeated: v.Repeated,
				Optional: v.Optional,
			})
		case *proto.MapField:
			d.Fields = append(d.Fields, Field{
				Name:   v.Name,
				Type:   fmt.Sprintf("map<%s,%s>", v.KeyType, v.Type),
				Number: v.Sequence,
			})
		case *proto.Oneof:
			// Oneof members encode on the wire like ordinary fields; the
			// grouping is not wire-significant, so they are flattened.
			for _, oel := range v.Elements {
				if of, ok := oel.(*proto.OneOfField); ok {
					d.Fields = append(d.Fields, Field{
						Name:   of.Name,
						Type:   of.Type,
						Number: of.Sequence,
					})
				}
			}
		case *proto.Message:
			d.Nested = append(d.Nested, messageDefinition(v))
		case *proto.Enum:
			d.Nested = append(d.Nested, enumDefinition(v))
		}
	}

	canonicalize(d)
	return d
}

func enumDefinition(e *proto.Enum) *Definition {
	d := &Definition{Name: e.Name, Kind: KindEnum}

	for _, el := range e.Elements {
		if v, ok := el.(*proto.EnumField); ok {
			d.Values = append(d.Values, EnumValue{Name: v.Name, Number: v.Integer})
		}
	}

	canonicalize(d)
	return d
}

// canonicalize orders fields by number, enum values by number then name, and
// nested definitions by name, so that parsing, hashing and rendering are
// insensitive to source ordering.
func canonicalize(d *Definition) {
	sort.Slice(d.Fields, func(i, j int) bool {
		return d.Fields[i].Number < d.Fields[j].Number
	})
	sort.Slice(d.Values, func(i, j int) bool {
		if d.Values[i].Number != d.Values[j].Number {
			return d.Values[i].Number < d.Values[j].Number
		}
		return d.Values[i].Name < d.Values[j].Name
	})
	sort.Slice(d.Nested, func(i, j int) bool {
		return d.Nested[i].Name < d.Nested[j].Name
	})
}
