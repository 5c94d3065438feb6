// Package protoschema reads protobuf schema sources into a small definition
// model, hashes definitions over their descriptor encoding, and renders
// canonical vendored .proto files.
package protoschema

// Kind discriminates message and enum definitions.
type Kind string

const (
	KindMessage Kind = "message"
	KindEnum    Kind = "enum"
)

// File is the parsed shape of a single .proto source file.
type File struct {
	Syntax      string
	Package     string
	Imports     []string
	Definitions []*Definition
}

// Definition is a top-level or nested message/enum definition.
type Definition struct {
	Name   string
	Kind   Kind
	Fields []Field
	Values []EnumValue
	Nested []*Definition
}

// Field is a single message field. Map fields carry their full
// "map<key,value>" spelling in Type and are never marked Repeated.
type Field struct {
	Name     string
	Type     string
	Number   int
	Repeated bool
	Optional bool
}

// EnumValue is a single enum member.
type EnumValue struct {
	Name   string
	Number int
}

// DefinitionsByName indexes a file's top-level definitions.
func (f *File) DefinitionsByName() map[string]*Definition {
	out := make(map[string]*Definition, len(f.Definitions))
	for _, d := range f.Definitions {
		out[d.Name] = d
	}
	return out
}
