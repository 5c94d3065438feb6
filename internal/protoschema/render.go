package protoschema

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// RenderInput describes one vendored .proto file. The output is fully
// determined by the input, so re-running a resolution reproduces the same
// bytes.
type RenderInput struct {
	Package       string
	OriginPackage string
	OriginVersion string
	OriginRef     string
	Definitions   []*Definition
}

//go:embed vendored.proto.tpl
var vendoredTmpl string

// Render emits a canonical vendored .proto file. Parsing the output yields
// definitions whose hashes equal those of the input definitions.
func Render(in RenderInput) ([]byte, error) {
	funcs := template.FuncMap{
		"render": renderDefinition,
	}
	tmpl := template.Must(template.New("vendored").Funcs(funcs).Parse(vendoredTmpl))

	buffer := new(bytes.Buffer)
	if err := tmpl.Execute(buffer, in); err != nil {
		return nil, fmt.Errorf("failed to render vendored proto for %s: %w", in.OriginPackage, err)
	}
	return buffer.Bytes(), nil
}

func renderDefinition(def *Definition) string {
	var b strings.Builder
	writeDefinition(&b, def, 0)
	return b.String()
}

func writeDefinition(b *strings.Builder, def *Definition, depth int) {
	indent := strings.Repeat("  ", depth)

	if def.Kind == KindEnum {
		fmt.Fprintf(b, "%senum %s {\n", indent, def.Name)
		for _, v := range def.Values {
			fmt.Fprintf(b, "%s  %s = %d;\n", indent, v.Name, v.Number)
		}
		fmt.Fprintf(b, "%s}\n", indent)
		return
	}

	fmt.Fprintf(b, "%smessage %s {\n", indent, def.Name)
	for _, n := range def.Nested {
		writeDefinition(b, n, depth+1)
		b.WriteString("\n")
	}
	for _, f := range def.Fields {
		fmt.Fprintf(b, "%s  %s%s %s = %d;\n", indent, fieldLabel(f), f.Type, f.Name, f.Number)
	}
	fmt.Fprintf(b, "%s}\n", indent)
}

func fieldLabel(f Field) string {
	if f.Repeated {
		return "repeated "
	}
	if f.Optional {
		return "optional "
	}
	return ""
}
