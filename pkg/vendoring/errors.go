package vendoring

import "fmt"

// MissingDefinitionError reports a required definition that does not exist
// in any reachable version of its origin package. It is fatal at build time.
type MissingDefinitionError struct {
	Package    string
	Definition string
}

func (e *MissingDefinitionError) Error() string {
	return fmt.Sprintf("definition '%s' does not exist in any reachable version of package '%s'",
		e.Definition, e.Package)
}
