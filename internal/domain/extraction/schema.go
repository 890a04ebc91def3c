package extraction

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Kind]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[Kind]*jsonschema.Schema, len(Kinds))
	for _, k := range Kinds {
		name := "schemas/" + string(k) + ".json"
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			schemasErr = fmt.Errorf("read %s: %w", name, err)
			return
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			schemasErr = fmt.Errorf("add %s: %w", name, err)
			return
		}
		s, err := compiler.Compile(name)
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		compiled[k] = s
	}
	schemas = compiled
}

// schemaFor returns the compiled output schema for kind.
func schemaFor(kind Kind) (*jsonschema.Schema, error) {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for kind %q", kind)
	}
	return s, nil
}

// describeViolation reduces a validation error to its first leaf cause.
func describeViolation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}
