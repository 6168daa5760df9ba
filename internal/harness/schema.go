package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed scenario.cue
var schemaSource string

const schemaDefinition = "#Scenario"

// checkSchema unifies the YAML document with the embedded schema and
// returns every violation. A document that is not valid YAML yields a
// single error.
func checkSchema(filename string, data []byte) ([]ValidationError, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("scenario.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile scenario schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath(schemaDefinition)).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cueViolations(err), nil
	}
	return nil, nil
}

// cueViolations flattens a CUE error list into validation errors.
func cueViolations(err error) []ValidationError {
	var out []ValidationError
	seen := make(map[string]bool)
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Field:   schemaField(e.Path()),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchemaViolation,
		}
		for _, pos := range errors.Positions(e) {
			if pos.Filename() != "scenario.cue" && pos.Line() > 0 {
				ve.Line = pos.Line()
				break
			}
		}
		key := ve.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ve)
	}
	return out
}

func schemaField(path []string) string {
	if len(path) > 0 && path[0] == schemaDefinition {
		path = path[1:]
	}
	if len(path) == 0 {
		return "scenario"
	}
	return strings.Join(path, ".")
}
