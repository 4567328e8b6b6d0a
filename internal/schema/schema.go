// Package schema validates YAML documents against the embedded CUE schemas.
//
// Two definitions are exported from schema.cue: #Config for the kassa
// configuration file and #Catalog for bulk product imports. Definitions are
// closed, so unknown keys are rejected along with out-of-range values.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var source []byte

// Definition names a schema in schema.cue.
type Definition string

const (
	Config  Definition = "#Config"
	Catalog Definition = "#Catalog"
)

// ValidationError is one violation found in a document.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Errors is the list of violations of a rejected document.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "schema: " + strings.Join(msgs, "; ")
}

var (
	compileOnce sync.Once
	compiled    cue.Value
	compileErr  error
	// cue.Context is not safe for concurrent use.
	cueMu sync.Mutex
)

func load() (cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		compiled = ctx.CompileBytes(source, cue.Filename("schema.cue"))
		compileErr = compiled.Err()
	})
	return compiled, compileErr
}

// ValidateYAML parses data as YAML and checks it against def.
// An empty document is checked as an empty struct.
func ValidateYAML(def Definition, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Errors{{Message: fmt.Sprintf("parse yaml: %v", err)}}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return Validate(def, doc)
}

// Validate checks a decoded document against def.
// The document must be built from maps, slices and scalars.
func Validate(def Definition, doc any) error {
	root, err := load()
	if err != nil {
		return fmt.Errorf("schema: compile: %w", err)
	}

	cueMu.Lock()
	defer cueMu.Unlock()

	schema := root.LookupPath(cue.ParsePath(string(def)))
	if !schema.Exists() {
		return fmt.Errorf("schema: unknown definition %s", def)
	}

	v := root.Context().Encode(doc)
	if err := v.Err(); err != nil {
		return collect(err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return collect(err)
	}
	return nil
}

// collect flattens a CUE error into Errors with dotted paths.
func collect(err error) Errors {
	var out Errors
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		out = append(out, ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = Errors{{Message: err.Error()}}
	}
	return out
}
