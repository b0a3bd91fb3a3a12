// Package schema validates request payloads against the JSON schemas
// embedded under json/.  Schemas are compiled once at start-up; a schema that
// fails to compile stops the process.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	Listing = "listing"
	Contact = "contact"
)

//go:embed json/*.json
var files embed.FS

var compiled = map[string]*jsonschema.Schema{}

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(files, "json", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		f, err := files.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := compiler.AddResource(p, f); err != nil {
			return fmt.Errorf("add %s: %w", p, err)
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		log.Fatalf("schema: load resources: %v", err)
	}
	for _, p := range paths {
		s, err := compiler.Compile(p)
		if err != nil {
			log.Fatalf("schema: compile %s: %v", p, err)
		}
		compiled[strings.TrimSuffix(path.Base(p), ".json")] = s
	}
}

// FieldError is one violated constraint.  Field is the dotted path of the
// offending value; it is empty for object-level errors such as a missing
// required property.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one document.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks v (any JSON-marshalable value) against the named schema.
// It returns *ValidationError when the document is well formed but breaks
// the schema.
func Validate(name string, v any) error {
	s, ok := compiled[name]
	if !ok {
		return fmt.Errorf("schema %q not found", name)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	err = s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	out := &ValidationError{}
	collect(ve, out)
	sort.SliceStable(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

// collect keeps the leaves of the cause tree; inner nodes only repeat
// "doesn't validate with ..." wrappers.
func collect(ve *jsonschema.ValidationError, out *ValidationError) {
	if len(ve.Causes) == 0 {
		field := strings.ReplaceAll(strings.TrimPrefix(ve.InstanceLocation, "/"), "/", ".")
		out.Fields = append(out.Fields, FieldError{Field: field, Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		collect(c, out)
	}
}
