// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// SchemaBaseID prefixes the $id of every generated request schema.
const SchemaBaseID = "https://tutorcab.dev/schemas/"

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Phone      string   `json:"phone" jsonschema:"required"`
	Password   string   `json:"password" jsonschema:"required"`
	FullName   string   `json:"fullName" jsonschema:"required"`
	Subjects   []string `json:"subjects" jsonschema:"required"`
	City       string   `json:"city" jsonschema:"required"`
	Experience string   `json:"experience,omitempty"`
	Levels     []string `json:"levels,omitempty"`
	Format     string   `json:"format,omitempty"`
	Rate       string   `json:"rate,omitempty"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Phone    string `json:"phone" jsonschema:"required"`
	Password string `json:"password" jsonschema:"required"`
}

// StepRequest is the body of POST /onboarding/step.
type StepRequest struct {
	Step int `json:"step" jsonschema:"required"`
}

// StudentRequest is the body of POST /students.
type StudentRequest struct {
	Name    string `json:"name" jsonschema:"required"`
	Age     string `json:"age" jsonschema:"required"`
	Level   string `json:"level" jsonschema:"required"`
	Subject string `json:"subject" jsonschema:"required"`
}

// LessonRequest is the body of POST /lessons.
type LessonRequest struct {
	StudentID string `json:"studentId" jsonschema:"required"`
	Subject   string `json:"subject" jsonschema:"required"`
	Date      string `json:"date" jsonschema:"required"`
	Time      string `json:"time" jsonschema:"required"`
	Duration  string `json:"duration" jsonschema:"required"`
}

// MaterialRequest is the body of POST /materials.
type MaterialRequest struct {
	Title       string `json:"title" jsonschema:"required"`
	Subject     string `json:"subject" jsonschema:"required"`
	Description string `json:"description" jsonschema:"required"`
	Type        string `json:"type" jsonschema:"required"`
}

// requestBodies names each request body type. Schemas check shape only;
// field rules live in the auth and tutor packages.
var requestBodies = map[string]any{
	"register": &RegisterRequest{},
	"login":    &LoginRequest{},
	"step":     &StepRequest{},
	"student":  &StudentRequest{},
	"lesson":   &LessonRequest{},
	"material": &MaterialRequest{},
}

// SchemaNames lists the request schemas in a stable order.
func SchemaNames() []string {
	names := make([]string, 0, len(requestBodies))
	for name := range requestBodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateSchema reflects the JSON Schema of one request body.
func GenerateSchema(name string) ([]byte, error) {
	body, ok := requestBodies[name]
	if !ok {
		return nil, oops.Code("SCHEMA_UNKNOWN").With("schema", name).Errorf("unknown request schema %q", name)
	}
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
	}
	schema := r.Reflect(body)
	schema.ID = jsonschema.ID(SchemaBaseID + name + ".schema.json")
	schema.Title = "tutorcab " + name + " request"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_ENCODE_FAILED").With("schema", name).Wrap(err)
	}
	return data, nil
}

// validators holds one compiled schema per request body.
type validators map[string]*jschema.Schema

func compileValidators() (validators, error) {
	out := make(validators, len(requestBodies))
	c := jschema.NewCompiler()
	for _, name := range SchemaNames() {
		raw, err := GenerateSchema(name)
		if err != nil {
			return nil, err
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("schema", name).Wrap(err)
		}
		loc := name + ".json"
		if err := c.AddResource(loc, doc); err != nil {
			return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("schema", name).Wrap(err)
		}
		sch, err := c.Compile(loc)
		if err != nil {
			return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("schema", name).Wrap(err)
		}
		out[name] = sch
	}
	return out, nil
}

// decode reads the body of r, validates it against the named schema and
// unmarshals it into dst. Any failure is REQUEST_INVALID.
func (v validators) decode(w http.ResponseWriter, r *http.Request, name string, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return oops.Code("REQUEST_INVALID").With("schema", name).Wrap(err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("REQUEST_INVALID").With("schema", name).Wrap(err)
	}
	if err := v[name].Validate(inst); err != nil {
		return oops.Code("REQUEST_INVALID").With("schema", name).Wrap(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return oops.Code("REQUEST_INVALID").With("schema", name).Wrap(err)
	}
	return nil
}
