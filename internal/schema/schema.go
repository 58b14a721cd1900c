// Package schema validates persisted document payloads against the
// embedded CUE wire-format definition.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

// ValidationError is a single schema violation with source position
// when the CUE evaluator provides one.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all violations found in one document.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "document invalid"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

var (
	compileOnce sync.Once
	compiledCtx *cue.Context
	documentDef cue.Value
	compileErr  error
)

// compiled returns the #Document definition, compiling the embedded
// schema on first use. The schema is part of the build; a compile
// failure is a programming error surfaced to every caller.
func compiled() (*cue.Context, cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			compileErr = fmt.Errorf("compiling embedded schema: %w", err)
			return
		}
		def := v.LookupPath(cue.ParsePath("#Document"))
		if err := def.Err(); err != nil {
			compileErr = fmt.Errorf("looking up #Document: %w", err)
			return
		}
		compiledCtx = ctx
		documentDef = def
	})
	return compiledCtx, documentDef, compileErr
}

// ValidateDocument checks a JSON document payload against #Document.
// Returns nil when the payload conforms, ValidationErrors otherwise.
// All violations are collected, not just the first.
func ValidateDocument(payload []byte) error {
	ctx, def, err := compiled()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("document.json", payload)
	if err != nil {
		return ValidationErrors{{
			Field:   "document",
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Line:    lineOf(err),
		}}
	}

	data := ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return ValidationErrors{{
			Field:   "document",
			Message: err.Error(),
			Line:    lineOf(err),
		}}
	}

	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return collectErrors(err)
	}
	return nil
}

// collectErrors flattens a CUE error list into positioned violations.
func collectErrors(err error) ValidationErrors {
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			Field:   pathOf(e),
			Message: e.Error(),
		}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			ve.Line = lineOfPos(positions[0])
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "document", Message: err.Error()})
	}
	return out
}

func pathOf(e cueerrors.Error) string {
	path := e.Path()
	if len(path) == 0 {
		return "document"
	}
	field := path[0]
	for _, p := range path[1:] {
		field += "." + p
	}
	return field
}

func lineOf(err error) int {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return 0
	}
	if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
		return lineOfPos(positions[0])
	}
	return 0
}

func lineOfPos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
