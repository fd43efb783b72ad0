package config

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile config schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
		if !schemaDef.Exists() {
			schemaErr = fmt.Errorf("config schema has no #Config definition")
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// validateSchema unifies c with #Config and requires a concrete result.
// cue.Context is not safe for concurrent use, so validation is serialized.
func validateSchema(c *Config) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}
