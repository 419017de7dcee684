package config

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// scenarioSchema is the structural contract of a scenario file. The
// definition is closed, so misspelled keys are reported instead of ignored.
const scenarioSchema = `
#Scenario: {
	name?:              string
	model?:             "mm1" | "mm1k" | "mmc"
	mean_interarrival?: number & >0
	mean_service?:      number & >0
	duration?:          number & >0
	servers?:           int & >=1
	capacity?:          int & >=1
	stream?:            int & >=1 & <=15
	seed?:              int & >=1 & <=2147483646
	sample_interval?:   number & >=0
}
`

// ValidateScenarioSchema checks raw scenario YAML against the CUE schema.
// Empty documents are accepted; every field has a default.
func ValidateScenarioSchema(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	file, err := yaml.Extract("scenario.yaml", data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: schema validation failed: %v", ErrInvalidScenario, err)
	}
	return nil
}
