package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cutstock/optima/internal/domain"
)

// scenarioParametersSchema encodes spec.md §6's Configuration section as
// a JSON Schema: the algorithm enum, the kerf range, and the boolean/
// array-shaped fields a scenario's parameters may carry.
const scenarioParametersSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"algorithm": {
			"type": "string",
			"enum": ["", "1D_FFD", "1D_BFD", "2D_BOTTOM_LEFT", "2D_GUILLOTINE"]
		},
		"kerf": {
			"type": "number",
			"minimum": 0,
			"maximum": 20
		},
		"minUsableWaste": {
			"type": "number",
			"minimum": 0
		},
		"allowRotation": {"type": "boolean"},
		"useWarehouseStock": {"type": "boolean"},
		"useStandardSizes": {"type": "boolean"},
		"selectedStockIds": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"additionalProperties": false
}`

var (
	scenarioParametersCompileOnce sync.Once
	scenarioParametersValidator   *jsonschema.Schema
	scenarioParametersCompileErr  error
)

func compiledScenarioParametersSchema() (*jsonschema.Schema, error) {
	scenarioParametersCompileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(scenarioParametersSchema), &doc); err != nil {
			scenarioParametersCompileErr = fmt.Errorf("config: unmarshal scenario parameters schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("scenario-parameters.json", doc); err != nil {
			scenarioParametersCompileErr = fmt.Errorf("config: add scenario parameters schema resource: %w", err)
			return
		}
		schema, err := c.Compile("scenario-parameters.json")
		if err != nil {
			scenarioParametersCompileErr = fmt.Errorf("config: compile scenario parameters schema: %w", err)
			return
		}
		scenarioParametersValidator = schema
	})
	return scenarioParametersValidator, scenarioParametersCompileErr
}

// ValidateScenarioParameters validates raw scenario-parameters JSON
// against spec.md §6's enumerated option set, catching out-of-range or
// unrecognized values at the boundary rather than deep in the packing
// code. It returns a *domain.Error with code INVALID_RANGE or
// INVALID_ALGORITHM depending on which constraint failed; any other
// schema violation surfaces as VALIDATION_ERROR.
func ValidateScenarioParameters(raw []byte) error {
	schema, err := compiledScenarioParametersSchema()
	if err != nil {
		return domain.Wrap(domain.CodeInternalError, "compile scenario parameters schema", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Wrap(domain.CodeValidationError, "scenario parameters is not valid JSON", err)
	}

	if err := schema.Validate(doc); err != nil {
		return domain.New(classifyValidationError(err), err.Error())
	}
	return nil
}

// classifyValidationError inspects a jsonschema validation error for the
// two constraints spec.md §7 calls out with their own codes; anything
// else falls back to the generic VALIDATION_ERROR code.
func classifyValidationError(err error) domain.Code {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "/algorithm"):
		return domain.CodeInvalidAlgorithm
	case strings.Contains(msg, "/kerf"), strings.Contains(msg, "/minUsableWaste"):
		return domain.CodeInvalidRange
	default:
		return domain.CodeValidationError
	}
}
