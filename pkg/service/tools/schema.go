package tools

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/moneta-lab/moneta/pkg/domain/types"
)

// jsonSchema is the subset of JSON Schema the tool protocol uses for input
// descriptions. The SDK schema type is round-tripped through JSON so this
// package does not depend on its internals.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
}

// toToolSpec converts a discovered tool into a model-facing tool spec
func toToolSpec(tool *mcpsdk.Tool) (gollem.ToolSpec, error) {
	spec := gollem.ToolSpec{
		Name:        tool.Name,
		Description: tool.Description,
	}

	if tool.InputSchema == nil {
		return spec, nil
	}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return spec, goerr.Wrap(err, "failed to encode tool input schema",
			goerr.T(types.ErrTagTool), goerr.V("tool", tool.Name))
	}
	var schema jsonSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return spec, goerr.Wrap(err, "failed to decode tool input schema",
			goerr.T(types.ErrTagTool), goerr.V("tool", tool.Name))
	}

	if len(schema.Properties) > 0 {
		required := make(map[string]bool, len(schema.Required))
		for _, name := range schema.Required {
			required[name] = true
		}

		spec.Parameters = make(map[string]*gollem.Parameter, len(schema.Properties))
		for name, prop := range schema.Properties {
			param := toParameter(prop)
			param.Required = required[name]
			spec.Parameters[name] = param
		}
	}

	return spec, nil
}

func toParameter(schema *jsonSchema) *gollem.Parameter {
	param := &gollem.Parameter{
		Type:        toParameterType(schema.Type),
		Description: schema.Description,
	}

	if schema.Items != nil {
		param.Items = toParameter(schema.Items)
	}
	if len(schema.Properties) > 0 {
		param.Properties = make(map[string]*gollem.Parameter, len(schema.Properties))
		for name, prop := range schema.Properties {
			param.Properties[name] = toParameter(prop)
		}
		for _, name := range schema.Required {
			if p, ok := param.Properties[name]; ok {
				p.Required = true
			}
		}
	}

	return param
}

func toParameterType(name string) gollem.ParameterType {
	switch name {
	case "integer":
		return gollem.TypeInteger
	case "number":
		return gollem.TypeNumber
	case "boolean":
		return gollem.TypeBoolean
	case "array":
		return gollem.TypeArray
	case "object":
		return gollem.TypeObject
	default:
		return gollem.TypeString
	}
}

// decodeResult interprets a tool's textual result. JSON objects pass
// through structurally, everything else is wrapped under a "result" key.
func decodeResult(text string) map[string]any {
	var asMap map[string]any
	if err := json.Unmarshal([]byte(text), &asMap); err == nil {
		return asMap
	}
	var asList []any
	if err := json.Unmarshal([]byte(text), &asList); err == nil {
		return map[string]any{"result": asList}
	}
	return map[string]any{"result": text}
}
