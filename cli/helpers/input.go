package helpers

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseInputs builds the workflow input from key=value pairs and an optional
// JSON object file. Values that are valid JSON scalars, objects or arrays are
// decoded; anything else is kept as a string. Pairs win over file keys.
func ParseInputs(pairs []string, inputFile string) (map[string]any, error) {
	inputs := make(map[string]any)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, NewCliError(CodeInvalidInput, fmt.Sprintf("invalid input format: %s (expected key=value)", pair))
		}
		inputs[key] = parseValue(strings.TrimSpace(value))
	}
	if inputFile == "" {
		return inputs, nil
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, NewCliError(CodeInvalidInput, fmt.Sprintf("input file %s is not valid JSON", inputFile))
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, NewCliError(CodeInvalidInput, fmt.Sprintf("input file %s must contain a JSON object", inputFile))
	}
	parsed.ForEach(func(key, value gjson.Result) bool {
		if _, exists := inputs[key.String()]; !exists {
			inputs[key.String()] = value.Value()
		}
		return true
	})
	return inputs, nil
}

func parseValue(value string) any {
	if !gjson.Valid(value) {
		return value
	}
	result := gjson.Parse(value)
	switch result.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False, gjson.JSON:
		return result.Value()
	default:
		return value
	}
}
