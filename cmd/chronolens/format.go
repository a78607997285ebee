package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

func (f OutputFormat) validate() (OutputFormat, error) {
	switch f {
	case FormatJSON, FormatYAML, FormatHuman:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", f)
	}
}

// humanFormatter is implemented by responses with a human-readable form.
type humanFormatter interface {
	formatHuman(b *strings.Builder)
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML formats the response as YAML
func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	h, ok := resp.(humanFormatter)
	if !ok {
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
	var b strings.Builder
	h.formatHuman(&b)
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// printResponse writes resp to w in the --format format.
func printResponse(w io.Writer, resp interface{}) error {
	output, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	if output == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, output)
	return err
}
