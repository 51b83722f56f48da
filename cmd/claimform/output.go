package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// outputFmt defines the rendering format for CLI results.
type outputFmt string

const (
	outputFmtJSON outputFmt = "json"
	outputFmtYAML outputFmt = "yaml"
)

// globalOutputFormat is set by the root command's --output flag.
var globalOutputFormat = outputFmtJSON

// setOutputFormat sets the global output format.
func setOutputFormat(format string) {
	switch format {
	case "yaml":
		globalOutputFormat = outputFmtYAML
	default:
		globalOutputFormat = outputFmtJSON
	}
}

// output writes data to stdout in the configured format.
func output(data any) error {
	return outputTo(os.Stdout, globalOutputFormat, data)
}

// outputTo writes data to the given writer in the specified format.
func outputTo(w io.Writer, format outputFmt, data any) error {
	switch format {
	case outputFmtJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case outputFmtYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
