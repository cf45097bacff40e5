package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configFileSchema describes the optional JSON overlay. Keys mirror the
// environment variable names so one document can stand in for an env file.
const configFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "HTTP_ADDR":                 {"type": "string", "minLength": 1},
    "GRPC_ADDR":                 {"type": "string"},
    "MAX_UPLOAD_BYTES":          {"type": "integer", "minimum": 1},
    "MAX_PAGES":                 {"type": "integer", "minimum": 1},
    "WORKERS":                   {"type": "integer", "minimum": 1, "maximum": 64},
    "QUEUE_SIZE":                {"type": "integer", "minimum": 1},
    "BATCH_SIZE":                {"type": "integer", "minimum": 1, "maximum": 100},
    "JOB_TIMEOUT":               {"type": "string"},
    "JOB_RETENTION":             {"type": "string"},
    "SWEEP_INTERVAL":            {"type": "string"},
    "UPLOAD_DIR":                {"type": "string", "minLength": 1},
    "RESULTS_DIR":               {"type": "string", "minLength": 1},
    "INBOX_DIR":                 {"type": "string"},
    "PDFTOPPM":                  {"type": "string", "minLength": 1},
    "TESSERACT":                 {"type": "string", "minLength": 1},
    "TESSERACT_LANG":            {"type": "string", "minLength": 1},
    "TESSDATA_PREFIX":           {"type": "string"},
    "OCR_DPI":                   {"type": "integer", "minimum": 72, "maximum": 600},
    "OCR_PSM":                   {"type": "integer", "minimum": 0, "maximum": 13},
    "ARCHIVE_DRIVER":            {"enum": ["sqlite", "postgres"]},
    "ARCHIVE_DSN":               {"type": "string"},
    "ARCHIVE_MAX_CONNS":         {"type": "integer", "minimum": 1},
    "ARCHIVE_DIAL_TIMEOUT":      {"type": "string"},
    "ARCHIVE_STATEMENT_TIMEOUT": {"type": "string"},
    "LOG_LEVEL":                 {"enum": ["debug", "info", "warn", "error"]},
    "LOG_FORMAT":                {"enum": ["json", "text"]}
  }
}`

// LoadConfigFile reads and validates a JSON config overlay and flattens it to
// string values keyed like the environment.
func LoadConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return parseConfigFile(data)
}

func parseConfigFile(data []byte) (map[string]string, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(configFileSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out, nil
}
