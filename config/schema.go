package config

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError describes one schema violation in a configuration
// document.
type FieldError struct {
	Field       string
	Description string
}

// String renders the violation as "field: description".
func (fe FieldError) String() string {
	return fmt.Sprintf("%s: %s", fe.Field, fe.Description)
}

// configSchema is the JSON Schema every configuration document must
// satisfy before merging. It catches typos (unknown sections are
// rejected) and type errors with field-level messages; cross-field
// rules live in Config.Validate.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "dynamic-graph configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string"},
    "graph": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "entities": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["name", "class"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "class": {"type": "string", "minLength": 1},
              "doc": {"type": "string"}
            }
          }
        },
        "plugs": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["from", "to"],
            "properties": {
              "from": {"type": "string", "pattern": "^[^.]+\\..+$"},
              "to": {"type": "string", "pattern": "^[^.]+\\..+$"}
            }
          }
        },
        "commands": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["entity", "name"],
            "properties": {
              "entity": {"type": "string", "minLength": 1},
              "name": {"type": "string", "minLength": 1},
              "args": {"type": "array", "items": {"type": "string"}}
            }
          }
        },
        "terminals": {
          "type": "array",
          "items": {"type": "string", "pattern": "^[^.]+\\..+$"}
        }
      }
    },
    "engine": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "period": {"type": ["string", "number"]},
        "max_ticks": {"type": "integer", "minimum": 0},
        "stop_on_error": {"type": "boolean"}
      }
    },
    "logger": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "verbosity": {"enum": ["none", "error", "warning", "info", "all", "debug"]},
        "time_sample": {"type": "number", "exclusiveMinimum": 0},
        "stream_print_period": {"type": "number", "exclusiveMinimum": 0}
      }
    },
    "nats": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "urls": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "name": {"type": "string"},
        "max_reconnects": {"type": "integer"},
        "reconnect_wait": {"type": ["string", "number"]},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "token": {"type": "string"}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535},
        "path": {"type": "string"}
      }
    },
    "remote": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "subject_prefix": {"type": "string"}
      }
    }
  }
}`

var (
	compiledSchema    *gojsonschema.Schema
	compiledSchemaErr error
	compileSchemaOnce sync.Once
)

func loadSchema() (*gojsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		compiledSchema, compiledSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(configSchema))
	})
	return compiledSchema, compiledSchemaErr
}

// ValidateDocument checks a parsed configuration document against the
// schema and returns every violation found. An empty slice means the
// document is valid.
func ValidateDocument(doc map[string]any) []FieldError {
	schema, err := loadSchema()
	if err != nil {
		return []FieldError{{Field: "$schema", Description: err.Error()}}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []FieldError{{Field: "(document)", Description: err.Error()}}
	}

	if result.Valid() {
		return nil
	}

	fieldErrs := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		fieldErrs = append(fieldErrs, FieldError{
			Field:       desc.Field(),
			Description: desc.Description(),
		})
	}
	return fieldErrs
}
