// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is the JSON schema every setoption payload must satisfy,
// grounded on internal/config/validate.go's CompileString/Validate
// pattern (adapted to return an error instead of logging-and-exiting,
// since this is a library call, not a service startup path).
const Schema = `{
  "type": "object",
  "properties": {
    "cpu": {"type": "boolean"},
    "wall": {"type": "boolean"},
    "overhead": {"type": "boolean"},
    "depthlimit": {"type": "integer"},
    "verbose": {"type": "boolean"},
    "percent": {"type": "boolean"},
    "preamble": {"type": "boolean"},
    "threadsort": {"type": "boolean"},
    "multparent": {"type": "boolean"},
    "collision": {"type": "boolean"},
    "memusage": {"type": "boolean"},
    "print_method": {"type": "integer", "minimum": 0, "maximum": 3},
    "tablesize": {"type": "integer", "minimum": 1},
    "sync_mpi": {"type": "boolean"},
    "maxthreads": {"type": "integer", "minimum": 1},
    "abort_on_error": {"type": "boolean"},
    "hwcounter_events": {"type": "array", "items": {"type": "string"}}
  }
}`

// Validate compiles Schema and checks instance against it, returning an
// error rather than aborting the process — an embedded timing library
// cannot decide on its caller's behalf that a bad config.json is fatal.
func Validate(instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("gptl-config.json", Schema)
	if err != nil {
		return fmt.Errorf("gptl: config schema is invalid: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("gptl: config is not valid JSON: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("gptl: config failed validation: %w", err)
	}
	return nil
}

// Load validates raw against Schema, then unmarshals it onto Default().
func Load(raw json.RawMessage) (Config, error) {
	if err := Validate(raw); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("gptl: decoding config failed: %w", err)
	}
	return cfg, nil
}
