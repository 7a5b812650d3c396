// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads GPTL_-prefixed variables from a .env file at path using
// joho/godotenv, then overlays any that are set onto cfg. The teacher's
// go.mod lists godotenv as a direct dependency but
// internal/runtimeEnv/setup.go never calls it, hand-rolling its own
// process-environment handling instead; this is the call site that
// actually exercises the library.
func LoadEnv(cfg *Config, path string) error {
	if err := godotenv.Load(path); err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("GPTL_WALL"); ok {
		cfg.Wall = parseBool(v, cfg.Wall)
	}
	if v, ok := os.LookupEnv("GPTL_CPU"); ok {
		cfg.CPU = parseBool(v, cfg.CPU)
	}
	if v, ok := os.LookupEnv("GPTL_VERBOSE"); ok {
		cfg.Verbose = parseBool(v, cfg.Verbose)
	}
	if v, ok := os.LookupEnv("GPTL_DEPTHLIMIT"); ok {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.DepthLimit = int32(n)
		}
	}
	if v, ok := os.LookupEnv("GPTL_TABLESIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TableSize = n
		}
	}
	if v, ok := os.LookupEnv("GPTL_MAXTHREADS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxThreads = n
		}
	}
	if v, ok := os.LookupEnv("GPTL_ABORT_ON_ERROR"); ok {
		cfg.AbortOnError = parseBool(v, cfg.AbortOnError)
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
