// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config merges layered configuration sources into a typed struct.
//
// Each [Source] writes its key value pairs into a shared [Store]. [Read]
// applies sources in order so later sources override earlier ones, and
// [Manager.Unmarshal] decodes the result into a struct using the "config"
// struct tag:
//
//	m, err := config.Read(
//	    config.FromYaml(config.RenderTextTemplate(bytes.NewReader(defaults))),
//	    config.FromYaml(userFile),
//	)
//	if err != nil {
//	    return err
//	}
//	var cfg Config
//	err = m.Unmarshal(&cfg)
//
// Templates rendered by [RenderTextTemplate] can read the environment with
// the env and default funcs.
package config
