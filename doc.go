// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package funfacts runs a web service which asks a generative model for
// fun facts about a subject and reports every request to Google Cloud
// Observability.
//
// [Run] reads layered config sources into a config type, hands it to an
// [AppBuilder] and runs the resulting [App]:
//
//	err := funfacts.Run(
//	    ctx,
//	    appbuilder.Recover(appbuilder.OTel(builder)),
//	    config.FromYaml(config.RenderTextTemplate(bytes.NewReader(defaults))),
//	)
//
// The telemetry pipeline lives in package telemetry, the model client in
// package generate and the request handler in package facts.
package funfacts
