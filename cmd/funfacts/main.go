// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command funfacts serves generated fun facts over HTTP.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/z5labs/funfacts"
	"github.com/z5labs/funfacts/appbuilder"
	"github.com/z5labs/funfacts/config"

	"github.com/spf13/cobra"
)

//go:embed config.yaml
var defaultConfig []byte

func main() {
	err := newCommand().ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "funfacts",
		Short:         "Serve fun facts generated by Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := configSources(configPath)
			if err != nil {
				return err
			}

			err = funfacts.Run[Config](
				cmd.Context(),
				appbuilder.Recover[Config](appbuilder.OTel[Config](funfacts.AppBuilderFunc[Config](buildApp))),
				srcs...,
			)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML file whose values override the built in config")
	return cmd
}

// configSources layers the user file, if any, over the embedded template.
func configSources(path string) ([]config.Source, error) {
	srcs := []config.Source{
		config.FromYaml(config.RenderTextTemplate(bytes.NewReader(defaultConfig))),
	}
	if path == "" {
		return srcs, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return append(srcs, config.FromYaml(config.RenderTextTemplate(f))), nil
}
