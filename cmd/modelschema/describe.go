package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spiral/models"
	"gopkg.in/yaml.v3"
)

func newDescribeCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe [names...]",
		Short: "Print compiled schemas",
		Long: `Print the compiled schema of each named entity, or of every loaded entity
when no names are given.

Examples:
  modelschema describe -s entities.yaml
  modelschema describe user admin -s entities.yaml --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(cmd, opts)
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = registry.Names()
			}

			descriptions := make([]models.SchemaDescription, 0, len(names))
			for _, name := range names {
				desc, err := registry.Describe(name)
				if err != nil {
					return err
				}
				descriptions = append(descriptions, desc)
			}

			return writeDescriptions(cmd, descriptions, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")
	return cmd
}

func writeDescriptions(cmd *cobra.Command, descriptions []models.SchemaDescription, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(descriptions)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(descriptions)
	}
	return fmt.Errorf("unsupported format: %s", format)
}
