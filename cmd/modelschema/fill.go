package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spiral/models"
)

func newFillCmd(opts *globalOptions) *cobra.Command {
	var (
		bypass bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "fill NAME JSON",
		Short: "Mass-assign a JSON object to a new entity and print the result",
		Long: `Create an entity of the named type, fill it with the given JSON object and
print its values as read through the getters.

Examples:
  modelschema fill user '{"name":"ann","admin":true}' -s entities.yaml
  modelschema fill user '{"admin":true}' -s entities.yaml --bypass`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(cmd, opts)
			if err != nil {
				return err
			}

			data := models.NewFields()
			if err := data.UnmarshalJSON([]byte(args[1])); err != nil {
				return models.NewErrorWithCause(models.ErrorTypeSerialization, "invalid JSON object", err)
			}

			entity, err := registry.New(args[0], nil)
			if err != nil {
				return err
			}

			var fillOpts []models.FillOption
			if bypass {
				fillOpts = append(fillOpts, models.BypassSecurity())
			}
			if strict {
				fillOpts = append(fillOpts, models.StrictFill())
			}
			if err := entity.Fill(data, fillOpts...); err != nil {
				return err
			}

			values, err := entity.Values()
			if err != nil {
				return err
			}
			result := models.NewFields()
			for pair := values.Oldest(); pair != nil; pair = pair.Next() {
				if accessor, ok := pair.Value.(models.Accessor); ok {
					result.Set(pair.Key, accessor.PackValue())
					continue
				}
				result.Set(pair.Key, pair.Value)
			}

			encoded, err := result.MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	cmd.Flags().BoolVar(&bypass, "bypass", false, "ignore fillable and secured rules")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on fields that may not be filled")
	return cmd
}
