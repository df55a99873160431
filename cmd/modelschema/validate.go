package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Compile every declared schema",
		Long: `Load every source and compile each declared entity.

Reports unknown parents, inheritance cycles, unknown traits and unresolved
mutator references.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			registry, err := loadRegistry(cmd, opts)
			if err != nil {
				fmt.Fprintf(out, "  %s Declarations loaded\n", crossMark)
				return err
			}
			fmt.Fprintf(out, "  %s Declarations loaded (%d entities)\n", checkMark, len(registry.Names()))

			if err := registry.Validate(); err != nil {
				fmt.Fprintf(out, "  %s Schemas compile\n", crossMark)
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(out, "  %s Schemas compile\n", checkMark)
			return nil
		},
	}
}
