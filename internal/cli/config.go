package cli

import (
	"fmt"

	"github.com/javanstorm/datadisk/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging flags, environment, datadisk.yaml,
.env and defaults, followed by any validation problems.

The output is valid datadisk.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if _, err := out.Write(data); err != nil {
				return err
			}

			if problems := config.ValidateConfig(a.cfg); len(problems) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr())
				fmt.Fprintln(cmd.ErrOrStderr(), config.FormatValidationErrors(problems))
			}
			return nil
		},
	}
}
