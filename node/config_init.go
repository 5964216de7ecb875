package node

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/spacemeshos/go-researchsync/config"
)

const defaultInitPath = "config.json"

func configCommand(conf *config.Config, configPath *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Manage the agent configuration",
	}
	var (
		output string
		force  bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration with a new instance id",
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			return initConfig(output, force, *conf, c)
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", defaultInitPath, "where to write the configuration")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	c.AddCommand(initCmd)
	return c
}

// initConfig checks and writes path on the os filesystem, where config.Write
// replaces files atomically.
func initConfig(path string, force bool, conf config.Config, c *cobra.Command) error {
	exists, err := afero.Exists(afero.NewOsFs(), path)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if exists && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	if conf.Relay.InstanceID == "" {
		conf.Relay.InstanceID = config.NewInstanceID()
	}
	if err := config.Write(path, conf); err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "wrote %s for instance %s\n", path, conf.Relay.InstanceID)
	return nil
}
