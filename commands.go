package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alepar/radoff/radoff/config"
	"github.com/alepar/radoff/radoff/index"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <metric> <value>",
	Short: "Print the index category of a reading",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return errors.Wrapf(err, "invalid value %q", args[1])
		}
		table, err := effectiveTable(cmd)
		if err != nil {
			return err
		}
		category, ok := table.Classify(args[0], value)
		if !ok {
			return errors.Errorf("metric %q has no index", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), category)
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the classification rules as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := effectiveTable(cmd)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(table)
		if err != nil {
			return errors.Wrap(err, "failed to marshal rules")
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Print(appName))
	},
}

// effectiveTable applies the config's rule overrides when --config was given.
func effectiveTable(cmd *cobra.Command) (index.Table, error) {
	if !cmd.Flags().Changed("config") {
		return index.DefaultTable(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg.Table(), nil
}
