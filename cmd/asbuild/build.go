package main

import (
	"github.com/spf13/cobra"

	"asbuild/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Build the project",
	Long:  "Build the project described by the nearest asbuild.toml, reusing the previous snapshot.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func buildExecution(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	env, err := prepareBuild(cmd, dir)
	if err != nil {
		return err
	}
	_, err = env.run(cmd.Context(), nil, "asbuild build "+env.project.Name())
	return err
}

func init() {
	config.RegisterFlags(buildCmd.Flags())
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
}
