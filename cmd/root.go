/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package cmd provides CLI commands for permute.
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"bennypowers.dev/permute/cmd/build"
	"bennypowers.dev/permute/cmd/lint"
	"bennypowers.dev/permute/cmd/permutations"
	"bennypowers.dev/permute/cmd/project"
	"bennypowers.dev/permute/cmd/version"
)

var rootCmd = &cobra.Command{
	Use:   "permute",
	Short: "Resolve and build design token permutations",
	Long: `permute resolves DTCG resolver documents into every permutation of their
modifiers, lints the resolved tokens, and renders them to files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return project.SetupLogging()
	},
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.CheckErr(project.BindFlags(rootCmd))

	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(lint.Cmd)
	rootCmd.AddCommand(permutations.Cmd)
	rootCmd.AddCommand(version.Cmd)
}
