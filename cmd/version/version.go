/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package version provides the version command for permute.
package version

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bennypowers.dev/permute/internal/version"
	"bennypowers.dev/permute/schema"
)

// Cmd prints version and build information.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		return write(cmd.OutOrStdout(), version.Read(), format)
	},
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func write(w io.Writer, info version.Info, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "text":
		_, err := fmt.Fprintf(w, "permute %s\n", info)
		return err
	default:
		return schema.NewError(schema.ErrConfiguration, "unknown format %q", format).
			WithSuggestions([]string{"text", "json"})
	}
}
