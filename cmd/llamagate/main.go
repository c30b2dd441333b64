package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "llamagate",
		Short:         "Ollama-compatible gateway in front of a single llama-server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	bindFlags(root)

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the gateway (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd(cmd)
		},
	})

	models := &cobra.Command{
		Use:   "models",
		Short: "Scan the models directory and list resolvable names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			details, _ := cmd.Flags().GetBool("details")
			return listModels(cmd.Context(), cmd.OutOrStdout(), cfg, all, details)
		},
	}
	models.Flags().Bool("all", false, "Include alias keys (short names, untagged names)")
	models.Flags().Bool("details", false, "Read GGUF metadata for each model")
	root.AddCommand(models)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "llamagate %s (ollama api %s)\n", version, cfg.APIVersion)
			return nil
		},
	})
	return root
}
