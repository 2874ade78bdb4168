// sigscan inspects and patches host executables offline, using the same
// signatures the injected module applies at attach time.
//
// Usage:
//
//	sigscan find <file> <pattern>   - List every offset where pattern occurs
//	sigscan check <file>            - Report which configured signature applies
//	sigscan patch <file> <out>      - Write a patched copy of file to out
//
// Global flags:
//
//	--config <path>  - Signature configuration (default: embedded)
//	--verbose        - Log every signature decision to stderr
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/modhook/hostlink/internal/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sigscan",
		Short: "Find and apply byte signatures in host executables",
		Long: `sigscan runs the module's signature scanner against executables on disk.

Examples:
  sigscan find Game.exe "4C 8B B4 24 48 01 00 00 0F 84"
  sigscan check Game.exe --config hostlink.yaml
  sigscan patch Game.exe Game-patched.exe`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a hostlink.yaml (default: embedded signatures)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log signature decisions to stderr")

	root.AddCommand(findCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(patchCmd())
	return root
}

func loadConfig() (config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	if !flagVerbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}).
		With().
		Timestamp().
		Logger()
}
