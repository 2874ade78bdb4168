package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modhook/hostlink/internal/scan"
	"github.com/modhook/hostlink/types"
)

func findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <file> <pattern>",
		Short: "List every file offset where a hex pattern occurs",
		Args:  cobra.ExactArgs(2),
		RunE:  runFind,
	}
}

func runFind(cmd *cobra.Command, args []string) error {
	pattern, err := scan.ParseHex(args[1])
	if err != nil {
		return err
	}
	if len(pattern) == 0 {
		return errors.New("empty pattern")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	matches := scan.FindAll(data, pattern)
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "0x%08x\n", m)
	}
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report which configured signature applies to an executable",
		Long: `Hashes the executable and tries every configured signature against it
without writing anything.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sigs, err := cfg.Patch.Compile()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	sum := types.NewChecksum(data)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "checksum  %s\n\n", sum)
	fmt.Fprintf(out, "  %-24s  %-32s  %-12s  %s\n", "Signature", "Pattern", "Match", "Status")
	fmt.Fprintf(out, "  %-24s  %-32s  %-12s  %s\n", "---------", "-------", "-----", "------")
	applicable := 0
	for _, sig := range sigs {
		match, status := "-", "not found"
		switch m, ok := scan.Find(data, sig.Pattern); {
		case !sig.Checksum.IsZero() && sig.Checksum != sum:
			status = "other release"
		case !ok:
		case m+sig.Delta+len(sig.Replacement) > len(data):
			match, status = fmt.Sprintf("0x%x", m), "out of range"
		default:
			match, status = fmt.Sprintf("0x%x", m), "ok"
			applicable++
		}
		fmt.Fprintf(out, "  %-24s  %-32s  %-12s  %s\n", sig.Name, scan.FormatHex(sig.Pattern), match, status)
	}
	if applicable == 0 {
		return fmt.Errorf("%s: %w", args[0], types.ErrPatternNotFound)
	}
	return nil
}

func patchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patch <file> <out>",
		Short: "Write a patched copy of an executable",
		Args:  cobra.ExactArgs(2),
		RunE:  runPatch,
	}
}

func runPatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sigs, err := cfg.Patch.Compile()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	sum := types.NewChecksum(data)

	img := &scan.Image{Mem: data, Path: args[0]}
	res, err := scan.NewPatcher(scan.NopProtector{}, newLogger(cmd)).ApplyFirst(img, sum, sigs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], img.Mem, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: applied %s at 0x%x\n", args[1], res.Signature, res.Offset)
	return nil
}
