package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modhook/hostlink/internal/config"
	"github.com/modhook/hostlink/internal/scan"
	"github.com/modhook/hostlink/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeExe writes a fake executable carrying the default signature at 0x30.
func writeExe(t *testing.T) (string, scan.Signature) {
	t.Helper()
	sigs, err := config.Default().Patch.Compile()
	require.NoError(t, err)
	data := make([]byte, 0x80)
	copy(data[0x30:], sigs[0].Pattern)
	path := filepath.Join(t.TempDir(), "Game.exe")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, sigs[0]
}

func TestFind(t *testing.T) {
	path, _ := writeExe(t)

	out, err := run(t, "find", path, "4C 8B B4 24")
	require.NoError(t, err)
	require.Equal(t, "0x00000030\n", out)

	out, err = run(t, "find", path, "DE AD BE EF")
	require.NoError(t, err)
	require.Equal(t, "No matches.\n", out)

	_, err = run(t, "find", path, "4")
	require.Error(t, err)
	_, err = run(t, "find", path)
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	path, sig := writeExe(t)

	out, err := run(t, "check", path)
	require.NoError(t, err)
	require.Contains(t, out, "checksum")
	require.Contains(t, out, sig.Name)
	require.Contains(t, out, "4C 8B B4 24 48 01 00 00 0F 84", "the pattern column is rendered as hex")
	require.Contains(t, out, "0x30")
	require.Contains(t, out, "ok")

	empty := filepath.Join(t.TempDir(), "empty.exe")
	require.NoError(t, os.WriteFile(empty, make([]byte, 16), 0o644))
	out, err = run(t, "check", empty)
	require.ErrorIs(t, err, types.ErrPatternNotFound)
	require.Contains(t, out, "not found")
}

func TestCheckPinnedToOtherRelease(t *testing.T) {
	path, _ := writeExe(t)
	cfgPath := filepath.Join(t.TempDir(), "hostlink.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
patch:
  signatures:
    - name: pinned
      pattern: 4C 8B B4 24
      delta: 4
      replacement: "90"
      checksum: `+types.NewChecksum([]byte("other")).String()+`
`), 0o644))

	out, err := run(t, "check", path, "--config", cfgPath)
	require.ErrorIs(t, err, types.ErrPatternNotFound)
	require.Contains(t, out, "other release")
}

func TestPatch(t *testing.T) {
	path, sig := writeExe(t)
	dst := filepath.Join(t.TempDir(), "patched.exe")

	out, err := run(t, "patch", path, dst, "-v")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, dst+": applied "+sig.Name))

	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	patched, err := os.ReadFile(dst)
	require.NoError(t, err)
	offset := 0x30 + sig.Delta
	require.Equal(t, sig.Replacement, patched[offset:offset+len(sig.Replacement)])
	require.Equal(t, orig[:offset], patched[:offset])
	require.NotEqual(t, orig, patched, "the source file is left alone")
}
