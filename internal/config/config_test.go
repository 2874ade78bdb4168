package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modhook/hostlink/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.Patch.Enabled)
	require.Equal(t, "/Script/Engine.GameInstance", cfg.SingletonClass)
	require.Equal(t, "info", cfg.Log.Level)
	require.NotEmpty(t, cfg.Patch.Pak)

	sigs, err := cfg.Patch.Compile()
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	require.Equal(t, 29, sigs[0].Delta)
	require.Equal(t, []byte{0xB8, 0x01, 0x00, 0x00, 0x00}, sigs[0].Replacement)
	require.True(t, sigs[0].Checksum.IsZero())
}

func TestLoadSearchOrder(t *testing.T) {
	empty := t.TempDir()
	withFile := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(withFile, FileName), []byte(`
singleton_class: /Script/Game.MyInstance
mods:
  - name: Better Lights
    version: 1.2.0
    required: true
`), 0o644))

	cfg, err := Load("", empty, "", withFile)
	require.NoError(t, err)
	require.Equal(t, "/Script/Game.MyInstance", cfg.SingletonClass)
	require.Equal(t, []Mod{{Name: "Better Lights", Version: "1.2.0", Required: true}}, cfg.Mods)
	assert.True(t, cfg.Patch.Enabled, "unset keys keep their defaults")

	cfg, err = Load("", empty)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadCustomPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("patch: [unclosed"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
}

func TestLoadInvalidFileInSearchDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("log: 3: 4"), 0o644))
	_, err := Load("", dir)
	require.Error(t, err)
}

func TestCompileSignatures(t *testing.T) {
	sum := types.NewChecksum([]byte("exe"))
	pc := PatchConfig{Signatures: []SignatureConfig{
		{Name: "a", Pattern: "01 02", Delta: 3, Replacement: "90", Checksum: sum},
	}}
	sigs, err := pc.Compile()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, sigs[0].Pattern)
	require.Equal(t, sum, sigs[0].Checksum)

	for _, bad := range []SignatureConfig{
		{Name: "pattern", Pattern: "0", Replacement: "90"},
		{Name: "replacement", Pattern: "01", Replacement: "zz"},
		{Name: "empty", Pattern: "", Replacement: "90"},
	} {
		_, err := PatchConfig{Signatures: []SignatureConfig{bad}}.Compile()
		require.Error(t, err, bad.Name)
	}
}

func TestModJSON(t *testing.T) {
	bz, err := json.Marshal(Mod{Name: "x", Version: "1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"x","version":"1","required":false}`, string(bz))
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := NewLogger(LogConfig{Level: "DEBUG", File: "out.log"}, dir)
	require.NoError(t, err)
	logger.Debug().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "out.log"))
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "debug", line["level"])
	require.Equal(t, "hostlink", line["module"])

	_, _, err = NewLogger(LogConfig{Level: "loud"}, dir)
	require.Error(t, err)

	logger, closer, err = NewLogger(LogConfig{}, dir)
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	logger.Info().Msg("discarded")
}
