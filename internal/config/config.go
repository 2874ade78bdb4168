// Package config provides YAML configuration for the injected module: log
// output, versioned patch signatures, and the mod list reported to the host.
package config

import (
	"fmt"

	"github.com/modhook/hostlink/internal/scan"
	"github.com/modhook/hostlink/types"
)

// FileName is the configuration file looked up next to the module and the
// host executable.
const FileName = "hostlink.yaml"

// Config is the complete module configuration.
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Patch PatchConfig `yaml:"patch"`
	// SingletonClass is the class path of the object events are resolved
	// against, e.g. "/Script/Engine.GameInstance".
	SingletonClass string `yaml:"singleton_class"`
	Mods           []Mod  `yaml:"mods"`
}

// LogConfig controls the log file written next to the host executable.
type LogConfig struct {
	Level   string `yaml:"level"`   // zerolog level name
	File    string `yaml:"file"`    // relative to the log directory; empty disables file output
	Console bool   `yaml:"console"` // also write human readable output to stderr
}

// PatchConfig lists the signatures tried at attach time, newest release first.
type PatchConfig struct {
	Enabled bool `yaml:"enabled"`
	// Pak is the mod pak the patch makes the host load, relative to the
	// directory of the host executable. The patch is skipped if it is missing.
	Pak        string            `yaml:"pak"`
	Signatures []SignatureConfig `yaml:"signatures"`
}

// SignatureConfig is the YAML form of scan.Signature.
type SignatureConfig struct {
	Name        string         `yaml:"name"`
	Pattern     string         `yaml:"pattern"`
	Delta       int            `yaml:"delta"`
	Replacement string         `yaml:"replacement"`
	Checksum    types.Checksum `yaml:"checksum,omitempty"`
}

// Mod describes one installed mod.
type Mod struct {
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version" json:"version"`
	URL      string `yaml:"url" json:"url,omitempty"`
	Required bool   `yaml:"required" json:"required"`
}

// Compile parses the hex strings of every configured signature.
func (c PatchConfig) Compile() ([]scan.Signature, error) {
	sigs := make([]scan.Signature, 0, len(c.Signatures))
	for _, sc := range c.Signatures {
		pattern, err := scan.ParseHex(sc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signature %q pattern: %w", sc.Name, err)
		}
		replacement, err := scan.ParseHex(sc.Replacement)
		if err != nil {
			return nil, fmt.Errorf("signature %q replacement: %w", sc.Name, err)
		}
		sig := scan.Signature{
			Name:        sc.Name,
			Pattern:     pattern,
			Delta:       sc.Delta,
			Replacement: replacement,
			Checksum:    sc.Checksum,
		}
		if err := sig.Validate(); err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}
