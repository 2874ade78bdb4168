package hostlink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/modhook/hostlink/internal/config"
	"github.com/modhook/hostlink/internal/scan"
	"github.com/modhook/hostlink/types"
)

// ConfigEnv overrides the configuration file location.
const ConfigEnv = "HOSTLINK_CONFIG"

// Attach runs once when the host loads the module. It loads configuration,
// opens the log, and patches the host image. Every failure is logged and
// swallowed: the host must never see the module fail to load, so Attach
// always returns true.
func Attach(module uintptr) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger := Logger()
			logger.Error().Interface("panic", rec).Msg("attach panicked")
		}
		ok = true
	}()

	var dirs []string
	if path, err := scan.ModulePath(module); err == nil {
		dirs = append(dirs, filepath.Dir(path))
	}
	exe, err := os.Executable()
	if err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	cfg, cfgErr := config.Load(os.Getenv(ConfigEnv), dirs...)
	if cfgErr != nil {
		cfg = config.Default()
	}
	logDir := os.TempDir()
	if len(dirs) > 0 {
		logDir = dirs[len(dirs)-1]
	}
	logger, closer, err := config.NewLogger(cfg.Log, logDir)
	if err == nil {
		configure(cfg, logger, closer)
	} else {
		configure(cfg, zerolog.Nop(), nil)
	}
	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("using default configuration")
	}
	version, _ := Version()
	logger.Info().Str("version", version).Uint64("module", uint64(module)).Msg("attached")

	if !cfg.Patch.Enabled {
		logger.Info().Msg("patching disabled")
		return true
	}
	img, err := scan.MainImage()
	if err != nil {
		logger.Info().Err(err).Msg("patch skipped")
		return true
	}
	if _, err := patchInstall(logger, cfg.Patch, img, scan.NativeProtector()); err != nil {
		logger.Info().Err(err).Msg("patch skipped")
	}
	return true
}

// patchInstall applies the first matching signature to img if the mod pak
// exists next to the host executable.
func patchInstall(logger zerolog.Logger, pc config.PatchConfig, img *scan.Image, prot scan.Protector) (scan.Result, error) {
	if img.Path == "" {
		return scan.Result{}, fmt.Errorf("host executable path unknown: %w", types.ErrInstallMissing)
	}
	pak := filepath.Join(filepath.Dir(img.Path), filepath.FromSlash(pc.Pak))
	if _, err := os.Stat(pak); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return scan.Result{}, fmt.Errorf("pak %s: %w", pak, types.ErrInstallMissing)
		}
		return scan.Result{}, err
	}

	sigs, err := pc.Compile()
	if err != nil {
		return scan.Result{}, err
	}
	var sum types.Checksum
	if pinned(sigs) {
		data, err := os.ReadFile(img.Path)
		if err != nil {
			return scan.Result{}, fmt.Errorf("hash host executable: %w", err)
		}
		sum = types.NewChecksum(data)
		logger.Debug().Str("checksum", sum.String()).Msg("host executable hashed")
	}
	return scan.NewPatcher(prot, logger).ApplyFirst(img, sum, sigs)
}

func pinned(sigs []scan.Signature) bool {
	for _, sig := range sigs {
		if !sig.Checksum.IsZero() {
			return true
		}
	}
	return false
}
