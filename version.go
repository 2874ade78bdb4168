package hostlink

import (
	"fmt"
	"runtime/debug"
)

const modulePath = "github.com/modhook/hostlink"

// Version returns the version of the module linked into the running binary,
// so a log can be matched against the build that produced it.
func Version() (string, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", fmt.Errorf("build info unavailable")
	}
	return moduleVersion(info)
}

func moduleVersion(info *debug.BuildInfo) (string, error) {
	if info.Main.Path == modulePath {
		return info.Main.Version, nil
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version, nil
		}
		return dep.Version, nil
	}
	return "", fmt.Errorf("module %s not found in build info", modulePath)
}
