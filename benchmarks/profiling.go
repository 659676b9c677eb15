package benchmarks

import (
	"path"

	"github.com/pkg/profile"
)

// startProfiling starts the profile requested on the command line and
// returns the function that stops it. Only one profile can run at a time,
// the CPU profile wins when both are requested.
func startProfiling() func() {
	var mode func(*profile.Profile)
	switch {
	case cpuprofile:
		mode = profile.CPUProfile
		if memprofile {
			logger.Warn("cpu and memory profiles requested, only profiling CPU")
		}
	case memprofile:
		mode = profile.MemProfile
	default:
		return func() {}
	}

	profPath := path.Join(cfg.Experiment.SavePath, "profiles")
	logger.WithField("path", profPath).Info("profiling enabled")
	p := profile.Start(mode, profile.ProfilePath(profPath), profile.Quiet, profile.NoShutdownHook)
	return p.Stop
}
