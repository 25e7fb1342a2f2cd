package telemetry

import (
	"context"
	"errors"
	"os"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerOptions configures continuous profiling of the running service.
type ProfilerOptions struct {
	Enabled         bool
	ServerAddress   string // e.g. "http://pyroscope:4040"
	ApplicationName string
}

// Profiler pushes pprof profiles to a Pyroscope server. A Profiler built
// from disabled options does nothing.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
}

// profileTypes covers CPU, heap and goroutines. Mutex and block profiles
// need runtime sampling rates and are left off.
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// StartProfiler starts pushing profiles when opts.Enabled is set.
func StartProfiler(opts ProfilerOptions, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !opts.Enabled {
		return p, nil
	}
	if opts.ServerAddress == "" || opts.ApplicationName == "" {
		return nil, errors.New("profiling needs a server address and an application name")
	}

	tags := map[string]string{}
	if host, err := os.Hostname(); err == nil {
		tags["hostname"] = host
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.ApplicationName,
		ServerAddress:   opts.ServerAddress,
		Logger:          pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:            tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return nil, err
	}
	p.profiler = profiler
	logger.Info("Continuous profiling started", zap.String("server_address", opts.ServerAddress))
	return p, nil
}

// Enabled reports whether profiles are being pushed.
func (p *Profiler) Enabled() bool { return p.profiler != nil }

// Stop flushes the last profiles. It is safe to call on a disabled Profiler.
func (p *Profiler) Stop() error {
	if p.profiler == nil {
		return nil
	}
	err := p.profiler.Stop()
	p.profiler = nil
	return err
}

// Profile runs fn with the projection stage attached as a pprof label, so
// CPU samples can be split by stage. Labels apply with or without a running
// Profiler.
func Profile(ctx context.Context, stage string, fn func(context.Context)) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels("stage", stage), fn)
}

type pyroscopeLogger struct {
	s *zap.SugaredLogger
}

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
