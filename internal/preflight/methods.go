package preflight

import (
	"context"
	"log/slog"
	"time"

	"datasetup/internal/config"
	"datasetup/internal/services/gitlfs"
	"datasetup/internal/services/kaggle"
)

// MethodProbe reports whether an acquisition method can run here.
type MethodProbe struct {
	Method    string
	Available bool
	Detail    string
}

// ProbeMethods checks each configured method in priority order without
// downloading anything.
func ProbeMethods(ctx context.Context, cfg *config.Config, logger *slog.Logger, lfsOpts ...gitlfs.Option) []MethodProbe {
	if cfg == nil {
		return nil
	}
	probes := make([]MethodProbe, 0, len(cfg.Provision.Methods))
	for _, name := range cfg.Provision.Methods {
		switch name {
		case config.MethodKaggle:
			probe := MethodProbe{Method: name}
			if err := kaggle.NewMethod(cfg, logger).Probe(); err != nil {
				probe.Detail = err.Error()
			} else {
				probe.Available = true
				probe.Detail = "credentials found for " + cfg.Kaggle.Dataset
			}
			probes = append(probes, probe)
		case config.MethodLFS:
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			probe := MethodProbe{Method: name}
			root, err := gitlfs.NewMethod(cfg, logger, lfsOpts...).Probe(probeCtx)
			cancel()
			if err != nil {
				probe.Detail = err.Error()
			} else {
				probe.Available = true
				probe.Detail = "repository " + root
			}
			probes = append(probes, probe)
		default:
			probes = append(probes, MethodProbe{Method: name, Detail: "unknown method"})
		}
	}
	return probes
}
