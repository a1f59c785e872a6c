package enrich

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
)

const defaultGathererTimeout = 15 * time.Second

// GatherFilesSize spawns the configured external script with arguments
// (base_path, model_id), bounded by cfg's timeout. It returns (size, true)
// only on exit code 0 with a non-negative integer on stdout; any other
// outcome — missing script, non-zero exit, non-numeric or negative stdout,
// timeout — logs and returns (0, false). The model is still enriched
// either way; this only ever affects meta.Size.
func GatherFilesSize(ctx context.Context, cfg *catalog.FilesSizeGathererConfig, modelID string) (int64, bool) {
	if cfg == nil {
		return 0, false
	}
	log := logging.FromContext(ctx).With("model_id", modelID, "gatherer", cfg.Path)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultGathererTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, cfg.Path, cfg.BasePath, modelID)
	stdout, err := cmd.Output()
	if runCtx.Err() == context.DeadlineExceeded {
		log.Error("files size gatherer timed out", "timeout", timeout)
		return 0, false
	}
	if err != nil {
		log.Error("files size gatherer failed", "error", err)
		return 0, false
	}

	sizeStr := strings.TrimSpace(string(stdout))
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		log.Error("files size gatherer produced non-integer stdout", "stdout", sizeStr)
		return 0, false
	}
	if size < 0 {
		log.Error("files size gatherer returned negative size", "size", size)
		return 0, false
	}
	return size, true
}

// resolveGathererConfig returns the provider's own gatherer config, falling
// back to the process-wide default when the provider doesn't set one.
func resolveGathererConfig(p *catalog.Provider, global *catalog.FilesSizeGathererConfig) *catalog.FilesSizeGathererConfig {
	if p != nil && p.FilesSizeGatherer != nil {
		return p.FilesSizeGatherer
	}
	return global
}
