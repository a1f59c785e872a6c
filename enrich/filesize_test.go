package enrich

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-labs/model-aggregator/catalog"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gatherer.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestGatherFilesSize_Success(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho 4096\n")
	cfg := &catalog.FilesSizeGathererConfig{Path: script, BasePath: "/models", TimeoutSeconds: 2}

	size, ok := GatherFilesSize(context.Background(), cfg, "llama3")

	assert.True(t, ok)
	assert.Equal(t, int64(4096), size)
}

func TestGatherFilesSize_NonZeroExitYieldsFalse(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nexit 1\n")
	cfg := &catalog.FilesSizeGathererConfig{Path: script, BasePath: "/models", TimeoutSeconds: 2}

	_, ok := GatherFilesSize(context.Background(), cfg, "llama3")

	assert.False(t, ok)
}

func TestGatherFilesSize_NonIntegerStdoutYieldsFalse(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho not-a-number\n")
	cfg := &catalog.FilesSizeGathererConfig{Path: script, BasePath: "/models", TimeoutSeconds: 2}

	_, ok := GatherFilesSize(context.Background(), cfg, "llama3")

	assert.False(t, ok)
}

func TestGatherFilesSize_NegativeSizeYieldsFalse(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho -5\n")
	cfg := &catalog.FilesSizeGathererConfig{Path: script, BasePath: "/models", TimeoutSeconds: 2}

	_, ok := GatherFilesSize(context.Background(), cfg, "llama3")

	assert.False(t, ok)
}

func TestGatherFilesSize_TimeoutYieldsFalse(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nsleep 2\necho 10\n")
	cfg := &catalog.FilesSizeGathererConfig{Path: script, BasePath: "/models", TimeoutSeconds: 1}

	_, ok := GatherFilesSize(context.Background(), cfg, "llama3")

	assert.False(t, ok)
}

func TestGatherFilesSize_NilConfigYieldsFalse(t *testing.T) {
	_, ok := GatherFilesSize(context.Background(), nil, "llama3")
	assert.False(t, ok)
}

func TestResolveGathererConfig_ProviderOverridesGlobal(t *testing.T) {
	global := &catalog.FilesSizeGathererConfig{Path: "/global"}
	providerCfg := &catalog.FilesSizeGathererConfig{Path: "/provider"}
	p := &catalog.Provider{FilesSizeGatherer: providerCfg}

	got := resolveGathererConfig(p, global)

	assert.Same(t, providerCfg, got)
}

func TestResolveGathererConfig_FallsBackToGlobal(t *testing.T) {
	global := &catalog.FilesSizeGathererConfig{Path: "/global"}
	p := &catalog.Provider{}

	got := resolveGathererConfig(p, global)

	assert.Same(t, global, got)
}
