package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewPolicyHolder_DefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewPolicyHolder(zaptest.NewLogger(t))
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 0.70, policy.ConfidenceThreshold)
	assert.Equal(t, "0.20", policy.DefaultFeePct)
	assert.Equal(t, 0.4, policy.SignalCutoffs.Acquisition)
}

func TestNewPolicyHolder_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	yml := []byte("attribution:\n" +
		"  confidenceThreshold: 0.80\n" +
		"  defaultFeePct: \"0.15\"\n" +
		"  signalCutoffs:\n" +
		"    adTouchpoint: 0.5\n" +
		"    acquisition: 0.4\n" +
		"    productPromotion: 0.3\n" +
		"    nurtureEngagement: 0.3\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.yml"), yml, 0o644))
	t.Chdir(dir)

	holder, err := NewPolicyHolder(zaptest.NewLogger(t))
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 0.80, policy.ConfidenceThreshold)
	assert.Equal(t, "0.15", policy.DefaultFeePct)
	assert.Equal(t, 0.5, policy.SignalCutoffs.AdTouchpoint)
}

func TestNewPolicyHolder_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	yml := []byte("attribution:\n  confidenceThreshold: 2.0\n  defaultFeePct: \"0.20\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.yml"), yml, 0o644))
	t.Chdir(dir)

	_, err := NewPolicyHolder(zap.NewNop())
	require.Error(t, err)
}
