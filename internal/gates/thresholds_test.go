package gates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds_Valid(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
}

func TestValidate_LockedStopMultiple(t *testing.T) {
	th := DefaultThresholds()
	th.SLATRMult = 2.0
	err := th.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestValidate_RejectsBadWindows(t *testing.T) {
	th := DefaultThresholds()
	th.ReclaimKAuto = 0
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.MinScore = 0
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.CTASoftMinScoreScan = th.MinScore - 1
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.PullbackMaxATRScan = th.PullbackMaxATRAuto - 0.1
	assert.Error(t, th.Validate())
}

func TestLoadThresholds_EmptyPathUsesDefaults(t *testing.T) {
	th, err := LoadThresholds("")
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds(), th)
}

func TestLoadThresholds_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adx_min: 22\nchop_min_adx: 19\n"), 0o644))

	th, err := LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 22.0, th.ADXMin)
	assert.Equal(t, 19.0, th.ChopMinADX)
	assert.Equal(t, DefaultThresholds().MinScore, th.MinScore, "unset keys keep defaults")
}

func TestLoadThresholds_TamperedLockRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sl_atr_mult: 2.4\n"), 0o644))

	_, err := LoadThresholds(path)
	assert.Error(t, err, "a changed locked constant must abort startup")
}

func TestLoadThresholds_MissingFile(t *testing.T) {
	_, err := LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestModeSelectors(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, th.ReclaimKAuto, th.ReclaimK(ModeAuto))
	assert.Equal(t, th.ReclaimKScan, th.ReclaimK(ModeScan))
	assert.Greater(t, th.PullbackMaxATR(ModeScan), th.PullbackMaxATR(ModeAuto))
	assert.Greater(t, th.SoftMinScore(ModeAuto), th.SoftMinScore(ModeScan))
}

func TestResultPredicates(t *testing.T) {
	assert.True(t, Pass("trend").Passed())
	assert.False(t, Pass("trend").Rejected())
	assert.True(t, HardBlock("regime", "no_trade_zone").Rejected())
	assert.True(t, SoftFail("trigger", "not_confirmed_yet").Rejected())
	assert.True(t, NotReady("data", "insufficient_candles").Rejected())

	assert.Equal(t, "regime:hard_block(too_extended)", HardBlock("regime", "too_extended").String())
	assert.Equal(t, "pipeline:pass", Pass("pipeline").String())
}
