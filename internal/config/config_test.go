package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Vision.Threshold = 1.5
	cfg.Vision.Retries = 0
	cfg.Paths.ImagesDir = ""

	err := cfg.Validate()
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, err.Error(), "vision.threshold")
	assert.Contains(t, err.Error(), "vision.retries")
	assert.Contains(t, err.Error(), "paths.imagesDir")
}

func TestValidateRejectsBreakCountNotAboveMaxStopCount(t *testing.T) {
	for _, breakCount := range []int{4, 5} {
		cfg := Default()
		cfg.Navigation.MaxStopCount = 5
		cfg.Navigation.BreakCount = breakCount

		err := cfg.Validate()
		require.Error(t, err, "breakCount=%d must be rejected", breakCount)
		assert.Contains(t, err.Error(), "breakCount")
	}

	cfg := Default()
	cfg.Navigation.MaxStopCount = 5
	cfg.Navigation.BreakCount = 6
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Window.Title = "My Game"
	cfg.Vision.Threshold = 0.92
	cfg.Navigation.InitialState = "start_menu"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestImagePath(t *testing.T) {
	cfg := Default()
	cfg.Paths.ImagesDir = "assets"
	assert.Equal(t, filepath.Join("assets", "btn_solo.png"), cfg.ImagePath("btn_solo.png"))
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, Seconds(0.5))
	assert.Equal(t, 5*time.Second, Seconds(5))
}
