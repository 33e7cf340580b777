package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/stow/internal/adapters/detector"
)

func TestDetectEnvironment_CI(t *testing.T) {
	for _, value := range []string{"true", "1"} {
		t.Run("CI="+value, func(t *testing.T) {
			t.Setenv("CI", value)
			assert.Equal(t, detector.ModePlain, detector.DetectEnvironment())
			assert.False(t, detector.IsInteractive())
		})
	}
}

func TestDetectEnvironment_NotATerminal(t *testing.T) {
	// go test does not attach stdout to a terminal.
	t.Setenv("CI", "")
	assert.Equal(t, detector.ModePlain, detector.DetectEnvironment())
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name         string
		autoDetected detector.OutputMode
		userFlag     string
		expected     detector.OutputMode
	}{
		{"auto respects detection (color)", detector.ModeColor, "auto", detector.ModeColor},
		{"auto respects detection (plain)", detector.ModePlain, "auto", detector.ModePlain},
		{"empty respects detection", detector.ModeColor, "", detector.ModeColor},
		{"color overrides", detector.ModePlain, "color", detector.ModeColor},
		{"tty overrides", detector.ModePlain, "tty", detector.ModeColor},
		{"plain overrides", detector.ModeColor, "plain", detector.ModePlain},
		{"ci overrides", detector.ModeColor, "ci", detector.ModePlain},
		{"linear overrides", detector.ModeColor, "linear", detector.ModePlain},
		{"unknown falls back", detector.ModeColor, "fancy", detector.ModeColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detector.ResolveMode(tt.autoDetected, tt.userFlag))
		})
	}
}

func TestOutputMode_String(t *testing.T) {
	assert.Equal(t, "auto", detector.ModeAuto.String())
	assert.Equal(t, "color", detector.ModeColor.String())
	assert.Equal(t, "plain", detector.ModePlain.String())
}
