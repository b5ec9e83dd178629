package iqpipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Input:        "in.iq",
		Output:       "out.iq",
		InputFormat:  FormatU8,
		OutputFormat: FormatS16,
		InputRate:    2_400_000,
		OutputRate:   1_024_000,
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.Input = ""; c.SDR = nil }},
		{"no output", func(c *Config) { c.Output = "" }},
		{"zero output rate", func(c *Config) { c.OutputRate = 0 }},
		{"zero input rate", func(c *Config) { c.InputRate = 0 }},
		{"bad input format", func(c *Config) { c.InputFormat = "s24le" }},
		{"bad output format", func(c *Config) { c.OutputFormat = "pcm" }},
		{"negative filter cutoff", func(c *Config) { c.FilterCutoffHz = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_WAVInputNeedsNoRate(t *testing.T) {
	cfg := validConfig()
	cfg.Input = "capture.wav"
	cfg.InputRate = 0
	assert.NoError(t, cfg.Validate(), "WAV headers carry the rate")
}

func TestConfig_SDRInputNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Input = ""
	cfg.SDR = &SDRConfig{CenterFreqHz: 100_000_000}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_OptionsMapping(t *testing.T) {
	cfg := validConfig()
	cfg.FilterCutoffHz = 400_000
	cfg.FilterTaps = 129
	cfg.FFTFilter = true
	cfg.ShiftHz = -250_000

	inFormat, err := cfg.InputFormat.toDSP()
	require.NoError(t, err)
	outFormat, err := cfg.OutputFormat.toDSP()
	require.NoError(t, err)

	o := cfg.options(inFormat, cfg.InputRate, outFormat)
	require.NoError(t, o.Validate())
	require.NotNil(t, o.PreFilter)
	assert.InDelta(t, 400_000.0/2_400_000.0, o.PreFilter.Cutoff, 1e-12,
		"cutoff normalized to the input rate")
	assert.True(t, o.PreFilter.FFT)
	assert.Equal(t, 129, o.PreFilter.Taps)
	assert.Equal(t, -250_000.0, o.ShiftBeforeHz)
	assert.Nil(t, o.PostFilter)
}
