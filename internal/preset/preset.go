// Package preset loads run configuration overlays from YAML files.
// A preset only sets the keys it names; everything else keeps the
// value the caller already chose, so command-line flags can override
// preset values and vice versa.
package preset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	iqpipeline "github.com/tphakala/go-iq-pipeline"
)

// Preset mirrors the public configuration with optional fields.
type Preset struct {
	Input        *string  `yaml:"input"`
	Output       *string  `yaml:"output"`
	InputFormat  *string  `yaml:"input_format"`
	OutputFormat *string  `yaml:"output_format"`
	InputRate    *float64 `yaml:"input_rate"`
	OutputRate   *float64 `yaml:"output_rate"`

	Gain        *float64 `yaml:"gain"`
	ShiftHz     *float64 `yaml:"shift_hz"`
	PostShiftHz *float64 `yaml:"post_shift_hz"`

	DCBlock      *bool `yaml:"dc_block"`
	IQCorrection *bool `yaml:"iq_correction"`
	AGC          *bool `yaml:"agc"`

	FilterCutoffHz     *float64 `yaml:"filter_cutoff_hz"`
	FilterTaps         *int     `yaml:"filter_taps"`
	FFTFilter          *bool    `yaml:"fft_filter"`
	PostFilterCutoffHz *float64 `yaml:"post_filter_cutoff_hz"`

	Passthrough *bool `yaml:"passthrough"`
	NoResample  *bool `yaml:"no_resample"`

	PoolChunks   *int `yaml:"pool_chunks"`
	ChunkSamples *int `yaml:"chunk_samples"`
}

// Load reads and parses a preset file.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset: read %s: %w", path, err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	return &p, nil
}

// Apply copies every set preset key onto cfg.
func (p *Preset) Apply(cfg *iqpipeline.Config) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&cfg.Input, p.Input)
	setString(&cfg.Output, p.Output)
	if p.InputFormat != nil {
		cfg.InputFormat = iqpipeline.SampleFormat(*p.InputFormat)
	}
	if p.OutputFormat != nil {
		cfg.OutputFormat = iqpipeline.SampleFormat(*p.OutputFormat)
	}
	setFloat(&cfg.InputRate, p.InputRate)
	setFloat(&cfg.OutputRate, p.OutputRate)
	setFloat(&cfg.Gain, p.Gain)
	setFloat(&cfg.ShiftHz, p.ShiftHz)
	setFloat(&cfg.PostShiftHz, p.PostShiftHz)
	setBool(&cfg.DCBlock, p.DCBlock)
	setBool(&cfg.IQCorrection, p.IQCorrection)
	setBool(&cfg.AGC, p.AGC)
	setFloat(&cfg.FilterCutoffHz, p.FilterCutoffHz)
	setInt(&cfg.FilterTaps, p.FilterTaps)
	setBool(&cfg.FFTFilter, p.FFTFilter)
	setFloat(&cfg.PostFilterCutoffHz, p.PostFilterCutoffHz)
	setBool(&cfg.Passthrough, p.Passthrough)
	setBool(&cfg.NoResample, p.NoResample)
	setInt(&cfg.PoolChunks, p.PoolChunks)
	setInt(&cfg.ChunkSamples, p.ChunkSamples)
}
