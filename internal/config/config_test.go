package config

import (
	"strings"
	"testing"
)

func TestParseRecognizedKeys(t *testing.T) {
	text := `
; a comment
[general]
sample-type = s16
channels = stereo
frequency = 48000
hrtf = true
hrtf-paths = /a/b.mhr,/c/d.mhr
resampler = bsinc24
cf-level = 3

[effects]
default-slot-count = 2

[decoder]
hq-mode = true
`
	cfg, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.Frequency != 48000 {
		t.Errorf("Frequency = %d, want 48000", cfg.Frequency)
	}
	if cfg.Resampler != ResamplerBSinc24 {
		t.Errorf("Resampler = %q, want bsinc24", cfg.Resampler)
	}
	if len(cfg.HRTFPaths) != 2 {
		t.Errorf("HRTFPaths = %v, want 2 entries", cfg.HRTFPaths)
	}
	if cfg.EffectsDefaultSlotCount != 2 {
		t.Errorf("EffectsDefaultSlotCount = %d, want 2", cfg.EffectsDefaultSlotCount)
	}
	if !cfg.DecoderHQMode {
		t.Errorf("DecoderHQMode = false, want true")
	}
	if cfg.Raw["general/cf-level"] != "3" {
		t.Errorf("Raw general/cf-level = %q, want \"3\"", cfg.Raw["general/cf-level"])
	}
}

func TestParseRejectsMalformedLine(t *testing.T) {
	if _, err := Parse(strings.NewReader("not-a-key-value-line")); err == nil {
		t.Fatalf("expected an error for a line with no '='")
	}
}

func TestParseDecoderConfig(t *testing.T) {
	text := `
speakers: 0,0 90,0 180,0 -90,0
matrix:
  1.0 0.5 0.0 0.5
  1.0 0.0 0.5 -0.5
dual-band: true
crossover: 400
`
	dc, err := ParseDecoderConfig(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseDecoderConfig returned error: %v", err)
	}
	if len(dc.Speakers) != 4 {
		t.Fatalf("Speakers = %d entries, want 4", len(dc.Speakers))
	}
	if len(dc.Matrix) != 2 || len(dc.Matrix[0]) != 4 {
		t.Fatalf("Matrix shape = %dx%d, want 2x4", len(dc.Matrix), len(dc.Matrix[0]))
	}
	if !dc.DualBand {
		t.Errorf("DualBand = false, want true")
	}
	if dc.CrossoverHz != 400 {
		t.Errorf("CrossoverHz = %v, want 400", dc.CrossoverHz)
	}
}
