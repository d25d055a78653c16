// Package config parses the engine's key=value configuration text and
// the ambisonic decoder configuration format. Both are
// small line-oriented formats with no escaping rules subtle enough to
// justify a third-party parser; bufio.Scanner is the right tool and
// every other example repo in this corpus reaches for it for the same
// kind of config text (see DESIGN.md).
package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Resampler selects the default resample kernel named in
// general/resampler.
type Resampler string

const (
	ResamplerPoint   Resampler = "point"
	ResamplerLinear  Resampler = "linear"
	ResamplerCubic   Resampler = "cubic"
	ResamplerBSinc12 Resampler = "bsinc12"
	ResamplerBSinc24 Resampler = "bsinc24"
)

// Config holds the recognized configuration keys. Unrecognized
// sections/keys are preserved in Raw so callers
// can look up anything this struct doesn't promote to a typed field.
type Config struct {
	SampleType string
	Channels   string
	Frequency  int
	HRTF       string // "true", "false", "auto"
	HRTFPaths  []string
	Resampler  Resampler
	CrossfeedLevel int

	EffectsDefaultSlotCount int
	DecoderHQMode           bool

	Raw map[string]string // "section/key" -> value, every key seen
}

// Default returns a Config with the engine's documented defaults.
func Default() Config {
	return Config{
		SampleType:              "s16",
		Channels:                "stereo",
		Frequency:               44100,
		HRTF:                    "auto",
		Resampler:               ResamplerCubic,
		EffectsDefaultSlotCount: 4,
		Raw:                     map[string]string{},
	}
}

// Parse reads an INI-like config stream: blank lines and lines
// starting with ';' or '#' are comments, "[section]" lines switch the
// current section, and "key = value" lines set section/key entries.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	cfg.Raw = map[string]string{}

	section := "general"
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return cfg, fmt.Errorf("config: line %d: expected key = value, got %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		cfg.Raw[section+"/"+key] = val
		applyKey(&cfg, section, key, val)
	}
	if err := sc.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyKey(cfg *Config, section, key, val string) {
	full := section + "/" + key
	switch full {
	case "general/sample-type":
		cfg.SampleType = val
	case "general/channels":
		cfg.Channels = val
	case "general/frequency":
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Frequency = n
		}
	case "general/hrtf":
		cfg.HRTF = val
	case "general/hrtf-paths":
		cfg.HRTFPaths = strings.Split(val, ",")
	case "general/resampler":
		cfg.Resampler = Resampler(val)
	case "general/cf-level":
		if n, err := strconv.Atoi(val); err == nil {
			cfg.CrossfeedLevel = n
		}
	case "effects/default-slot-count":
		if n, err := strconv.Atoi(val); err == nil {
			cfg.EffectsDefaultSlotCount = n
		}
	case "decoder/hq-mode":
		cfg.DecoderHQMode = val == "true" || val == "1" || val == "on"
	}
}

// SpeakerPosition is one row of an ambisonic decoder config's speaker
// layout: azimuth/elevation in degrees.
type SpeakerPosition struct {
	AzimuthDeg, ElevationDeg float64
}

// DecoderConfig is a parsed ambisonic decoder configuration text file:
// speaker positions, an N-ambisonic-channel by M-speaker decode
// matrix, and optional dual-band crossover.
type DecoderConfig struct {
	Speakers []SpeakerPosition
	Matrix   [][]float64 // Matrix[speaker][ambiChannel]
	DualBand bool
	CrossoverHz float64
}

// ParseDecoderConfig reads the ambisonic decoder text format:
//
//	speakers: az,el az,el ...
//	matrix:
//	  f f f f ...    (one row per speaker, N whitespace-separated floats)
//	dual-band: true
//	crossover: 400
func ParseDecoderConfig(r io.Reader) (DecoderConfig, error) {
	var dc DecoderConfig
	sc := bufio.NewScanner(r)
	inMatrix := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "speakers:"):
			inMatrix = false
			rest := strings.TrimSpace(strings.TrimPrefix(line, "speakers:"))
			for _, tok := range strings.Fields(rest) {
				parts := strings.SplitN(tok, ",", 2)
				if len(parts) != 2 {
					continue
				}
				az, _ := strconv.ParseFloat(parts[0], 64)
				el, _ := strconv.ParseFloat(parts[1], 64)
				dc.Speakers = append(dc.Speakers, SpeakerPosition{AzimuthDeg: az, ElevationDeg: el})
			}
		case strings.HasPrefix(line, "matrix:"):
			inMatrix = true
		case strings.HasPrefix(line, "dual-band:"):
			inMatrix = false
			val := strings.TrimSpace(strings.TrimPrefix(line, "dual-band:"))
			dc.DualBand = val == "true" || val == "1"
		case strings.HasPrefix(line, "crossover:"):
			inMatrix = false
			val := strings.TrimSpace(strings.TrimPrefix(line, "crossover:"))
			dc.CrossoverHz, _ = strconv.ParseFloat(val, 64)
		case inMatrix:
			fields := strings.Fields(line)
			row := make([]float64, len(fields))
			for i, f := range fields {
				row[i], _ = strconv.ParseFloat(f, 64)
			}
			dc.Matrix = append(dc.Matrix, row)
		}
	}
	if err := sc.Err(); err != nil {
		return dc, err
	}
	return dc, nil
}
