// Package hrtfdata loads the engine's binary HRTF dataset format
// ("MinPHR00") into an internal/hrtf.Dataset.
package hrtfdata

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kcat/openal-soft-sub004/internal/hrtf"
)

// Magic is the required 8-byte file signature.
const Magic = "MinPHR00"

// CanonicalElevationCount/HRIRCount/HRIRSize are the values the format
// requires; Load rejects files that disagree, since a
// non-canonical elevation offset table would silently misindex every
// query downstream.
const (
	CanonicalElevationCount = 19
	CanonicalHRIRCount      = 828
	CanonicalHRIRSize       = hrtf.IRLength
)

// CanonicalElevationOffsets is the required evOffset array.
var CanonicalElevationOffsets = [CanonicalElevationCount]uint16{
	0, 1, 13, 37, 73, 118, 174, 234, 306, 378, 450, 522, 594, 654, 710, 755, 791, 815, 827,
}

// elevationAngles are the 19 canonical equi-angular elevation steps,
// spanning -90 (down) to +90 (up) degrees.
func elevationAngles() [CanonicalElevationCount]float32 {
	var out [CanonicalElevationCount]float32
	for i := range out {
		out[i] = -90 + float32(i)*180/float32(CanonicalElevationCount-1)
	}
	return out
}

// Load reads a MinPHR00 file into an *hrtf.Dataset.
func Load(r io.Reader) (*hrtf.Dataset, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading magic: %w", err)
	}
	if string(magic[:]) != Magic {
		return nil, fmt.Errorf("hrtfdata: bad magic %q, want %q", magic, Magic)
	}

	var sampleRate uint32
	if err := binary.Read(r, binary.LittleEndian, &sampleRate); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading sample rate: %w", err)
	}

	var hrirCount, hrirSize uint16
	if err := binary.Read(r, binary.LittleEndian, &hrirCount); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading HRIR count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &hrirSize); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading HRIR size: %w", err)
	}
	if hrirCount != CanonicalHRIRCount {
		return nil, fmt.Errorf("hrtfdata: HRIR count %d, want %d", hrirCount, CanonicalHRIRCount)
	}
	if hrirSize != CanonicalHRIRSize {
		return nil, fmt.Errorf("hrtfdata: HRIR size %d, want %d", hrirSize, CanonicalHRIRSize)
	}

	var elevCount uint8
	if err := binary.Read(r, binary.LittleEndian, &elevCount); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading elevation count: %w", err)
	}
	if elevCount != CanonicalElevationCount {
		return nil, fmt.Errorf("hrtfdata: elevation count %d, want %d", elevCount, CanonicalElevationCount)
	}

	evOffsets := make([]uint16, elevCount)
	if err := binary.Read(r, binary.LittleEndian, &evOffsets); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading elevation offsets: %w", err)
	}
	for i, want := range CanonicalElevationOffsets {
		if evOffsets[i] != want {
			return nil, fmt.Errorf("hrtfdata: elevation offset[%d] = %d, want %d", i, evOffsets[i], want)
		}
	}

	// Coefficients are stored mono: one IR (and below, one delay) per
	// HRIR entry, used for both the left and the right ear.
	coeffs := make([]int16, int(hrirCount)*int(hrirSize))
	if err := binary.Read(r, binary.LittleEndian, &coeffs); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading coefficients: %w", err)
	}

	delays := make([]uint8, hrirCount)
	if _, err := io.ReadFull(r, delays); err != nil {
		return nil, fmt.Errorf("hrtfdata: reading delays: %w", err)
	}
	for i, d := range delays {
		if d > 127 {
			return nil, fmt.Errorf("hrtfdata: delay[%d] = %d exceeds 127", i, d)
		}
	}

	angles := elevationAngles()
	ds := &hrtf.Dataset{SampleRate: int(sampleRate)}
	ds.Elevations = make([]hrtf.Elevation, elevCount)

	for e := 0; e < int(elevCount); e++ {
		start := int(evOffsets[e])
		var end int
		if e+1 < int(elevCount) {
			end = int(evOffsets[e+1])
		} else {
			end = int(hrirCount)
		}
		azCount := end - start
		ev := hrtf.Elevation{
			AzimuthCount: azCount,
			Left:         make([]float32, azCount*hrtf.IRLength),
			Right:        make([]float32, azCount*hrtf.IRLength),
			DelayLeft:    make([]int, azCount),
			DelayRight:   make([]int, azCount),
			ElevationDeg: angles[e],
		}
		for az := 0; az < azCount; az++ {
			hrirIdx := start + az
			for s := 0; s < hrtf.IRLength; s++ {
				v := float32(coeffs[hrirIdx*hrtf.IRLength+s]) / 32768
				ev.Left[az*hrtf.IRLength+s] = v
				ev.Right[az*hrtf.IRLength+s] = v
			}
			ev.DelayLeft[az] = int(delays[hrirIdx])
			ev.DelayRight[az] = int(delays[hrirIdx])
		}
		ds.Elevations[e] = ev
	}
	return ds, nil
}
