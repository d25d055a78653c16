package hrtfdata

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildMinPHR00(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(Magic)
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint16(CanonicalHRIRCount))
	binary.Write(&buf, binary.LittleEndian, uint16(CanonicalHRIRSize))
	buf.WriteByte(CanonicalElevationCount)
	for _, off := range CanonicalElevationOffsets {
		binary.Write(&buf, binary.LittleEndian, off)
	}
	for i := 0; i < CanonicalHRIRCount; i++ {
		for s := 0; s < CanonicalHRIRSize; s++ {
			var v int16
			if s == 0 {
				v = 1000
			}
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	for i := 0; i < CanonicalHRIRCount; i++ {
		buf.WriteByte(byte(i % 20))
	}
	return buf.Bytes()
}

func TestLoadValidFile(t *testing.T) {
	data := buildMinPHR00(t)
	ds, err := Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(ds.Elevations) != CanonicalElevationCount {
		t.Fatalf("Elevations = %d, want %d", len(ds.Elevations), CanonicalElevationCount)
	}
	total := 0
	for _, e := range ds.Elevations {
		total += e.AzimuthCount
	}
	if total != CanonicalHRIRCount {
		t.Errorf("total azimuths across elevations = %d, want %d", total, CanonicalHRIRCount)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := buildMinPHR00(t)
	data[0] = 'X'
	if _, err := Load(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected an error for bad magic")
	}
}

func TestLoadRejectsWrongHRIRCount(t *testing.T) {
	data := buildMinPHR00(t)
	binary.LittleEndian.PutUint16(data[12:14], 827)
	if _, err := Load(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected an error for a non-canonical HRIR count")
	}
}
