package backend

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrUnsupportedWAV is returned by ReadWAV for a RIFF/WAVE stream this
// decoder doesn't handle (compressed formats, non-PCM/float codecs,
// bit depths other than 8/16/24/32).
var ErrUnsupportedWAV = errors.New("backend: unsupported WAV format")

// WAVInfo is the decoded form of a canonical PCM WAV file: planar f32
// samples in [-1,1], one slice per channel.
type WAVInfo struct {
	SampleRate int
	Channels   [][]float32
}

// ReadWAV parses a RIFF/WAVE stream, walking chunks rather than
// assuming the canonical 44-byte header so "LIST"/"fact" chunks some
// encoders emit before "data" don't break the read. Supports 8/16/24
// bit PCM and 32-bit IEEE float.
func ReadWAV(r io.Reader) (WAVInfo, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return WAVInfo{}, err
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return WAVInfo{}, ErrUnsupportedWAV
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		audioFormat   uint16
		data          []byte
	)

	for {
		var chunkHdr [8]byte
		if _, err := io.ReadFull(r, chunkHdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return WAVInfo{}, err
		}
		id := string(chunkHdr[0:4])
		size := binary.LittleEndian.Uint32(chunkHdr[4:8])
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return WAVInfo{}, err
		}
		if size%2 == 1 {
			var pad [1]byte
			io.ReadFull(r, pad[:]) // RIFF chunks are word-aligned; odd sizes carry one pad byte
		}

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return WAVInfo{}, ErrUnsupportedWAV
			}
			audioFormat = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			data = body
		}
	}

	if channels == 0 || len(data) == 0 {
		return WAVInfo{}, ErrUnsupportedWAV
	}

	bytesPerSample := bitsPerSample / 8
	if bytesPerSample == 0 {
		return WAVInfo{}, ErrUnsupportedWAV
	}
	if audioFormat != 1 && audioFormat != 3 { // only PCM and IEEE float
		return WAVInfo{}, ErrUnsupportedWAV
	}
	frames := len(data) / (bytesPerSample * channels)

	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * bytesPerSample
			var v float32
			switch {
			case audioFormat == 3 && bitsPerSample == 32:
				v = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			case bitsPerSample == 8:
				v = (float32(data[off]) - 128) / 128
			case bitsPerSample == 16:
				v = float32(int16(binary.LittleEndian.Uint16(data[off:]))) / 32768
			case bitsPerSample == 24:
				raw := int32(data[off]) | int32(data[off+1])<<8 | int32(data[off+2])<<16
				if raw&0x800000 != 0 {
					raw |= ^0xFFFFFF
				}
				v = float32(raw) / 8388608
			case bitsPerSample == 32:
				raw := int32(binary.LittleEndian.Uint32(data[off:]))
				v = float32(raw) / 2147483648
			default:
				return WAVInfo{}, ErrUnsupportedWAV
			}
			out[c][i] = v
		}
	}

	return WAVInfo{SampleRate: sampleRate, Channels: out}, nil
}

// WriteWAVHeader writes a standard 44-byte canonical PCM WAV header
// for dataLen bytes of audio at the given format. No third-party
// repo in this corpus is a complete example (go-audio/wav only shows
// up in single-file reference manifests, not a teacher-eligible repo),
// so this stays on encoding/binary -- the header is 11 fixed fields,
// not a parser worth a dependency.
func WriteWAVHeader(w io.Writer, sampleRate, channels, bitsPerSample int, dataLen uint32) error {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataLen)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	audioFormat := uint16(1) // PCM
	if bitsPerSample == 32 {
		audioFormat = 3 // IEEE float
	}
	binary.LittleEndian.PutUint16(hdr[20:22], audioFormat)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(bitsPerSample))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataLen)

	_, err := w.Write(hdr[:])
	return err
}

// WAVSink renders into an in-memory byte buffer and exposes it via
// Flush, for offline capture (the oalrender CLI's --out file mode and
// tests that want a deterministic rendered artifact instead of a live
// device).
type WAVSink struct {
	render        RenderFunc
	sampleRate    int
	channels      int
	bitsPerSample int
	data          []byte
}

// NewWAVSink wraps render for manual pulling into an internal buffer.
func NewWAVSink(sampleRate, channels, bitsPerSample int, render RenderFunc) *WAVSink {
	return &WAVSink{render: render, sampleRate: sampleRate, channels: channels, bitsPerSample: bitsPerSample}
}

func (w *WAVSink) Start() error { return nil }
func (w *WAVSink) Stop() error  { return nil }
func (w *WAVSink) Close() error { return nil }

// RenderFrames pulls n frames worth of bytes from render and appends
// them to the internal buffer.
func (w *WAVSink) RenderFrames(n int) error {
	bytesPerFrame := w.channels * w.bitsPerSample / 8
	buf := make([]byte, n*bytesPerFrame)
	read, err := w.render(buf)
	w.data = append(w.data, buf[:read]...)
	return err
}

// Flush writes the accumulated buffer as a complete WAV file.
func (w *WAVSink) Flush(dst io.Writer) error {
	if err := WriteWAVHeader(dst, w.sampleRate, w.channels, w.bitsPerSample, uint32(len(w.data))); err != nil {
		return err
	}
	_, err := dst.Write(w.data)
	return err
}
