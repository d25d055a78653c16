// Command oalrender is a small driver for the al mixer: open a device,
// load a WAV file into a buffer, play it on a source, and render to a
// chosen output sink.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	al "github.com/kcat/openal-soft-sub004"
	"github.com/kcat/openal-soft-sub004/internal/backend"
	"github.com/kcat/openal-soft-sub004/internal/pan"
)

// CLI defines oalrender's command-line interface.
type CLI struct {
	Input  string `arg:"" name:"input" help:"WAV file to play" type:"existingfile"`
	Output string `name:"output" short:"o" help:"Output sink: oto, wav, headless" default:"oto" enum:"oto,wav,headless"`
	Out    string `name:"out-file" help:"Destination path when --output=wav" default:"out.wav"`

	Rate   int    `name:"rate" help:"Device sample rate" default:"44100"`
	Slice  int    `name:"slice" help:"Mixer slice size in frames" default:"512"`
	Layout string `name:"layout" help:"Output speaker layout" default:"stereo" enum:"mono,stereo,quad,5.1,7.1,binaural"`
	HRTF   string `name:"hrtf" help:"MinPHR00 HRTF dataset to load (requires --layout=binaural)" type:"path"`

	Gain float64 `name:"gain" help:"Source gain" default:"1.0"`
	Loop bool    `name:"loop" help:"Loop playback"`
	X    float64 `name:"x" help:"Source X position" default:"0"`
	Y    float64 `name:"y" help:"Source Y position" default:"0"`
	Z    float64 `name:"z" help:"Source Z position" default:"-1"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("oalrender"),
		kong.Description("Render a WAV file through the al spatial audio mixer"),
		kong.UsageOnError(),
	)

	if err := run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "oalrender:", err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	f, err := os.Open(cli.Input)
	if err != nil {
		return err
	}
	wav, err := backend.ReadWAV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", cli.Input, err)
	}

	layout := parseLayout(cli.Layout)
	dev := al.NewDevice(cli.Rate, layout, al.SampleS16, cli.Slice)

	if cli.HRTF != "" {
		hf, err := os.Open(cli.HRTF)
		if err != nil {
			return err
		}
		err = dev.LoadHRTF(hf)
		hf.Close()
		if err != nil {
			return fmt.Errorf("load HRTF dataset %s: %w", cli.HRTF, err)
		}
	}

	bufLayout := al.LayoutMono
	if len(wav.Channels) > 1 {
		bufLayout = al.LayoutStereo
	}
	buf := dev.NewBuffer(al.SampleF32, bufLayout, wav.SampleRate, wav.Channels)

	src := dev.NewSource()
	src.SetGain(float32(cli.Gain))
	src.SetLooping(cli.Loop)
	src.SetPosition(pan.Vec3{X: float32(cli.X), Y: float32(cli.Y), Z: float32(cli.Z)})
	if err := src.QueueBuffers(buf); err != nil {
		return err
	}

	bytesPerSample := 2 // al.SampleS16
	deviceChans := channelsForLayout(layout)

	switch cli.Output {
	case "oto":
		sink, err := backend.NewOtoSink(cli.Rate, deviceChans, bytesPerSample, dev.RenderFunc())
		if err != nil {
			return err
		}
		dev.Attach(sink)
		defer dev.Close()
		if err := dev.Start(); err != nil {
			return err
		}
		if err := src.Play(dev); err != nil {
			return err
		}
		for src.State() == al.Playing {
			time.Sleep(20 * time.Millisecond)
		}
		return nil

	case "wav":
		out, err := os.Create(cli.Out)
		if err != nil {
			return err
		}
		defer out.Close()

		sink := backend.NewWAVSink(cli.Rate, deviceChans, bytesPerSample*8, dev.RenderFunc())
		dev.Attach(sink)
		if err := src.Play(dev); err != nil {
			return err
		}
		for src.State() == al.Playing {
			if err := sink.RenderFrames(cli.Slice); err != nil {
				return err
			}
		}
		return sink.Flush(out)

	case "headless":
		sink := backend.NewHeadlessSink(dev.RenderFunc())
		dev.Attach(sink)
		sink.Start()
		if err := src.Play(dev); err != nil {
			return err
		}
		scratch := make([]byte, cli.Slice*deviceChans*bytesPerSample)
		for src.State() == al.Playing {
			if _, err := sink.Pull(scratch); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown output %q", cli.Output)
	}
}

func parseLayout(name string) al.ChannelLayout {
	switch name {
	case "mono":
		return al.LayoutMono
	case "quad":
		return al.LayoutQuad
	case "5.1":
		return al.LayoutSurround51
	case "7.1":
		return al.LayoutSurround71
	case "binaural":
		return al.LayoutBinauralHRTF
	default:
		return al.LayoutStereo
	}
}

func channelsForLayout(l al.ChannelLayout) int {
	switch l {
	case al.LayoutMono:
		return 1
	case al.LayoutQuad:
		return 4
	case al.LayoutSurround51, al.LayoutSurround51Rear, al.LayoutSurround51Side:
		return 6
	case al.LayoutSurround61:
		return 7
	case al.LayoutSurround71:
		return 8
	default:
		return 2
	}
}
