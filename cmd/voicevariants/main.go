// Command voicevariants runs the voice transformation pipeline over a
// synthetic test signal and prints per-variant statistics.
//
// Usage:
//
//	voicevariants [flags]
//
// Examples:
//
//	voicevariants
//	voicevariants -freq 180 -duration 2s
//	VOICE_LOG_LEVEL=debug voicevariants -rate 48000
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-voice/dsp/core"
	"github.com/cwbudde/algo-voice/engine"
	"github.com/cwbudde/algo-voice/internal/config"
	"github.com/cwbudde/algo-voice/pipeline"
	"github.com/cwbudde/algo-voice/variant"
)

func main() {
	freq := flag.Float64("freq", 220, "fundamental frequency of the test tone in Hz")
	duration := flag.Duration("duration", time.Second, "length of the test signal")
	rate := flag.Float64("rate", 0, "sample rate in Hz (0 uses the configured default)")
	flag.Parse()

	if err := run(*freq, *duration, *rate); err != nil {
		fmt.Fprintf(os.Stderr, "voicevariants: %v\n", err)
		os.Exit(1)
	}
}

func run(freq float64, duration time.Duration, rate float64) error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	if rate <= 0 {
		rate = cfg.SampleRate
	}

	ladder := engine.NewLadder(logger, engine.WithInitTimeout(cfg.InitTimeout))
	p := pipeline.New(logger,
		pipeline.WithLadder(ladder),
		pipeline.WithRequestTimeout(cfg.RequestTimeout))
	p.Start(ctx)
	defer p.Shutdown()

	tier, err := p.WaitReady(ctx)
	if err != nil {
		return err
	}
	logger.Info("pipeline ready", "tier", tier.String())

	input := voiceTone(freq, rate, int(duration.Seconds()*rate))
	res, err := p.Process(ctx, pipeline.Request{
		ID:         pipeline.NewCorrelationID(),
		Input:      input,
		SampleRate: rate,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "variant\tsamples\tpeak\trms\tpeak dB\n")
	for _, label := range variant.Labels() {
		samples := res.Variants[label]
		peak := core.MaxAbs(samples)
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.1f\n",
			label, len(samples), peak, rms(samples), core.LinearToDB(peak))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ntier: %s\n", res.Tier.String())
	return nil
}

// voiceTone builds a crude voice-like signal: a fundamental with two
// harmonics under a slow amplitude contour.
func voiceTone(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / rate
		env := 0.5 + 0.5*math.Sin(2*math.Pi*3*t-math.Pi/2)
		out[i] = env * (0.5*math.Sin(2*math.Pi*freq*t) +
			0.25*math.Sin(2*math.Pi*2*freq*t) +
			0.125*math.Sin(2*math.Pi*3*freq*t))
	}
	return out
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
