package effect

import "math"

// CompressorProps configures a hard-knee compressor. ThresholdDB is
// the level above which gain reduction begins; Ratio is input:output
// above threshold (e.g. 4 means 4:1).
type CompressorProps struct {
	Enabled     bool
	ThresholdDB float32
	Ratio       float32
	AttackMS    float32
	ReleaseMS   float32
}

// CompressorEffect is an RMS-envelope-follower compressor. The
// attack/release coefficients are applied per sample rather than per
// block, which avoids the extra latency a block-rate envelope would
// add: alpha = exp(-1/(fs*tau)), tau in seconds.
type CompressorEffect struct {
	sampleRate float32

	enabled     bool
	thresholdDB float32
	ratio       float32
	attackCoeff float32
	releaseCoeff float32

	envelope float32 // running mean-square envelope; its square root is the RMS level
}

func (c *CompressorEffect) DeviceUpdate(sampleRate float32) {
	c.sampleRate = sampleRate
}

func (c *CompressorEffect) Update(props any) {
	p, ok := props.(CompressorProps)
	if !ok {
		return
	}
	c.enabled = p.Enabled
	c.thresholdDB = p.ThresholdDB
	if p.Ratio < 1 {
		p.Ratio = 1
	}
	c.ratio = p.Ratio

	fs := float64(c.sampleRate)
	if fs <= 0 {
		fs = 44100
	}
	attackTau := float64(p.AttackMS) / 1000
	releaseTau := float64(p.ReleaseMS) / 1000
	if attackTau <= 0 {
		attackTau = 0.001
	}
	if releaseTau <= 0 {
		releaseTau = 0.05
	}
	c.attackCoeff = float32(math.Exp(-1 / (fs * attackTau)))
	c.releaseCoeff = float32(math.Exp(-1 / (fs * releaseTau)))
}

func linearToDB(x float32) float32 {
	if x <= 0 {
		return -120
	}
	return float32(20 * math.Log10(float64(x)))
}

func dBToLinear(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func (c *CompressorEffect) Process(n int, in, out []float32) {
	if !c.enabled {
		copy(out[:n], in[:n])
		return
	}
	for i := 0; i < n; i++ {
		x := in[i]
		level := x * x

		var coeff float32
		if level > c.envelope {
			coeff = c.attackCoeff
		} else {
			coeff = c.releaseCoeff
		}
		c.envelope = coeff*c.envelope + (1-coeff)*level

		levelDB := linearToDB(float32(math.Sqrt(float64(c.envelope))))
		var gainDB float32
		if levelDB > c.thresholdDB {
			over := levelDB - c.thresholdDB
			gainDB = over/c.ratio - over
		}
		out[i] = x * dBToLinear(gainDB)
	}
}

func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
