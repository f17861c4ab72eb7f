package wav

// Downmix averages interleaved channels into the requested channel count.
// Only reduction to mono is supported; other targets return the input as is.
func Downmix(a Audio, channels int) Audio {
	if channels != 1 || a.Channels <= 1 {
		return a
	}
	frames := a.Frames()
	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		base := f * a.Channels
		for c := 0; c < a.Channels; c++ {
			sum += int(a.Samples[base+c])
		}
		out[f] = int16(sum / a.Channels)
	}
	return Audio{SampleRate: a.SampleRate, Channels: 1, Samples: out}
}

// Resample converts to rate with linear interpolation between neighbouring
// frames. It is adequate for speech at the rates the collector targets.
func Resample(a Audio, rate int) Audio {
	if rate <= 0 || rate == a.SampleRate || a.Frames() == 0 {
		return a
	}
	inFrames := a.Frames()
	outFrames := int(int64(inFrames) * int64(rate) / int64(a.SampleRate))
	if outFrames == 0 {
		outFrames = 1
	}
	out := make([]int16, outFrames*a.Channels)
	step := float64(a.SampleRate) / float64(rate)
	for f := 0; f < outFrames; f++ {
		pos := float64(f) * step
		i := int(pos)
		frac := pos - float64(i)
		next := i + 1
		if next >= inFrames {
			next = inFrames - 1
		}
		if i >= inFrames {
			i = inFrames - 1
		}
		for c := 0; c < a.Channels; c++ {
			s0 := float64(a.Samples[i*a.Channels+c])
			s1 := float64(a.Samples[next*a.Channels+c])
			out[f*a.Channels+c] = int16(s0 + (s1-s0)*frac)
		}
	}
	return Audio{SampleRate: rate, Channels: a.Channels, Samples: out}
}
