package apu

import (
	"slices"

	"github.com/arl/blip"

	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/snapshot"
)

const (
	DefaultSampleRate = 44100
	MaxSampleRate     = 96000

	// cycleLength is the number of CPU cycles after which the APU flushes
	// its deltas to the mixer, regardless of the video frame.
	cycleLength = 10000

	maxSamplesPerFrame = blip.MaxFrame

	// amplitude of the mixed output at full volume.
	outputScale = 30000
)

// MixerConfig holds the user facing audio settings.
type MixerConfig struct {
	SampleRate     int
	Volume         float64 // master volume, 0 to 1.
	FrequencyScale float64 // 1 plays at nominal pitch.
	Mute           [NumChannels]bool
	WaveShift      bool // offset each debug queue by its channel index.
}

func DefaultMixerConfig() MixerConfig {
	return MixerConfig{
		SampleRate:     DefaultSampleRate,
		Volume:         1,
		FrequencyScale: 1,
	}
}

// maximum output level of each channel.
var channelMax = [NumChannels]float64{15, 15, 15, 15, 127}

// Mixer combines the channel outputs with the non-linear NES mixing formulas
// and resamples them at the configured sample rate. Besides the mixed output,
// it keeps one debug queue per channel with the normalized channel level.
type Mixer struct {
	cfg MixerConfig

	main  *blip.Buffer
	chans [NumChannels]*blip.Buffer

	timestamps []uint32
	chanoutput [NumChannels][cycleLength]int16
	curOutput  [NumChannels]int16
	prevOut    int16
	prevChan   [NumChannels]int16

	clockRate float64

	samples   []int16
	debug     [NumChannels][]float32
	scratch   [maxSamplesPerFrame]int16
	totalRead uint64
}

func NewMixer(cfg MixerConfig) *Mixer {
	m := &Mixer{main: blip.NewBuffer(maxSamplesPerFrame)}
	for i := range m.chans {
		m.chans[i] = blip.NewBuffer(maxSamplesPerFrame)
	}
	m.Configure(cfg)
	m.Reset()
	return m
}

// Configure applies new settings. A change of sample rate or frequency scale
// takes effect at the next audio frame.
func (m *Mixer) Configure(cfg MixerConfig) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	cfg.SampleRate = min(cfg.SampleRate, MaxSampleRate)
	if cfg.FrequencyScale <= 0 {
		cfg.FrequencyScale = 1
	}
	cfg.Volume = max(0, min(cfg.Volume, 1))
	m.cfg = cfg
	m.updateRates(true)
}

func (m *Mixer) Config() MixerConfig { return m.cfg }

func (m *Mixer) Reset() {
	m.prevOut = 0
	m.main.Clear()
	for i := range m.chans {
		m.chans[i].Clear()
	}
	m.timestamps = m.timestamps[:0]
	clear(m.curOutput[:])
	clear(m.prevChan[:])
	for i := range m.chanoutput {
		clear(m.chanoutput[i][:])
	}
	m.Drain()
	m.updateRates(true)
}

func (m *Mixer) updateRates(force bool) {
	clockRate := float64(hwdefs.NTSCCPUClock) * m.cfg.FrequencyScale
	if !force && clockRate == m.clockRate {
		return
	}
	m.clockRate = clockRate
	m.main.SetRates(clockRate, float64(m.cfg.SampleRate))
	for i := range m.chans {
		m.chans[i].SetRates(clockRate, float64(m.cfg.SampleRate))
	}
	log.ModSound.DebugZ("mixer rates").
		Float("clock", clockRate).
		Int("sample rate", m.cfg.SampleRate).
		End()
}

func (m *Mixer) AddDelta(ch Channel, time uint32, delta int16) {
	if delta != 0 {
		m.timestamps = append(m.timestamps, time)
		m.chanoutput[ch][time] += delta
	}
}

func (m *Mixer) level(ch Channel) float64 {
	if m.cfg.Mute[ch] {
		return 0
	}
	return float64(m.curOutput[ch])
}

// mix returns the mixed output in [0, 1).
func (m *Mixer) mix() float64 {
	var out float64
	if pulse := m.level(Square1) + m.level(Square2); pulse > 0 {
		out += 95.88 / (8128/pulse + 100)
	}
	t, n, d := m.level(Triangle), m.level(Noise), m.level(DMC)
	if tnd := t/8227 + n/12241 + d/22638; tnd > 0 {
		out += 159.79 / (1/tnd + 100)
	}
	return out
}

func (m *Mixer) outputVolume() int16 {
	return int16(m.mix() * outputScale * m.cfg.Volume)
}

func (m *Mixer) debugLevel(ch Channel) int16 {
	return int16(float64(m.curOutput[ch]) / channelMax[ch] * outputScale)
}

// endFrame mixes all deltas received since the previous call and ends the
// blip frame at time.
func (m *Mixer) endFrame(time uint32) {
	slices.Sort(m.timestamps)
	m.timestamps = slices.Compact(m.timestamps)

	for _, stamp := range m.timestamps {
		for ch := range NumChannels {
			m.curOutput[ch] += m.chanoutput[ch][stamp]
		}

		out := m.outputVolume()
		m.main.AddDelta(uint64(stamp), int32(out-m.prevOut))
		m.prevOut = out

		for ch := range NumChannels {
			lvl := m.debugLevel(Channel(ch))
			if lvl != m.prevChan[ch] {
				m.chans[ch].AddDelta(uint64(stamp), int32(lvl-m.prevChan[ch]))
				m.prevChan[ch] = lvl
			}
		}
	}

	m.main.EndFrame(int(time))
	for ch := range m.chans {
		m.chans[ch].EndFrame(int(time))
	}

	m.timestamps = m.timestamps[:0]
	for i := range m.chanoutput {
		clear(m.chanoutput[i][:])
	}

	m.readSamples()
	m.updateRates(false)
}

func (m *Mixer) readSamples() {
	n := m.main.ReadSamples(m.scratch[:], maxSamplesPerFrame, blip.Mono)
	m.samples = append(m.samples, m.scratch[:n]...)
	m.totalRead += uint64(n)

	for ch := range m.chans {
		n := m.chans[ch].ReadSamples(m.scratch[:], maxSamplesPerFrame, blip.Mono)
		var shift float32
		if m.cfg.WaveShift {
			shift = float32(ch)
		}
		for _, s := range m.scratch[:n] {
			m.debug[ch] = append(m.debug[ch], float32(s)/outputScale+shift)
		}
	}
}

// Samples returns the mixed output queue accumulated since the last Drain.
// The slice is reused after Drain.
func (m *Mixer) Samples() []int16 { return m.samples }

// ChannelSamples returns the debug queue of a channel accumulated since the
// last Drain. Values are normalized channel levels in [0, 1], offset by the
// channel index when wave shift is enabled.
func (m *Mixer) ChannelSamples(ch Channel) []float32 { return m.debug[ch] }

// Drain empties all sample queues.
func (m *Mixer) Drain() {
	m.samples = m.samples[:0]
	for i := range m.debug {
		m.debug[i] = m.debug[i][:0]
	}
}

// TotalSamples returns the number of mixed samples produced since creation.
func (m *Mixer) TotalSamples() uint64 { return m.totalRead }

func (m *Mixer) serialize(s *snapshot.Serializer) {
	for ch := range NumChannels {
		cur := uint16(m.curOutput[ch])
		s.U16(&cur)
		m.curOutput[ch] = int16(cur)
	}
	if s.Loading() {
		// Resampling buffers restart from silence, the next delta brings
		// them back to the restored levels.
		m.prevOut = 0
		clear(m.prevChan[:])
		m.main.Clear()
		for i := range m.chans {
			m.chans[i].Clear()
		}
		m.timestamps = m.timestamps[:0]
		for i := range m.chanoutput {
			clear(m.chanoutput[i][:])
		}
	}
}
