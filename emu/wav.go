package emu

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"nescore/emu/log"
)

// WavWriter dumps the mixed audio output to a 16-bit mono WAV file.
type WavWriter struct {
	path string
	f    *os.File
	enc  *wav.Encoder
	buf  audio.IntBuffer
	n    int
}

// NewWavWriter creates the WAV file at path.
func NewWavWriter(path string, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return &WavWriter{
		path: path,
		f:    f,
		enc:  wav.NewEncoder(f, sampleRate, 16, 1, 1),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// Write appends samples to the file.
func (ww *WavWriter) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	ww.buf.Data = ww.buf.Data[:0]
	for _, s := range samples {
		ww.buf.Data = append(ww.buf.Data, int(s))
	}
	if err := ww.enc.Write(&ww.buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	ww.n += len(samples)
	return nil
}

// Close finalizes the WAV header and closes the file. Closing an already
// closed WavWriter is a no-op.
func (ww *WavWriter) Close() error {
	if ww.f == nil {
		return nil
	}
	err := ww.enc.Close()
	if cerr := ww.f.Close(); err == nil {
		err = cerr
	}
	ww.f = nil
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	log.ModSound.InfoZ("audio written").
		String("path", ww.path).
		Int("samples", ww.n).
		End()
	return nil
}
