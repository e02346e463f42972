package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// AudioFormatWAVE is the audio format reported for RIFF/WAVE input.
const AudioFormatWAVE = "audio/wave"

// maxHeaderSize bounds how far into the input the fmt chunk is searched.
const maxHeaderSize = 64 << 10

const wavFormatPCM = 1

var (
	// ErrInvalidWAV is returned when the input is not a RIFF/WAVE stream.
	ErrInvalidWAV = errors.New("recorder: invalid WAV header")

	// ErrUnsupportedFormat is returned for WAVE data that is not linear PCM.
	ErrUnsupportedFormat = errors.New("recorder: unsupported WAV format")
)

// peekWAVSpec reads the audio spec from the WAV header at the start of br
// without consuming any input. br must buffer at least maxHeaderSize bytes.
func peekWAVSpec(br *bufio.Reader) (itslanguage.AudioSpec, error) {
	hdr, err := br.Peek(12)
	if err != nil {
		return itslanguage.AudioSpec{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return itslanguage.AudioSpec{}, ErrInvalidWAV
	}

	off := 12
	for off+8 <= maxHeaderSize {
		h, err := br.Peek(off + 8)
		if err != nil {
			return itslanguage.AudioSpec{}, fmt.Errorf("%w: no fmt chunk", ErrInvalidWAV)
		}
		id := string(h[off : off+4])
		size := int(binary.LittleEndian.Uint32(h[off+4 : off+8]))

		if id != "fmt " {
			// Chunks are padded to an even size.
			off += 8 + size + size&1
			continue
		}
		if size < 16 {
			return itslanguage.AudioSpec{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
		}
		b, err := br.Peek(off + 8 + 16)
		if err != nil {
			return itslanguage.AudioSpec{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		fmtChunk := b[off+8:]
		if tag := binary.LittleEndian.Uint16(fmtChunk[0:2]); tag != wavFormatPCM {
			return itslanguage.AudioSpec{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, tag)
		}
		return itslanguage.AudioSpec{
			AudioFormat: AudioFormatWAVE,
			AudioParameters: itslanguage.AudioParameters{
				Channels:    int(binary.LittleEndian.Uint16(fmtChunk[2:4])),
				SampleRate:  int(binary.LittleEndian.Uint32(fmtChunk[4:8])),
				SampleWidth: int(binary.LittleEndian.Uint16(fmtChunk[14:16])),
			},
		}, nil
	}
	return itslanguage.AudioSpec{}, fmt.Errorf("%w: fmt chunk not found in first %d bytes", ErrInvalidWAV, maxHeaderSize)
}

// bytesRate returns the number of audio bytes per second.
func bytesRate(p itslanguage.AudioParameters) int {
	return p.SampleRate * p.Channels * p.SampleWidth / 8
}

// duration returns the play time of n bytes of audio.
func duration(p itslanguage.AudioParameters, n int) time.Duration {
	rate := bytesRate(p)
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
