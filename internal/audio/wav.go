// Package audio provides WAV container framing for raw PCM audio.
package audio

import (
	"encoding/binary"
	"time"
)

// WAV header is 44 bytes for standard PCM files.
const headerSize = 44

const (
	bitsPerSample = 16
	numChannels   = 1 // mono
)

// EncodeWAV wraps raw little-endian PCM16 mono samples in a standard RIFF
// WAV container at the given sample rate.
func EncodeWAV(pcm []byte, sampleRateHz int) []byte {
	out := make([]byte, headerSize+len(pcm))

	byteRate := sampleRateHz * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], numChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRateHz))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[headerSize:], pcm)

	return out
}

// Duration returns the playback duration of a WAV clip produced by
// EncodeWAV, or zero for anything too short to carry a header.
func Duration(wav []byte) time.Duration {
	if len(wav) < headerSize {
		return 0
	}
	sampleRate := binary.LittleEndian.Uint32(wav[24:28])
	byteRate := binary.LittleEndian.Uint32(wav[28:32])
	if sampleRate == 0 || byteRate == 0 {
		return 0
	}
	dataLen := len(wav) - headerSize
	return time.Duration(float64(dataLen) / float64(byteRate) * float64(time.Second))
}
