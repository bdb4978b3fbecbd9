package engine

import "math"

// encodePCM converts mixed stereo frames into interleaved little-endian PCM
// for the device. Mono output averages both sides. bitDepth is in bytes:
// 1 writes unsigned 8-bit, 2 writes signed 16-bit. Returns bytes written.
func encodePCM(dst []byte, frames [][2]float64, channels, bitDepth int) int {
	n := 0
	for _, frame := range frames {
		if channels == 1 {
			n += putSample(dst[n:], (frame[0]+frame[1])/2, bitDepth)
			continue
		}
		n += putSample(dst[n:], frame[0], bitDepth)
		n += putSample(dst[n:], frame[1], bitDepth)
	}
	return n
}

func putSample(dst []byte, v float64, bitDepth int) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	if bitDepth == 1 {
		dst[0] = byte(int(math.Round(v*127)) + 128)
		return 1
	}

	s := int16(math.Round(v * 32767))
	dst[0] = byte(s)
	dst[1] = byte(s >> 8)
	return 2
}

// frameSize is the number of bytes one output frame occupies
func frameSize(channels, bitDepth int) int {
	return channels * bitDepth
}
