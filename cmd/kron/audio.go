package main

import "github.com/gopxl/beep/v2"

func audioRate(hz int) beep.SampleRate {
	if hz <= 0 {
		hz = 44100
	}
	return beep.SampleRate(hz)
}
