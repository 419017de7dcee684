package utils

import (
	"fmt"
	"math"
)

const (
	// LehmerMultiplier is the multiplier (7^5) of the congruential generator
	LehmerMultiplier int64 = 16807
	// LehmerModulus is the prime modulus 2^31 - 1
	LehmerModulus int64 = 2147483647

	// DefaultStream is the stream index used when none is configured
	DefaultStream = 1
	// NumStreams is the number of predefined streams (1..NumStreams)
	NumStreams = 15
)

// streamSeeds holds the initial seed of streams 1 through 15. Index 0 is unused.
var streamSeeds = [NumStreams + 1]int64{
	0,
	1973272912, 747177549, 20464843, 640830765, 1098742207,
	78126602, 84743774, 831312807, 124667236, 1172177002,
	1124933064, 1223960546, 1878892440, 1449793615, 553303732,
}

// StreamSeed returns the initial seed of a predefined stream.
func StreamSeed(stream int) (int64, error) {
	if stream < 1 || stream > NumStreams {
		return 0, fmt.Errorf("stream %d out of range [1, %d]", stream, NumStreams)
	}
	return streamSeeds[stream], nil
}

// RandSource is a multiplicative congruential (Lehmer) generator with
// multiplier 16807 and modulus 2^31-1. It is not safe for concurrent use;
// every simulation run owns its own source.
type RandSource struct {
	seed int64
}

// NewRandSource creates a source positioned at the start of a predefined stream
func NewRandSource(stream int) (*RandSource, error) {
	seed, err := StreamSeed(stream)
	if err != nil {
		return nil, err
	}
	return &RandSource{seed: seed}, nil
}

// NewDefaultRandSource creates a source on DefaultStream
func NewDefaultRandSource() *RandSource {
	return &RandSource{seed: streamSeeds[DefaultStream]}
}

// NewSeededRandSource creates a source from an explicit seed in [1, 2^31-2]
func NewSeededRandSource(seed int64) (*RandSource, error) {
	if seed < 1 || seed >= LehmerModulus {
		return nil, fmt.Errorf("seed %d out of range [1, %d]", seed, LehmerModulus-1)
	}
	return &RandSource{seed: seed}, nil
}

// Seed returns the current generator state
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 advances the stream and returns a uniform value in (0, 1).
// 64-bit arithmetic makes Schrage's decomposition unnecessary.
func (r *RandSource) Float64() float64 {
	r.seed = (r.seed * LehmerMultiplier) % LehmerModulus
	return float64(r.seed) / float64(LehmerModulus)
}

// ExpFloat64 returns an exponentially distributed value with the given mean
// using inverse-transform sampling.
func (r *RandSource) ExpFloat64(mean float64) float64 {
	if mean < 0 || math.IsNaN(mean) {
		panic(fmt.Sprintf("utils: exponential mean must be non-negative, got %v", mean))
	}
	return -mean * math.Log(r.Float64())
}
