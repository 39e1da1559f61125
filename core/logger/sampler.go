package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets through keep out of every window events. A zero window
// disables sampling.
type ratioSampler struct {
	ratio atomic.Uint64 // keep<<32 | window
	seen  atomic.Uint64
}

func newRatioSampler(keep, window int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, window)
	return s
}

func (s *ratioSampler) Set(keep, window int) {
	if keep <= 0 || window <= 0 {
		keep, window = 0, 0
	}
	keep = min(keep, window)
	s.ratio.Store(uint64(keep)<<32 | uint64(uint32(window)))
	s.seen.Store(0)
}

func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	keep, window := r>>32, r&0xffffffff
	if window == 0 {
		return true
	}
	n := (s.seen.Add(1) - 1) % window
	return n < keep
}

// parseRatioSpec accepts "k/n" or "n" (meaning 1/n). Anything unparsable or
// non-positive disables sampling.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	keepStr, windowStr, hasSlash := strings.Cut(spec, "/")
	if !hasSlash {
		keepStr, windowStr = "1", spec
	}
	keep, err := strconv.Atoi(strings.TrimSpace(keepStr))
	if err != nil {
		return 0, 0
	}
	window, err := strconv.Atoi(strings.TrimSpace(windowStr))
	if err != nil || keep <= 0 || window <= 0 {
		return 0, 0
	}
	return keep, window
}
