package manager

import (
	"fmt"
	"os"

	units "github.com/docker/go-units"
)

// SplitMode decides whether the weights are split across devices:
// always when forced, otherwise when the blob is larger than threshold.
func SplitMode(force bool, size, threshold int64) bool {
	if force {
		return true
	}
	return size > threshold
}

// ParseSize parses a human size such as "11GiB" or "12g" into bytes
// (binary multiples).
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	return n, nil
}

// splitFor stats path and applies SplitMode. A failed stat counts as not
// exceeding the threshold.
func (m *Manager) splitFor(path string) (split bool, size int64) {
	if m.cfg.ForceSplit {
		m.log.Info().Str("path", path).Msg("split mode forced")
		return true, 0
	}
	fi, err := os.Stat(path)
	if err != nil {
		m.log.Warn().Err(err).Str("path", path).Msg("could not stat model; split mode off")
		return false, 0
	}
	size = fi.Size()
	split = SplitMode(false, size, m.cfg.SplitThreshold)
	if split {
		m.log.Info().Str("path", path).
			Str("size", units.BytesSize(float64(size))).
			Str("threshold", units.BytesSize(float64(m.cfg.SplitThreshold))).
			Msg("model exceeds threshold; split mode on")
	}
	return split, size
}
