package array5d

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats summarises the values of one channel.
type ChannelStats struct {
	Channel  int
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
}

// Stats returns per-channel summaries of a. Empty channels are skipped.
func (a *Array5D) Stats() []ChannelStats {
	var out []ChannelStats
	c := 0
	for ch := range a.unitSlabs('c') {
		if len(ch.data) > 0 {
			mean, variance := stat.MeanVariance(ch.data, nil)
			out = append(out, ChannelStats{
				Channel:  c,
				Mean:     mean,
				Variance: variance,
				Min:      floats.Min(ch.data),
				Max:      floats.Max(ch.data),
			})
		}
		c++
	}
	return out
}
