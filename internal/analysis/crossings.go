package analysis

// UpCrossings returns the times at which values rises through level,
// linearly interpolated between samples.
func UpCrossings(times, values []float64, level float64) []float64 {
	var out []float64
	for i := 1; i < len(values) && i < len(times); i++ {
		prev, curr := values[i-1], values[i]
		if prev < level && curr >= level {
			frac := (level - prev) / (curr - prev)
			out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	return out
}

// Period is the mean spacing of consecutive up-crossings, or zero when fewer
// than two crossings exist.
func Period(times, values []float64, level float64) float64 {
	c := UpCrossings(times, values, level)
	if len(c) < 2 {
		return 0
	}
	return (c[len(c)-1] - c[0]) / float64(len(c)-1)
}
