package trust

// mean is a running arithmetic mean.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// meanAndVariance returns the mean and the population variance of values.
func meanAndVariance(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var m mean
	for _, v := range values {
		m.add(v)
	}
	avg := m.value()

	var sq float64
	for _, v := range values {
		sq += (v - avg) * (v - avg)
	}
	return avg, sq / float64(len(values))
}
