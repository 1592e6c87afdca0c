package services

// seededRand is the deterministic generator behind paper assembly.
// The seed string hashes to the initial state with a rolling base-31 hash
// kept below 2^31; each step advances a linear congruential generator:
//
//	state = (state*9301 + 49297) mod 233280
//
// Identical seeds therefore replay identical shuffle sequences across
// processes, which is what makes generated papers reproducible.
type seededRand struct {
	state int64
}

func newSeededRand(seed string) *seededRand {
	var state int64
	for _, r := range seed {
		state = (state*31 + int64(r)) % 2147483648
	}
	return &seededRand{state: state}
}

// next returns a float in [0, 1)
func (r *seededRand) next() float64 {
	r.state = (r.state*9301 + 49297) % 233280
	return float64(r.state) / 233280
}

// intn returns an int in [0, n)
func (r *seededRand) intn(n int) int {
	return int(r.next() * float64(n))
}

// shuffle runs a Fisher-Yates pass driven by the generator
func (r *seededRand) shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.intn(i + 1)
		swap(i, j)
	}
}
