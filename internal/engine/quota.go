package engine

// RoundQuota counts the rounds of one stratum and enforces a maximum.
//
// A program whose rules keep producing distinct facts (an unbounded
// counter) never converges. The quota is the caller's cap on that; zero
// means unlimited, which is the default.
//
// Each stratum gets its own RoundQuota; the count is checked before every
// round.
type RoundQuota struct {
	maxRounds int
	current   int
}

// NewRoundQuota creates a quota allowing maxRounds rounds, or unlimited
// rounds when maxRounds <= 0.
func NewRoundQuota(maxRounds int) *RoundQuota {
	return &RoundQuota{maxRounds: maxRounds}
}

// Check counts one more round for the stratum and fails with a
// ROUND_LIMIT RuntimeError once the limit is passed.
func (q *RoundQuota) Check(stratum int, relations []string) error {
	q.current++
	if q.maxRounds > 0 && q.current > q.maxRounds {
		return NewRoundLimitError(stratum, relations, q.maxRounds)
	}
	return nil
}

// Current returns the number of rounds counted so far.
func (q *RoundQuota) Current() int {
	return q.current
}

// MaxRounds returns the configured limit, 0 for unlimited.
func (q *RoundQuota) MaxRounds() int {
	return q.maxRounds
}
