package engine

// MaxBallotOptions is the number of distinct reaction symbols available.
const MaxBallotOptions = 26

const ballotSymbols = "abcdefghijklmnopqrstuvwxyz"

// BallotOption pairs a single-letter reaction symbol with a map name.
type BallotOption struct {
	Symbol string
	Map    string
}

// BuildBallot assigns symbols to the map pool in pool order, 'a' first.
func BuildBallot(pool []string) []BallotOption {
	opts := make([]BallotOption, 0, len(pool))
	for i, m := range pool {
		if i >= len(ballotSymbols) {
			break
		}
		opts = append(opts, BallotOption{Symbol: string(ballotSymbols[i]), Map: m})
	}
	return opts
}

// VoteCount is one ballot line with its reaction tally.
type VoteCount struct {
	Map   string
	Count int
}

// Rand is the random source the coordinator injects. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// ResolveBallot picks the winning map from the tallies. Every map carrying
// the top count is a candidate; with more than one the winner is drawn
// uniformly and tied reports true.
func ResolveBallot(counts []VoteCount, rng Rand) (winner string, tied bool, err error) {
	if len(counts) == 0 {
		return "", false, ErrEmptyBallot
	}
	top := counts[0].Count
	for _, c := range counts[1:] {
		if c.Count > top {
			top = c.Count
		}
	}
	var leaders []string
	for _, c := range counts {
		if c.Count == top {
			leaders = append(leaders, c.Map)
		}
	}
	if len(leaders) == 1 {
		return leaders[0], false, nil
	}
	return leaders[rng.IntN(len(leaders))], true, nil
}
