package testpredict

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/chase/internal/domain/types"
)

const (
	oversLimit   = 20
	ballsPerOver = 6
	maxTarget    = 240
	minTarget    = 80
)

var (
	batsmen = []string{"Kohli", "Buttler", "Babar", "Warner", "Rohit", "Conway", "Markram", "Pooran"}
	bowlers = []string{"Bumrah", "Rashid", "Starc", "Shaheen", "Boult", "Rabada", "Hasaranga", "Archer"}
)

// Generate returns n random second-innings states. The same non-zero seed
// yields the same states; ids are always fresh.
func Generate(n int, seed uint64) []Sample {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]Sample, n)
	for i := range out {
		target := minTarget + rng.IntN(maxTarget-minTarget+1)
		balls := rng.IntN(oversLimit*ballsPerOver + 1)
		// Score roughly tracks a chase at a random pace, capped below target.
		pace := 0.5 + rng.Float64()
		score := min(target-1, int(float64(target)*pace*float64(balls)/float64(oversLimit*ballsPerOver)))
		b := balls
		st := types.StateRequest{
			Score:        max(0, score),
			Wickets:      min(10, rng.IntN(11)*balls/(oversLimit*ballsPerOver)+rng.IntN(2)),
			BallsElapsed: &b,
			Target:       target,
			OversLimit:   oversLimit,
			Batsman:      batsmen[rng.IntN(len(batsmen))],
			Bowler:       bowlers[rng.IntN(len(bowlers))],
		}
		out[i] = Sample{ID: uuid.NewString(), State: st}
	}
	return out
}
