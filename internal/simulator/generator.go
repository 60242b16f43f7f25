package simulator

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/livescore/internal/domain/leaderboard"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
)

// TeamName and EvaluatorName build the generated identities.
func TeamName(i int) string      { return fmt.Sprintf("Team-%03d", i) }
func EvaluatorName(i int) string { return fmt.Sprintf("judge-%03d", i) }

// Generate returns one submission per evaluator and team followed by
// cfg.Rescores replacements of random earlier pairs. Every value lies in
// [0, MaxScore] of its criterion.
func Generate(cfg Config, criteria []model.Criterion) []Submission {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	out := make([]Submission, 0, cfg.Teams*cfg.Evaluators+cfg.Rescores)
	for e := 1; e <= cfg.Evaluators; e++ {
		for t := 1; t <= cfg.Teams; t++ {
			out = append(out, Submission{
				Evaluator: EvaluatorName(e),
				Team:      TeamName(t),
				Scores:    randomScores(rng, criteria),
			})
		}
	}
	for range cfg.Rescores {
		out = append(out, Submission{
			Evaluator: EvaluatorName(1 + rng.IntN(cfg.Evaluators)),
			Team:      TeamName(1 + rng.IntN(cfg.Teams)),
			Scores:    randomScores(rng, criteria),
		})
	}
	return out
}

func randomScores(rng *rand.Rand, criteria []model.Criterion) map[string]int {
	scores := make(map[string]int, len(criteria))
	for _, c := range criteria {
		scores[c.Name] = rng.IntN(c.MaxScore + 1)
	}
	return scores
}

// Expected computes the leaderboard the service should serve once subs are
// applied in order, the last submission per evaluator and team winning.
func Expected(subs []Submission) []types.Entry {
	type key struct{ evaluator, team string }
	latest := make(map[key]Submission, len(subs))
	for _, s := range subs {
		latest[key{s.Evaluator, s.Team}] = s
	}
	entries := make([]model.ScoreEntry, 0, len(latest))
	for _, s := range latest {
		entries = append(entries, model.ScoreEntry{EvaluatorID: s.Evaluator, TeamID: s.Team, Scores: s.Scores})
	}
	return leaderboard.Compute(entries)
}

// byEvaluator splits subs per evaluator, keeping each evaluator's order.
func byEvaluator(subs []Submission) [][]Submission {
	idx := make(map[string]int)
	var groups [][]Submission
	for _, s := range subs {
		i, ok := idx[s.Evaluator]
		if !ok {
			i = len(groups)
			idx[s.Evaluator] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}
