package matching

import (
	"sort"

	"github.com/desertthunder/synclify/internal/models"
)

// Scoring defaults.
const (
	DefaultAcceptThreshold   = 0.35
	DefaultSubsetBonus       = 0.15
	DefaultCollectionPenalty = 0.08
)

// Scorer ranks web search candidates against a target track.
type Scorer struct {
	AcceptThreshold   float64
	SubsetBonus       float64
	CollectionPenalty float64
}

// NewScorer returns a [Scorer] with the default weights.
func NewScorer() *Scorer {
	return &Scorer{
		AcceptThreshold:   DefaultAcceptThreshold,
		SubsetBonus:       DefaultSubsetBonus,
		CollectionPenalty: DefaultCollectionPenalty,
	}
}

// Scored pairs a candidate with its score.
type Scored struct {
	Candidate models.Candidate
	Score     float64
}

// Jaccard is |a ∩ b| / |a ∪ b|, and 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Score rates a candidate title against the target. The result lies in
// [-CollectionPenalty, 1+SubsetBonus].
func (s *Scorer) Score(candidateTitle, targetTitle string, targetArtists []string, collection bool) float64 {
	cand := TokenSet(candidateTitle)
	titleTokens := TokenSet(targetTitle)

	desired := make(map[string]struct{}, len(titleTokens)+signatureSize)
	for k := range titleTokens {
		desired[k] = struct{}{}
	}
	for _, a := range NormalizeArtists(targetArtists) {
		desired[a] = struct{}{}
	}

	score := Jaccard(cand, desired)
	if len(titleTokens) > 0 && subset(titleTokens, cand) {
		score += s.SubsetBonus
	}
	if collection {
		score -= s.CollectionPenalty
	}
	return score
}

// Rank scores every candidate, highest first. Equal scores keep input order.
func (s *Scorer) Rank(candidates []models.Candidate, targetTitle string, targetArtists []string) []Scored {
	ranked := make([]Scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = Scored{Candidate: c, Score: s.Score(c.Title, targetTitle, targetArtists, c.Collection)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// PickBest returns the top ranked candidate when its score reaches AcceptThreshold.
func (s *Scorer) PickBest(candidates []models.Candidate, targetTitle string, targetArtists []string) (models.Candidate, bool) {
	if len(candidates) == 0 {
		return models.Candidate{}, false
	}
	best := s.Rank(candidates, targetTitle, targetArtists)[0]
	if best.Score < s.AcceptThreshold {
		return models.Candidate{}, false
	}
	return best.Candidate, true
}

func subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
