package answer

import (
	"Extensible-Homework-Helper/internal/model"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

var choiceLetters = []string{"A", "B", "C", "D"}

// Source is the random source used for sampling. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type processSource struct{}

func (processSource) IntN(n int) int { return rand.IntN(n) }

// ProcessSource draws from the process-wide generator.
var ProcessSource Source = processSource{}

type Corruption struct {
	Index int    `json:"index"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type Pick struct {
	Index        int      `json:"index"`
	Alternatives []string `json:"alternatives"`
	Chosen       string   `json:"chosen"`
}

// ExpectedWrong is the number of answers to corrupt so that total questions
// answered correctly does not exceed rate.
func ExpectedWrong(total int, rate float64) int {
	return int(math.Floor(float64(total) * (1 - rate)))
}

// Degrade returns a copy of answers where a random subset of choice answers
// has been replaced by a different option, to aim at the given correctness
// rate. Fill-in-blanks answers are never touched. Every call samples anew.
func Degrade(questions []model.Question, answers []model.Answer, rate float64, src Source) ([]model.Answer, []Corruption, error) {
	if len(questions) != len(answers) {
		return nil, nil, fmt.Errorf("%w: %d answers for %d questions", ErrShapeMismatch, len(answers), len(questions))
	}
	if rate < 0 || rate > 1 || math.IsNaN(rate) {
		return nil, nil, fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	if src == nil {
		src = ProcessSource
	}

	expected := ExpectedWrong(len(questions), rate)
	var eligible []int
	for i, a := range answers {
		if a.Kind.Degradable() {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) < expected {
		return nil, nil, fmt.Errorf("%w: %d choices available, %d wrong answers requested", ErrInsufficientChoices, len(eligible), expected)
	}

	out := make([]model.Answer, len(answers))
	copy(out, answers)
	if expected == 0 {
		return out, nil, nil
	}

	for k := 0; k < expected; k++ {
		j := k + src.IntN(len(eligible)-k)
		eligible[k], eligible[j] = eligible[j], eligible[k]
	}
	picked := eligible[:expected]
	sort.Ints(picked)

	corruptions := make([]Corruption, 0, expected)
	for _, i := range picked {
		original := strings.ToUpper(out[i].Content.Text())
		options := make([]string, 0, len(choiceLetters))
		for _, l := range choiceLetters {
			if l != original {
				options = append(options, l)
			}
		}
		wrong := options[src.IntN(len(options))]
		out[i].Content = model.Single(wrong)
		corruptions = append(corruptions, Corruption{Index: questions[i].Index, From: original, To: wrong})
	}
	return out, corruptions, nil
}

// Resolve builds the cache entries to write for answers, addressing each by
// the tag id of the paper question at the same position. Alternatives are
// collapsed to one uniformly chosen value.
func Resolve(questions []model.Question, answers []model.Answer, src Source) ([]model.CacheEntry, []Pick, error) {
	if len(questions) != len(answers) {
		return nil, nil, fmt.Errorf("%w: %d answers for %d questions", ErrShapeMismatch, len(answers), len(questions))
	}
	if src == nil {
		src = ProcessSource
	}

	entries := make([]model.CacheEntry, 0, len(answers))
	var picks []Pick
	for i, a := range answers {
		text := a.Content.Text()
		if a.Content.IsAlternatives() {
			vs := a.Content.Values()
			text = vs[src.IntN(len(vs))]
			picks = append(picks, Pick{Index: questions[i].Index, Alternatives: vs, Chosen: text})
		}
		entries = append(entries, model.CacheEntry{TagID: questions[i].TagID, Text: text})
	}
	return entries, picks, nil
}
