package answer

import (
	"Extensible-Homework-Helper/internal/model"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choiceSet(letters ...string) ([]model.Question, []model.Answer) {
	var questions []model.Question
	var answers []model.Answer
	for i, l := range letters {
		id := fmt.Sprintf("radio_%d", i+1)
		questions = append(questions, model.Question{Index: i + 1, TagID: id, Answer: l})
		answers = append(answers, model.Answer{Index: i + 1, ID: id, Kind: model.AnswerChoice, Content: model.Single(l)})
	}
	return questions, answers
}

func TestExpectedWrong(t *testing.T) {
	tests := []struct {
		total int
		rate  float64
		want  int
	}{
		{4, 0.5, 2},
		{4, 1.0, 0},
		{3, 0.0, 3},
		{10, 0.75, 2},
		{7, 0.5, 3},
		{0, 0.3, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d@%v", tt.total, tt.rate), func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedWrong(tt.total, tt.rate))
		})
	}
}

func TestDegradeHalf(t *testing.T) {
	questions, answers := choiceSet("A", "B", "C", "D")
	original := append([]model.Answer(nil), answers...)

	for seed := uint64(0); seed < 50; seed++ {
		src := rand.New(rand.NewPCG(seed, seed+1))
		got, corruptions, err := Degrade(questions, answers, 0.5, src)
		require.NoError(t, err)
		require.Len(t, corruptions, 2)
		assert.Less(t, corruptions[0].Index, corruptions[1].Index)

		changed := 0
		for i := range got {
			if got[i].Content.Text() == original[i].Content.Text() {
				assert.Equal(t, original[i], got[i])
				continue
			}
			changed++
			assert.Contains(t, choiceLetters, got[i].Content.Text())
		}
		assert.Equal(t, 2, changed)
		for _, c := range corruptions {
			assert.NotEqual(t, c.From, c.To)
			assert.Equal(t, c.To, got[c.Index-1].Content.Text())
		}
	}
	assert.Equal(t, original, answers, "input must not be mutated")
}

func TestDegradeFullRateIsNoop(t *testing.T) {
	questions, answers := choiceSet("A", "B", "C", "D")
	got, corruptions, err := Degrade(questions, answers, 1.0, nil)
	require.NoError(t, err)
	assert.Empty(t, corruptions)
	assert.Equal(t, answers, got)
}

func TestDegradeInsufficientChoices(t *testing.T) {
	questions := []model.Question{{Index: 1, TagID: "radio_1"}, {Index: 2, TagID: "text_2"}, {Index: 3, TagID: "text_3"}}
	answers := []model.Answer{
		{Index: 1, Kind: model.AnswerChoice, Content: model.Single("A")},
		{Index: 2, Kind: model.AnswerFillInBlanks, Content: model.Single("went")},
		{Index: 3, Kind: model.AnswerFillInBlanks, Content: model.Alternatives("is", "was")},
	}
	original := append([]model.Answer(nil), answers...)

	got, corruptions, err := Degrade(questions, answers, 0.0, nil)
	assert.ErrorIs(t, err, ErrInsufficientChoices)
	assert.Nil(t, got)
	assert.Nil(t, corruptions)
	assert.Equal(t, original, answers)
}

func TestDegradeCountMismatch(t *testing.T) {
	questions, answers := choiceSet("A", "B", "C")
	_, _, err := Degrade(questions[:2], answers, 0.5, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDegradeInvalidRate(t *testing.T) {
	questions, answers := choiceSet("A", "B")
	for _, rate := range []float64{-0.1, 1.5} {
		_, _, err := Degrade(questions, answers, rate, nil)
		assert.ErrorIs(t, err, ErrInvalidRate)
	}
}

func TestDegradeNeverTouchesFillInBlanks(t *testing.T) {
	questions := []model.Question{{Index: 1}, {Index: 2}, {Index: 3}, {Index: 4}}
	answers := []model.Answer{
		{Index: 1, Kind: model.AnswerFillInBlanks, Content: model.Single("went")},
		{Index: 2, Kind: model.AnswerChoice, Content: model.Single("b")},
		{Index: 3, Kind: model.AnswerChoiceOrFill, Content: model.Single("C")},
		{Index: 4, Kind: model.AnswerFillInBlanks, Content: model.Single("H")},
	}
	got, corruptions, err := Degrade(questions, answers, 0.5, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	require.Len(t, corruptions, 2)
	assert.Equal(t, answers[0], got[0])
	assert.Equal(t, answers[3], got[3])
	assert.NotEqual(t, "B", got[1].Content.Text())
	assert.NotEqual(t, "C", got[2].Content.Text())
	assert.Equal(t, "B", corruptions[0].From)
}

// Degrade draws a fresh sample on every call; over many runs on the same
// input more than one distinct subset must show up.
func TestDegradeIsNotIdempotent(t *testing.T) {
	questions, answers := choiceSet("A", "A", "A", "A", "A", "A")
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		_, corruptions, err := Degrade(questions, answers, 0.5, nil)
		require.NoError(t, err)
		seen[fmt.Sprint(corruptions)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestResolve(t *testing.T) {
	questions := []model.Question{{Index: 1, TagID: "radio_1"}, {Index: 2, TagID: "text_2"}}
	answers := []model.Answer{
		{Index: 1, Kind: model.AnswerChoice, Content: model.Single("D")},
		{Index: 2, Kind: model.AnswerFillInBlanks, Content: model.Alternatives("x", "y")},
	}
	entries, picks, err := Resolve(questions, answers, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.CacheEntry{TagID: "radio_1", Text: "D"}, entries[0])
	assert.Equal(t, "text_2", entries[1].TagID)
	assert.Contains(t, []string{"x", "y"}, entries[1].Text)

	require.Len(t, picks, 1)
	assert.Equal(t, 2, picks[0].Index)
	assert.Equal(t, entries[1].Text, picks[0].Chosen)

	_, _, err = Resolve(questions[:1], answers, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
