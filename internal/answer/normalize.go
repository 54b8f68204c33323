// Package answer turns the portal's answer encodings into canonical answer
// entries and applies answer-level policy (degradation, alternative picks).
package answer

import (
	"Extensible-Homework-Helper/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	ErrShapeMismatch       = errors.New("answer shape mismatch")
	ErrInsufficientChoices = errors.New("not enough choice questions")
	ErrInvalidRate         = errors.New("correctness rate must be within [0, 1]")
)

// KindFromID infers the answer kind from the upstream tag id, which is the
// name attribute of the radio or text input on the paper page.
func KindFromID(id string) model.AnswerKind {
	switch {
	case strings.HasPrefix(id, "radio"):
		return model.AnswerChoice
	case strings.HasPrefix(id, "text"):
		return model.AnswerFillInBlanks
	default:
		return model.AnswerUnknown
	}
}

// SplitAlternatives splits a fill-in-blanks answer listing several acceptable
// answers separated by "/".
func SplitAlternatives(kind model.AnswerKind, content string) model.Content {
	if kind == model.AnswerFillInBlanks && utf8.RuneCountInString(content) >= 2 && strings.Contains(content, "/") {
		return model.Alternatives(strings.Split(content, "/")...)
	}
	return model.Single(content)
}

func FromDetail(d model.DetailResponse) ([]model.Answer, error) {
	answers := make([]model.Answer, 0, len(d.SubResults))
	for i, r := range d.SubResults {
		if r.TagID == nil || r.StandardAnswer == nil {
			return nil, fmt.Errorf("%w: detail entry %d lacks tagId or standardAnswer", ErrShapeMismatch, i+1)
		}
		kind := KindFromID(*r.TagID)
		answers = append(answers, model.Answer{
			Index:   i + 1,
			ID:      *r.TagID,
			Kind:    kind,
			Content: SplitAlternatives(kind, *r.StandardAnswer),
		})
	}
	return answers, nil
}

// Questions converts paper flows into questions ordered by their sort value.
func Questions(flows []model.PaperFlow) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(flows))
	for i, f := range flows {
		if f.Sort == nil || f.TagID == nil || f.Answer == nil {
			return nil, fmt.Errorf("%w: paper flow %d lacks sort, tagId or answer", ErrShapeMismatch, i)
		}
		questions = append(questions, model.Question{
			Index:  *f.Sort,
			APIID:  f.ID.String(),
			TagID:  *f.TagID,
			Answer: *f.Answer,
			Score:  f.Score,
		})
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Index < questions[j].Index })
	return questions, nil
}

// FromPaper reads the answer key embedded in paper questions.
func FromPaper(questions []model.Question) []model.Answer {
	answers := make([]model.Answer, 0, len(questions))
	for _, q := range questions {
		kind := KindFromID(q.TagID)
		answers = append(answers, model.Answer{
			Index:   q.Index,
			ID:      q.TagID,
			Kind:    kind,
			Content: SplitAlternatives(kind, q.Answer),
		})
	}
	return answers
}

func FromCache(entries []model.CacheEntry) []model.Answer {
	answers := make([]model.Answer, 0, len(entries))
	for i, e := range entries {
		answers = append(answers, model.Answer{
			Index:   i + 1,
			ID:      e.TagID,
			Kind:    KindFromID(e.TagID),
			Content: model.Single(e.Text),
		})
	}
	return answers
}

type generatedEntry struct {
	Index   *int           `json:"index"`
	Kind    *string        `json:"kind"`
	Content *model.Content `json:"content"`
}

// FromGenerated decodes a model response and re-infers kinds the model is
// unreliable about. It returns the answers and how many of them were
// rewritten by post-processing.
func FromGenerated(hwKind model.HomeworkKind, raw string) ([]model.Answer, int, error) {
	var entries []*generatedEntry
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &entries); err != nil {
		return nil, 0, fmt.Errorf("%w: model result is not a valid JSON answer list: %v", ErrShapeMismatch, err)
	}

	answers := make([]model.Answer, 0, len(entries))
	for i, e := range entries {
		if e == nil || e.Index == nil || e.Kind == nil || e.Content == nil {
			return nil, 0, fmt.Errorf("%w: generated entry %d lacks index, kind or content", ErrShapeMismatch, i+1)
		}
		if *e.Index < 1 {
			return nil, 0, fmt.Errorf("%w: generated entry %d has index %d", ErrShapeMismatch, i+1, *e.Index)
		}
		answers = append(answers, model.Answer{
			Index:   *e.Index,
			Kind:    model.ParseAnswerKind(*e.Kind),
			Content: *e.Content,
		})
	}

	if hwKind == model.KindTranslation {
		changed := 0
		for i := range answers {
			if answers[i].Kind != model.AnswerTranslation {
				answers[i].Kind = model.AnswerTranslation
				changed++
			}
		}
		return answers, changed, nil
	}

	changed := 0
	for i := range answers {
		if reinferKind(&answers[i]) {
			changed++
		}
	}
	return answers, changed, nil
}

func reinferKind(a *model.Answer) bool {
	if a.Content.IsAlternatives() {
		if a.Kind == model.AnswerFillInBlanks {
			return false
		}
		a.Kind = model.AnswerFillInBlanks
		return true
	}

	text := a.Content.Text()
	switch n := utf8.RuneCountInString(text); {
	case n >= 2:
		changed := a.Kind != model.AnswerFillInBlanks
		a.Kind = model.AnswerFillInBlanks
		if strings.Contains(text, "/") {
			a.Content = model.Alternatives(strings.Split(text, "/")...)
			changed = true
		}
		return changed
	case n == 1:
		before := a.Kind
		c := strings.ToUpper(text)[0]
		switch {
		case c >= 'A' && c <= 'D':
			a.Kind = model.AnswerChoiceOrFill
		case c >= 'E' && c <= 'Z':
			a.Kind = model.AnswerFillInBlanks
		}
		return a.Kind != before
	}
	return false
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
