package service

import (
	"Extensible-Homework-Helper/internal/answer"
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/repository"
	"context"
	"fmt"

	"go.uber.org/zap"
)

type FillInResult struct {
	Entries     []model.CacheEntry  `json:"entries"`
	Corruptions []answer.Corruption `json:"corruptions,omitempty"`
	Picks       []answer.Pick       `json:"picks,omitempty"`
}

type SubmitResult struct {
	Submitted int `json:"submitted"`
	// Archive is the saved standard-answer set, empty if it could not be
	// fetched after submission.
	Archive string `json:"archive,omitempty"`
}

type GenerateResult struct {
	Answers       []model.Answer `json:"answers"`
	HasAudio      bool           `json:"has_audio"`
	PostProcessed int            `json:"post_processed"`
}

func (s *HomeworkService) Start(ctx context.Context, sess *Session, record *model.HomeworkRecord) error {
	if err := s.api.Start(ctx, sess.Token, record.APIID); err != nil {
		return fmt.Errorf("start %s: %w", record.Title, err)
	}
	sess.advance(record.APIID, model.StageStarted)
	s.logger.Info("homework started", zap.String("title", record.Title))
	return nil
}

func (s *HomeworkService) checkWritable(sess *Session, record *model.HomeworkRecord) error {
	stage := sess.Stage(record.APIID)
	if stage >= model.StageSubmitted {
		return fmt.Errorf("%w: %s", ErrAlreadySubmitted, record.Title)
	}
	if stage < model.StageStarted && !record.Status.StartedUpstream() {
		return fmt.Errorf("%w: %s is %s; start it first", ErrNotStarted, record.Title, record.Status)
	}
	return nil
}

// FillIn writes answers into the server-side cache without submitting. With
// a non-nil rate, choice answers are first corrupted to aim at that
// correctness rate.
func (s *HomeworkService) FillIn(ctx context.Context, sess *Session, record *model.HomeworkRecord, answers []model.Answer, rate *float64) (*FillInResult, error) {
	if err := s.checkWritable(sess, record); err != nil {
		return nil, err
	}
	questions, err := s.questions(ctx, sess, record)
	if err != nil {
		return nil, err
	}
	if len(questions) != len(answers) {
		return nil, fmt.Errorf("%w: %d answers provided for %d questions", answer.ErrShapeMismatch, len(answers), len(questions))
	}

	result := &FillInResult{}
	if rate != nil {
		answers, result.Corruptions, err = answer.Degrade(questions, answers, *rate, s.Random)
		if err != nil {
			return nil, err
		}
		for _, c := range result.Corruptions {
			s.logger.Info("answer corrupted", zap.Int("index", c.Index), zap.String("from", c.From), zap.String("to", c.To))
		}
	}

	result.Entries, result.Picks, err = answer.Resolve(questions, answers, s.Random)
	if err != nil {
		return nil, err
	}
	for _, p := range result.Picks {
		s.logger.Info("alternative picked", zap.Int("index", p.Index), zap.Strings("alternatives", p.Alternatives), zap.String("chosen", p.Chosen))
	}

	if err := s.api.SaveCache(ctx, sess.Token, &model.AnswersPayload{Answers: result.Entries, ID: record.APIID}); err != nil {
		return nil, fmt.Errorf("fill in %s: %w", record.Title, err)
	}
	sess.advance(record.APIID, model.StageAnswersCached)
	s.logger.Info("answers cached", zap.String("title", record.Title), zap.Int("count", len(result.Entries)))
	return result, nil
}

// Submit submits exactly what the server cache holds, then archives the
// standard answers the portal reveals after submission.
func (s *HomeworkService) Submit(ctx context.Context, sess *Session, record *model.HomeworkRecord) (*SubmitResult, error) {
	if sess.Stage(record.APIID) >= model.StageSubmitted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubmitted, record.Title)
	}
	entries, err := s.api.LoadCache(ctx, sess.Token, record.APIID)
	if err != nil {
		return nil, fmt.Errorf("load cache of %s: %w", record.Title, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCache, record.Title)
	}
	if err := s.api.Submit(ctx, sess.Token, &model.AnswersPayload{Answers: entries, ID: record.APIID}); err != nil {
		return nil, fmt.Errorf("submit %s: %w", record.Title, err)
	}
	sess.advance(record.APIID, model.StageSubmitted)
	s.logger.Info("homework submitted", zap.String("title", record.Title), zap.Int("answers", len(entries)))

	result := &SubmitResult{Submitted: len(entries)}
	if s.answerSets == nil {
		return result, nil
	}
	standard, err := s.DetailAnswers(ctx, sess, record)
	if err != nil {
		s.logger.Warn("standard answers unavailable after submit", zap.String("title", record.Title), zap.Error(err))
		return result, nil
	}
	if result.Archive, err = s.SaveAnswerSet(record, "detail", standard); err != nil {
		s.logger.Warn("archive standard answers", zap.String("title", record.Title), zap.Error(err))
	}
	return result, nil
}

// Generate asks the model to draft answers from the stored text and, for
// listening homework, the stored transcription. hasAudioHint is consulted
// only when the session is not logged in.
func (s *HomeworkService) Generate(ctx context.Context, sess *Session, record *model.HomeworkRecord, hasAudioHint *bool) (*GenerateResult, error) {
	if s.ai == nil {
		return nil, ErrNoAIClient
	}

	hasAudio := false
	if record.Kind == model.KindQuestions {
		switch {
		case sess.Token != nil:
			audioURL, err := s.FetchAudioURL(ctx, sess, record)
			if err != nil {
				return nil, fmt.Errorf("look up audio of %s: %w", record.Title, err)
			}
			hasAudio = audioURL != ""
		case hasAudioHint != nil:
			hasAudio = *hasAudioHint
		default:
			return nil, ErrAudioUnknown
		}
	}

	var transcription string
	if hasAudio {
		var err error
		transcription, err = s.artifacts.ReadText(record.Title, repository.ArtifactTranscription)
		if err != nil {
			return nil, fmt.Errorf("transcription of %s: %w", record.Title, err)
		}
	} else {
		s.logger.Info("no listening part; generating from text only", zap.String("title", record.Title))
	}
	text, err := s.artifacts.ReadText(record.Title, repository.ArtifactText)
	if err != nil {
		return nil, fmt.Errorf("text of %s: %w", record.Title, err)
	}

	raw, err := s.ai.Complete(ctx, BuildPrompt(record.Kind, text, transcription, hasAudio))
	if err != nil {
		return nil, fmt.Errorf("generate answers for %s: %w", record.Title, err)
	}
	answers, changed, err := answer.FromGenerated(record.Kind, raw)
	if err != nil {
		s.logger.Warn("model result rejected", zap.String("title", record.Title), zap.Int("chars", len(raw)))
		return nil, err
	}
	s.logger.Info("answers generated", zap.String("title", record.Title), zap.Int("count", len(answers)), zap.Int("post_processed", changed))
	return &GenerateResult{Answers: answers, HasAudio: hasAudio, PostProcessed: changed}, nil
}
