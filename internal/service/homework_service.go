package service

import (
	"Extensible-Homework-Helper/internal/answer"
	"Extensible-Homework-Helper/internal/client"
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/repository"
	"Extensible-Homework-Helper/internal/transcribe"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var (
	ErrIndexOutOfRange  = errors.New("homework index out of range")
	ErrNotStarted       = errors.New("homework has not been started")
	ErrAlreadySubmitted = errors.New("homework already submitted in this session")
	ErrEmptyCache       = errors.New("no cached answers to submit; fill in answers first")
	ErrNoAudio          = errors.New("homework has no listening audio")
	ErrAudioUnknown     = errors.New("not logged in; cannot tell whether the homework has listening audio")
	ErrNoTaskPaper      = errors.New("homework has no task paper")
	ErrNoAIClient       = errors.New("no AI client configured")
	ErrNoTranscriber    = errors.New("no transcriber configured")
)

// PortalAPI is the part of the portal client the workflow calls.
type PortalAPI interface {
	ListTasks(ctx context.Context, token *model.Token, kind model.HomeworkKind, page int) (*model.TaskPage, error)
	FetchDetail(ctx context.Context, token *model.Token, id string) (*model.DetailResponse, error)
	FetchPaper(ctx context.Context, token *model.Token, taskPaperID string) (*model.PaperResponse, error)
	FetchSentences(ctx context.Context, token *model.Token, id string) ([]model.SentenceQuestion, error)
	LoadCache(ctx context.Context, token *model.Token, id string) ([]model.CacheEntry, error)
	SaveCache(ctx context.Context, token *model.Token, payload *model.AnswersPayload) error
	Submit(ctx context.Context, token *model.Token, payload *model.AnswersPayload) error
	Start(ctx context.Context, token *model.Token, id string) error
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

type Authenticator interface {
	Login(ctx context.Context, cred model.Credentials) (*model.Token, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HomeworkService runs the homework workflow over a caller-owned Session. It
// keeps no per-user state of its own.
type HomeworkService struct {
	api         PortalAPI
	auth        Authenticator
	ai          Completer
	transcriber transcribe.Transcriber
	artifacts   *repository.ArtifactRepository
	answerSets  *repository.AnswerSetRepository
	logger      *zap.Logger

	// Random drives degradation and alternative picks.
	Random answer.Source
}

func NewHomeworkService(
	api PortalAPI,
	auth Authenticator,
	ai Completer,
	transcriber transcribe.Transcriber,
	artifacts *repository.ArtifactRepository,
	answerSets *repository.AnswerSetRepository,
	logger *zap.Logger,
) *HomeworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{
		api:         api,
		auth:        auth,
		ai:          ai,
		transcriber: transcriber,
		artifacts:   artifacts,
		answerSets:  answerSets,
		logger:      logger.Named("homework"),
		Random:      answer.ProcessSource,
	}
}

func (s *HomeworkService) Login(ctx context.Context, sess *Session, cred model.Credentials) error {
	token, err := s.auth.Login(ctx, cred)
	if err != nil {
		return err
	}
	sess.replaceToken(token)
	return nil
}

// List fetches every page of both listings, newest first. A failing page
// leaves the session's previous list untouched.
func (s *HomeworkService) List(ctx context.Context, sess *Session) ([]model.HomeworkRecord, error) {
	if _, err := client.AuthHeader(sess.Token); err != nil {
		return nil, err
	}

	var records []model.HomeworkRecord
	for _, kind := range []model.HomeworkKind{model.KindQuestions, model.KindTranslation} {
		kindRecords, err := s.listKind(ctx, sess.Token, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s homework: %w", kind, err)
		}
		records = append(records, kindRecords...)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PublishTime.After(records[j].PublishTime)
	})

	sess.Homework = records
	s.logger.Info("homework listed", zap.Int("count", len(records)))
	return records, nil
}

func (s *HomeworkService) listKind(ctx context.Context, token *model.Token, kind model.HomeworkKind) ([]model.HomeworkRecord, error) {
	var records []model.HomeworkRecord
	for page := 1; ; page++ {
		taskPage, err := s.api.ListTasks(ctx, token, kind, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		for _, item := range taskPage.Items() {
			record, err := toRecord(item, kind)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		s.logger.Debug("page fetched", zap.String("kind", string(kind)), zap.Int("page", page), zap.Int("page_count", taskPage.PageCount))
		if page >= taskPage.PageCount {
			return records, nil
		}
	}
}

func toRecord(item model.TaskItem, kind model.HomeworkKind) (model.HomeworkRecord, error) {
	publish, err := time.ParseInLocation(model.TimeFormat, item.BeginTime, time.Local)
	if err != nil {
		return model.HomeworkRecord{}, fmt.Errorf("%w: homework %s begin time %q", answer.ErrShapeMismatch, item.ID, item.BeginTime)
	}
	title := item.TaskTitle
	if title == "" {
		title = item.Title
	}
	score := item.Score
	if score == nil {
		score = item.OwnerScore
	}
	var code *int
	if item.Status != nil {
		c := int(*item.Status)
		code = &c
	}
	return model.HomeworkRecord{
		APIID:          item.ID.String(),
		APITaskID:      item.TaskID.String(),
		APITaskPaperID: item.TaskPaperID.String(),
		APIBatchID:     item.BatchID.String(),
		Title:          title,
		Kind:           kind,
		PublisherName:  item.AssignerName,
		PublishTime:    publish,
		CurrentScore:   score,
		TotalScore:     item.TotalScore,
		Status:         model.StatusFromCode(code),
	}, nil
}

func (s *HomeworkService) paper(ctx context.Context, sess *Session, record *model.HomeworkRecord) (*model.PaperResponse, error) {
	if record.APITaskPaperID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTaskPaper, record.Title)
	}
	return s.api.FetchPaper(ctx, sess.Token, record.APITaskPaperID)
}

func (s *HomeworkService) questions(ctx context.Context, sess *Session, record *model.HomeworkRecord) ([]model.Question, error) {
	paper, err := s.paper(ctx, sess, record)
	if err != nil {
		return nil, err
	}
	return answer.Questions(paper.Flows)
}

// Every whitespace rune except newline, Unicode spaces included.
var whitespaceRun = regexp.MustCompile(`[\t\v\f\r\p{Zs}]+`)

// PaperText extracts the readable text of paper HTML: text nodes one per
// line, runs of non-newline whitespace squeezed to one space and blank lines
// collapsed.
func PaperText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse paper html: %w", err)
	}
	var parts []string
	collectText(doc.Selection, &parts)

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	text = strings.ReplaceAll(text, "\n \n", "\n")
	return strings.ReplaceAll(text, "\n\n", "\n"), nil
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			*parts = append(*parts, c.Text())
		case "#comment", "script", "style":
		default:
			collectText(c, parts)
		}
	})
}

// AudioURL returns the src of the first audio element, or "" if there is
// none.
func AudioURL(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse paper html: %w", err)
	}
	src, _ := doc.Find("audio").First().Attr("src")
	return strings.TrimSpace(src), nil
}

func (s *HomeworkService) FetchText(ctx context.Context, sess *Session, record *model.HomeworkRecord) (string, error) {
	if record.Kind == model.KindTranslation {
		sentences, err := s.api.FetchSentences(ctx, sess.Token, record.APIID)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(sentences))
		for _, q := range sentences {
			lines = append(lines, fmt.Sprintf("%s. %s", q.QuestionNumber, q.Question))
		}
		return strings.Join(lines, "\n"), nil
	}

	paper, err := s.paper(ctx, sess, record)
	if err != nil {
		return "", err
	}
	text, err := PaperText(paper.Content)
	if err != nil {
		return "", err
	}
	s.logger.Debug("text extracted", zap.String("title", record.Title), zap.Int("chars", len([]rune(text))))
	return text, nil
}

// FetchAudioURL returns "" when the homework has no listening part.
// Translation homework never has one.
func (s *HomeworkService) FetchAudioURL(ctx context.Context, sess *Session, record *model.HomeworkRecord) (string, error) {
	if record.Kind == model.KindTranslation {
		return "", nil
	}
	paper, err := s.paper(ctx, sess, record)
	if err != nil {
		return "", err
	}
	return AudioURL(paper.Content)
}

func (s *HomeworkService) DownloadText(ctx context.Context, sess *Session, record *model.HomeworkRecord) (string, error) {
	text, err := s.FetchText(ctx, sess, record)
	if err != nil {
		return "", err
	}
	return s.artifacts.WriteText(record.Title, repository.ArtifactText, text)
}

func (s *HomeworkService) DownloadAudio(ctx context.Context, sess *Session, record *model.HomeworkRecord) (string, error) {
	audioURL, err := s.FetchAudioURL(ctx, sess, record)
	if err != nil {
		return "", err
	}
	if audioURL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAudio, record.Title)
	}
	s.logger.Info("downloading audio", zap.String("title", record.Title), zap.String("url", audioURL))
	path, _, err := s.artifacts.WriteFrom(record.Title, repository.ArtifactAudio, func(w io.Writer) (int64, error) {
		return s.api.Download(ctx, audioURL, w)
	})
	return path, err
}

// Transcribe turns the stored audio into a stored transcription.
func (s *HomeworkService) Transcribe(ctx context.Context, record *model.HomeworkRecord) (string, error) {
	if s.transcriber == nil {
		return "", ErrNoTranscriber
	}
	if !s.artifacts.Exists(record.Title, repository.ArtifactAudio) {
		return "", fmt.Errorf("%w: audio of %s; download it first", repository.ErrArtifactNotFound, record.Title)
	}
	text, err := s.transcriber.Transcribe(ctx, s.artifacts.Path(record.Title, repository.ArtifactAudio))
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", record.Title, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("transcribe %s: %w", record.Title, transcribe.ErrEmptyTranscription)
	}
	return s.artifacts.WriteText(record.Title, repository.ArtifactTranscription, text)
}

func (s *HomeworkService) DetailAnswers(ctx context.Context, sess *Session, record *model.HomeworkRecord) ([]model.Answer, error) {
	detail, err := s.api.FetchDetail(ctx, sess.Token, record.APIID)
	if err != nil {
		return nil, err
	}
	return answer.FromDetail(*detail)
}

func (s *HomeworkService) PaperAnswers(ctx context.Context, sess *Session, record *model.HomeworkRecord) ([]model.Answer, error) {
	questions, err := s.questions(ctx, sess, record)
	if err != nil {
		return nil, err
	}
	return answer.FromPaper(questions), nil
}

func (s *HomeworkService) CachedAnswers(ctx context.Context, sess *Session, record *model.HomeworkRecord) ([]model.Answer, error) {
	entries, err := s.api.LoadCache(ctx, sess.Token, record.APIID)
	if err != nil {
		return nil, err
	}
	return answer.FromCache(entries), nil
}

func (s *HomeworkService) SaveAnswerSet(record *model.HomeworkRecord, source string, answers []model.Answer) (string, error) {
	return s.answerSets.Save(model.AnswerSet{Homework: record.Title, Source: source, Answers: answers})
}

func (s *HomeworkService) LoadAnswerSet(path string) (*model.AnswerSet, error) {
	return s.answerSets.Load(path)
}
