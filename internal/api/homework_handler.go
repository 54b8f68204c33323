package api

import (
	"Extensible-Homework-Helper/internal/answer"
	"Extensible-Homework-Helper/internal/client"
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/repository"
	"Extensible-Homework-Helper/internal/service"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginRequest struct {
	School   string `json:"school"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type GenerateRequest struct {
	HasAudio *bool `json:"has_audio"`
	Save     bool  `json:"save"`
}

// FillInRequest carries the answers to cache, either inline or as the name
// of an upstream source (detail, paper or cache) to derive them from.
type FillInRequest struct {
	Answers []model.Answer `json:"answers"`
	Source  string         `json:"source"`
	Rate    *float64       `json:"rate"`
}

// HomeworkHandler exposes the workflow over one shared session. Requests are
// serialized so that the session is only touched by one command at a time.
type HomeworkHandler struct {
	svc         *service.HomeworkService
	defaultCred *model.Credentials
	logger      *zap.Logger

	mu   sync.Mutex
	sess *service.Session
}

func NewHomeworkHandler(svc *service.HomeworkService, defaultCred *model.Credentials, logger *zap.Logger) *HomeworkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkHandler{
		svc:         svc,
		defaultCred: defaultCred,
		logger:      logger.Named("api"),
		sess:        service.NewSession(),
	}
}

func statusFor(err error) int {
	var rejection *client.RejectionError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &rejection):
		return http.StatusBadGateway
	case errors.Is(err, answer.ErrShapeMismatch),
		errors.Is(err, answer.ErrInsufficientChoices),
		errors.Is(err, answer.ErrInvalidRate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrArtifactNotFound),
		errors.Is(err, service.ErrIndexOutOfRange),
		errors.Is(err, service.ErrNoAudio),
		errors.Is(err, client.ErrSchoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrEmptyCache):
		return http.StatusConflict
	case errors.Is(err, service.ErrAudioUnknown):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoAIClient), errors.Is(err, service.ErrNoTranscriber):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HomeworkHandler) fail(c *gin.Context, err error, contextMsg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(contextMsg, zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Info(contextMsg, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   contextMsg,
		"details": err.Error(),
	})
}

// withRecord locks the session, resolves the :index path parameter and runs
// fn on the record.
func (h *HomeworkHandler) withRecord(c *gin.Context, fn func(*model.HomeworkRecord)) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "homework index must be an integer"})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	record, err := h.sess.Record(index)
	if err != nil {
		h.fail(c, err, "unknown homework; list homework first")
		return
	}
	fn(record)
}

// Login uses the credentials in the body, or the configured default
// credentials when the body is empty or names no user.
func (h *HomeworkHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	cred := model.Credentials{School: req.School, Username: req.Username, Password: req.Password}
	if cred.Username == "" && h.defaultCred != nil {
		cred = *h.defaultCred
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.svc.Login(c.Request.Context(), h.sess, cred); err != nil {
		h.fail(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.sess.Token.User})
}

func (h *HomeworkHandler) Logout(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.Logout()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *HomeworkHandler) List(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	records, err := h.svc.List(c.Request.Context(), h.sess)
	if err != nil {
		h.fail(c, err, "failed to list homework")
		return
	}
	c.JSON(http.StatusOK, gin.H{"homework": records})
}

func (h *HomeworkHandler) Text(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		text, err := h.svc.FetchText(c.Request.Context(), h.sess, record)
		if err != nil {
			h.fail(c, err, "failed to get text content")
			return
		}
		c.JSON(http.StatusOK, gin.H{"title": record.Title, "text": text})
	})
}

func (h *HomeworkHandler) DownloadText(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		path, err := h.svc.DownloadText(c.Request.Context(), h.sess, record)
		if err != nil {
			h.fail(c, err, "failed to download text content")
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
	})
}

func (h *HomeworkHandler) Audio(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		audioURL, err := h.svc.FetchAudioURL(c.Request.Context(), h.sess, record)
		if err != nil {
			h.fail(c, err, "failed to look up audio")
			return
		}
		c.JSON(http.StatusOK, gin.H{"has_audio": audioURL != "", "url": audioURL})
	})
}

func (h *HomeworkHandler) DownloadAudio(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		path, err := h.svc.DownloadAudio(c.Request.Context(), h.sess, record)
		if err != nil {
			h.fail(c, err, "failed to download audio")
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
	})
}

func (h *HomeworkHandler) Transcribe(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		path, err := h.svc.Transcribe(c.Request.Context(), record)
		if err != nil {
			h.fail(c, err, "failed to transcribe audio")
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
	})
}

func (h *HomeworkHandler) answersFrom(ctx context.Context, record *model.HomeworkRecord, source string) ([]model.Answer, error) {
	switch source {
	case "", "detail":
		return h.svc.DetailAnswers(ctx, h.sess, record)
	case "paper":
		return h.svc.PaperAnswers(ctx, h.sess, record)
	case "cache":
		return h.svc.CachedAnswers(ctx, h.sess, record)
	default:
		return nil, fmt.Errorf("unknown answer source %q", source)
	}
}

// Answers derives the answer set from ?source= and, with ?save=true, keeps a
// copy in the cache directory.
func (h *HomeworkHandler) Answers(c *gin.Context) {
	source := c.DefaultQuery("source", "detail")
	if source != "detail" && source != "paper" && source != "cache" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be one of detail, paper, cache"})
		return
	}
	h.withRecord(c, func(record *model.HomeworkRecord) {
		answers, err := h.answersFrom(c.Request.Context(), record, source)
		if err != nil {
			h.fail(c, err, "failed to get answers")
			return
		}
		resp := gin.H{"title": record.Title, "source": source, "answers": answers}
		if c.Query("save") == "true" {
			path, err := h.svc.SaveAnswerSet(record, source, answers)
			if err != nil {
				h.fail(c, err, "failed to save answers")
				return
			}
			resp["path"] = path
		}
		c.JSON(http.StatusOK, resp)
	})
}

func (h *HomeworkHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	_ = c.ShouldBindJSON(&req)
	h.withRecord(c, func(record *model.HomeworkRecord) {
		result, err := h.svc.Generate(c.Request.Context(), h.sess, record, req.HasAudio)
		if err != nil {
			h.fail(c, err, "failed to generate answers")
			return
		}
		resp := gin.H{"title": record.Title, "result": result}
		if req.Save {
			path, err := h.svc.SaveAnswerSet(record, "generated", result.Answers)
			if err != nil {
				h.fail(c, err, "failed to save answers")
				return
			}
			resp["path"] = path
		}
		c.JSON(http.StatusOK, resp)
	})
}

func (h *HomeworkHandler) Start(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		if err := h.svc.Start(c.Request.Context(), h.sess, record); err != nil {
			h.fail(c, err, "failed to start homework")
			return
		}
		c.JSON(http.StatusOK, gin.H{"title": record.Title, "stage": h.sess.Stage(record.APIID).String()})
	})
}

func (h *HomeworkHandler) FillIn(c *gin.Context) {
	var req FillInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if len(req.Answers) == 0 && req.Source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide answers or an answer source"})
		return
	}
	h.withRecord(c, func(record *model.HomeworkRecord) {
		answers := req.Answers
		if len(answers) == 0 {
			var err error
			if answers, err = h.answersFrom(c.Request.Context(), record, req.Source); err != nil {
				h.fail(c, err, "failed to get answers")
				return
			}
		}
		result, err := h.svc.FillIn(c.Request.Context(), h.sess, record, answers, req.Rate)
		if err != nil {
			h.fail(c, err, "failed to fill in answers")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"title":   record.Title,
			"result":  result,
			"message": "answers filled in; review and submit",
		})
	})
}

func (h *HomeworkHandler) Submit(c *gin.Context) {
	h.withRecord(c, func(record *model.HomeworkRecord) {
		result, err := h.svc.Submit(c.Request.Context(), h.sess, record)
		if err != nil {
			h.fail(c, err, "failed to submit homework")
			return
		}
		c.JSON(http.StatusOK, gin.H{"title": record.Title, "result": result})
	})
}
