package client

import (
	"Extensible-Homework-Helper/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://gateway.jeedu.net"
	PageSize       = 50

	findSchoolsPath         = "/api/user/anonymousUser/findSchools"
	tokenPath               = "/api/auth/oauth/token"
	taskPagePath            = "/api/exam/studentApi/userTaskPage"
	sentencePagePath        = "/api/exam/sentence/studentSentencePage"
	taskResultPath          = "/api/exam/studentApi/userTaskResult"
	taskPaperPath           = "/api/exam/taskPaper"
	sentenceQuestionPath    = "/api/exam/sentence/selectSentenceQuestion"
	loadCachePath           = "/api/exam/studentApi/loadCache"
	saveCachePath           = "/api/exam/studentApi/saveCache"
	submitPath              = "/api/exam/studentApi/userTaskSubmit"
	startPath               = "/api/exam/studentApi/userTaskStart"
	oauthClientID           = "fyll"
	oauthClientSecret       = "fyll2020"
	supportedTokenType      = "bearer"
	maxLoggedEnvelopeLength = 512
)

var (
	ErrUnauthorized   = errors.New("authorization failed")
	ErrSchoolNotFound = errors.New("school not found")
)

// RejectionError is returned when the portal answers with success=false.
type RejectionError struct {
	Endpoint string
	Envelope json.RawMessage
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected the request: %s", e.Endpoint, string(e.Envelope))
}

type JeeduApiClient struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *zap.Logger
}

func NewJeeduApiClient(baseURL string, timeoutSec int, logger *zap.Logger) *JeeduApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JeeduApiClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		logger: logger.Named("client"),
	}
}

// AuthHeader builds the Authorization header value for token.
func AuthHeader(token *model.Token) (string, error) {
	if token == nil {
		return "", fmt.Errorf("%w: not logged in", ErrUnauthorized)
	}
	if token.TokenType != supportedTokenType {
		return "", fmt.Errorf("%w: unsupported token type %q; supported type(s) are: %s", ErrUnauthorized, token.TokenType, supportedTokenType)
	}
	return "Bearer " + token.AccessToken, nil
}

func setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36")
}

func (c *JeeduApiClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.logger.Warn("request timed out", zap.String("url", req.URL.Path), zap.Duration("timeout", c.HTTPClient.Timeout))
		}
		return nil, fmt.Errorf("request %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}
	c.logger.Debug("response received", zap.String("url", req.URL.Path), zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))
	return body, nil
}

// post sends a JSON body and decodes the data member of the envelope into
// out. An empty authorization sends the request anonymously.
func (c *JeeduApiClient) post(ctx context.Context, path, authorization string, payload, out any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}
	return c.decodeEnvelope(path, body, out)
}

func (c *JeeduApiClient) postAuthorized(ctx context.Context, path string, token *model.Token, payload, out any) error {
	authorization, err := AuthHeader(token)
	if err != nil {
		return err
	}
	return c.post(ctx, path, authorization, payload, out)
}

func (c *JeeduApiClient) decodeEnvelope(path string, body []byte, out any) error {
	var env model.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("malformed envelope", zap.String("url", path), zap.ByteString("body", truncate(body)))
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if !env.Success {
		return &RejectionError{Endpoint: path, Envelope: json.RawMessage(body)}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%s response carries no data", path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

func truncate(b []byte) []byte {
	if len(b) > maxLoggedEnvelopeLength {
		return b[:maxLoggedEnvelopeLength]
	}
	return b
}

// FindSchool returns the first school matching name.
func (c *JeeduApiClient) FindSchool(ctx context.Context, name string) (*model.SchoolInfo, error) {
	var schools []model.SchoolInfo
	if err := c.post(ctx, findSchoolsPath, "", map[string]string{"name": name}, &schools); err != nil {
		return nil, err
	}
	if len(schools) == 0 {
		return nil, fmt.Errorf("%w: no school named %q", ErrSchoolNotFound, name)
	}
	return &schools[0], nil
}

// IssueToken exchanges credentials for an access token. passwordDigest is
// the MD5 hex digest of the password.
func (c *JeeduApiClient) IssueToken(ctx context.Context, username, schoolID, passwordDigest string) (*model.TokenResponse, error) {
	q := url.Values{
		"username":      {username + "|" + schoolID},
		"password":      {passwordDigest},
		"grant_type":    {"password"},
		"client_id":     {oauthClientID},
		"client_secret": {oauthClientSecret},
		"randomCode":    {""},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+tokenPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	setCommonHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var tokenResponse model.TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if !tokenResponse.Success {
		return nil, &RejectionError{Endpoint: tokenPath, Envelope: json.RawMessage(body)}
	}
	return &tokenResponse, nil
}

// ListTasks fetches one 1-based page of the listing for kind.
func (c *JeeduApiClient) ListTasks(ctx context.Context, token *model.Token, kind model.HomeworkKind, page int) (*model.TaskPage, error) {
	path := taskPagePath
	if kind == model.KindTranslation {
		path = sentencePagePath
	}
	var taskPage model.TaskPage
	if err := c.postAuthorized(ctx, path, token, model.PageRequest{PageIndex: page, PageSize: PageSize}, &taskPage); err != nil {
		return nil, err
	}
	return &taskPage, nil
}

func (c *JeeduApiClient) FetchDetail(ctx context.Context, token *model.Token, id string) (*model.DetailResponse, error) {
	var detail model.DetailResponse
	if err := c.postAuthorized(ctx, taskResultPath, token, model.IDRequest{ID: id}, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *JeeduApiClient) FetchPaper(ctx context.Context, token *model.Token, taskPaperID string) (*model.PaperResponse, error) {
	var paper model.PaperResponse
	if err := c.postAuthorized(ctx, taskPaperPath, token, model.IDRequest{ID: taskPaperID}, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (c *JeeduApiClient) FetchSentences(ctx context.Context, token *model.Token, id string) ([]model.SentenceQuestion, error) {
	var sentences []model.SentenceQuestion
	if err := c.postAuthorized(ctx, sentenceQuestionPath, token, model.IDRequest{ID: id}, &sentences); err != nil {
		return nil, err
	}
	return sentences, nil
}

func (c *JeeduApiClient) LoadCache(ctx context.Context, token *model.Token, id string) ([]model.CacheEntry, error) {
	var entries []model.CacheEntry
	if err := c.postAuthorized(ctx, loadCachePath, token, model.IDRequest{ID: id}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *JeeduApiClient) SaveCache(ctx context.Context, token *model.Token, payload *model.AnswersPayload) error {
	return c.postAuthorized(ctx, saveCachePath, token, payload, nil)
}

func (c *JeeduApiClient) Submit(ctx context.Context, token *model.Token, payload *model.AnswersPayload) error {
	return c.postAuthorized(ctx, submitPath, token, payload, nil)
}

func (c *JeeduApiClient) Start(ctx context.Context, token *model.Token, id string) error {
	return c.postAuthorized(ctx, startPath, token, model.IDRequest{ID: id}, nil)
}

// Download streams rawURL into w and returns the number of bytes written.
func (c *JeeduApiClient) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	setCommonHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s returned status %s", rawURL, resp.Status)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", rawURL, err)
	}
	c.logger.Debug("download finished", zap.String("url", rawURL), zap.Int64("bytes", n))
	return n, nil
}
