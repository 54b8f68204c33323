package service

import (
	"Extensible-Homework-Helper/internal/auth"
	"Extensible-Homework-Helper/internal/client"
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/repository"
	"Extensible-Homework-Helper/internal/transcribe"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testAccessToken = "tok"

// upstream is a fake portal. Routes return the data member of a successful
// envelope, or ok=false for a rejection.
type upstream struct {
	srv *httptest.Server

	mu     sync.Mutex
	hits   map[string]int
	bodies map[string][]string
	routes map[string]func(body []byte) (data any, ok bool)
	raw    map[string]any
	media  map[string][]byte

	inFlight, maxInFlight int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		hits:   map[string]int{},
		bodies: map[string][]string{},
		routes: map[string]func([]byte) (any, bool){},
		raw:    map[string]any{},
		media:  map[string][]byte{},
	}
	u.srv = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.inFlight++
	u.maxInFlight = max(u.maxInFlight, u.inFlight)
	u.hits[r.URL.Path]++
	u.bodies[r.URL.Path] = append(u.bodies[r.URL.Path], string(body))
	route := u.routes[r.URL.Path]
	raw, isRaw := u.raw[r.URL.Path]
	media, isMedia := u.media[r.URL.Path]
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		u.inFlight--
		u.mu.Unlock()
	}()

	if isMedia {
		_, _ = w.Write(media)
		return
	}
	if isRaw {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(raw)
		return
	}
	anonymous := strings.HasSuffix(r.URL.Path, "/findSchools") || strings.HasSuffix(r.URL.Path, "/oauth/token")
	if !anonymous && r.Header.Get("Authorization") != "Bearer "+testAccessToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"msg":"unauthorized"}`))
		return
	}
	if route == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"msg":"no route"}`))
		return
	}
	data, ok := route(body)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": ok, "data": data})
}

func (u *upstream) handle(path string, fn func(body []byte) (any, bool)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = fn
}

func (u *upstream) reply(path string, data any) {
	u.handle(path, func([]byte) (any, bool) { return data, true })
}

// replyRaw answers path with body as is, without the envelope.
func (u *upstream) replyRaw(path string, body any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.raw[path] = body
}

func (u *upstream) serveMedia(path string, b []byte) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.media[path] = b
	return u.srv.URL + path
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

// peak is the highest number of requests the fake served at once.
func (u *upstream) peak() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.maxInFlight
}

func (u *upstream) lastBody(t *testing.T, path string, out any) {
	t.Helper()
	u.mu.Lock()
	bodies := u.bodies[path]
	u.mu.Unlock()
	require.NotEmpty(t, bodies, "no request to %s", path)
	require.NoError(t, json.Unmarshal([]byte(bodies[len(bodies)-1]), out))
}

type fixture struct {
	up        *upstream
	api       *client.JeeduApiClient
	svc       *HomeworkService
	sess      *Session
	artifacts *repository.ArtifactRepository
	dir       string
}

func newFixture(t *testing.T, ai Completer, tr transcribe.Transcriber) *fixture {
	t.Helper()
	up := newUpstream(t)
	api := client.NewJeeduApiClient(up.srv.URL, 5, nil)
	t.Cleanup(api.HTTPClient.CloseIdleConnections)

	dir := t.TempDir()
	artifacts, err := repository.NewArtifactRepository(filepath.Join(dir, "cache"), nil)
	require.NoError(t, err)

	sess := NewSession()
	sess.Token = &model.Token{AccessToken: testAccessToken, TokenType: "bearer"}

	return &fixture{
		up:        up,
		api:       api,
		svc:       NewHomeworkService(api, auth.NewAuthService(api, nil), ai, tr, artifacts, repository.NewAnswerSetRepository(dir), nil),
		sess:      sess,
		artifacts: artifacts,
		dir:       dir,
	}
}

func paperFlow(sort int, tagID, ans string) map[string]any {
	return map[string]any{"sort": sort, "id": sort * 100, "tagId": tagID, "answer": ans, "score": 1}
}

func startedRecord() *model.HomeworkRecord {
	return &model.HomeworkRecord{
		APIID:          "hw-1",
		APITaskPaperID: "paper-1",
		Title:          "Unit 1",
		Kind:           model.KindQuestions,
		Status:         model.StatusInProgress,
	}
}
