package repository

import (
	"Extensible-Homework-Helper/internal/model"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArtifacts(t *testing.T) *ArtifactRepository {
	t.Helper()
	repo, err := NewArtifactRepository(filepath.Join(t.TempDir(), "cache"), nil)
	require.NoError(t, err)
	return repo
}

func TestArtifactTextRoundTrip(t *testing.T) {
	repo := newTestArtifacts(t)

	_, err := repo.ReadText("Unit 1", ArtifactText)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	assert.False(t, repo.Exists("Unit 1", ArtifactText))

	path, err := repo.WriteText("Unit 1", ArtifactText, "1. hello")
	require.NoError(t, err)
	assert.Equal(t, "homework_VW5pdCAx_text.txt", filepath.Base(path))
	assert.True(t, repo.Exists("Unit 1", ArtifactText))

	got, err := repo.ReadText("Unit 1", ArtifactText)
	require.NoError(t, err)
	assert.Equal(t, "1. hello", got)

	_, err = repo.ReadText("Unit 1", ArtifactTranscription)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestArtifactWriteFrom(t *testing.T) {
	repo := newTestArtifacts(t)

	path, n, err := repo.WriteFrom("Unit 2", ArtifactAudio, func(w io.Writer) (int64, error) {
		return io.Copy(w, strings.NewReader("ID3 audio"))
	})
	require.NoError(t, err)
	assert.EqualValues(t, 9, n)
	assert.True(t, repo.Exists("Unit 2", ArtifactAudio))
	assert.Equal(t, repo.Path("Unit 2", ArtifactAudio), path)

	_, _, err = repo.WriteFrom("Unit 3", ArtifactAudio, func(w io.Writer) (int64, error) {
		_, _ = w.Write([]byte("partial"))
		return 7, errors.New("connection reset")
	})
	require.Error(t, err)
	assert.False(t, repo.Exists("Unit 3", ArtifactAudio), "partial download must be removed")
}

func TestAnswerSetSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	repo := NewAnswerSetRepository(dir)
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }

	set := model.AnswerSet{
		Homework: "Unit 1",
		Source:   "paper",
		Answers: []model.Answer{
			{Index: 1, ID: "radio_1", Kind: model.AnswerChoice, Content: model.Single("A")},
			{Index: 2, ID: "text_2", Kind: model.AnswerFillInBlanks, Content: model.Alternatives("x", "y")},
		},
	}
	path, err := repo.Save(set)
	require.NoError(t, err)
	assert.Equal(t, "homework_VW5pdCAx_answers_paper_1700000000.json", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"content": [`)

	loaded, err := repo.Load(path)
	require.NoError(t, err)
	assert.Equal(t, set, *loaded)
}

func TestAnswerSetLoadBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"index":1,"id":"","kind":"choice","content":"B"}]`), 0o644))

	loaded, err := NewAnswerSetRepository(t.TempDir()).Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Answers, 1)
	assert.Equal(t, "B", loaded.Answers[0].Content.Text())
}

func TestListingRoundTrip(t *testing.T) {
	repo := newTestArtifacts(t)
	_, err := repo.ReadListing()
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	score := 90.0
	records := []model.HomeworkRecord{{
		APIID: "1", Title: "Unit 1", Kind: model.KindQuestions, Status: model.StatusCompleted,
		CurrentScore: &score, TotalScore: 100, PublishTime: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, repo.WriteListing(records))
	got, err := repo.ReadListing()
	require.NoError(t, err)
	assert.Equal(t, records, got)
}
