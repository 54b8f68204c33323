package repository

import (
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/utils"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AnswerSetRepository persists answer sets as JSON documents next to the
// other artifacts of a homework item.
type AnswerSetRepository struct {
	dir string
	now func() time.Time
}

func NewAnswerSetRepository(dir string) *AnswerSetRepository {
	return &AnswerSetRepository{dir: dir, now: time.Now}
}

// Save writes set to homework_<b64>_answers_<source>_<unix>.json and returns
// the path.
func (r *AnswerSetRepository) Save(set model.AnswerSet) (string, error) {
	byteValue, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode answer set: %w", err)
	}
	suffix := fmt.Sprintf("answers_%s_%d.json", set.Source, r.now().Unix())
	path := filepath.Join(r.dir, utils.ArtifactName(set.Homework, suffix))
	if err := os.WriteFile(path, byteValue, 0o644); err != nil {
		return "", fmt.Errorf("write answer set '%s': %w", path, err)
	}
	return path, nil
}

// Load reads an answer set document. A bare JSON array of answers is
// accepted as well.
func (r *AnswerSetRepository) Load(path string) (*model.AnswerSet, error) {
	byteValue, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answer set '%s': %w", path, err)
	}
	var set model.AnswerSet
	if err := json.Unmarshal(byteValue, &set); err == nil {
		return &set, nil
	}
	var answers []model.Answer
	if err := json.Unmarshal(byteValue, &answers); err != nil {
		return nil, fmt.Errorf("parse answer set '%s': %w", path, err)
	}
	return &model.AnswerSet{Answers: answers}, nil
}
