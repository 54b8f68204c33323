package service

import (
	"Extensible-Homework-Helper/internal/model"
	"fmt"
)

// Session is owned by one front end. It holds the token, the last fetched
// homework list and the local workflow stage of each listed item.
type Session struct {
	Token    *model.Token
	Homework []model.HomeworkRecord
	stages   map[string]model.Stage
}

func NewSession() *Session {
	return &Session{stages: make(map[string]model.Stage)}
}

// Record returns the item at the 0-based index of the last listing.
func (s *Session) Record(index int) (*model.HomeworkRecord, error) {
	if index < 0 || index >= len(s.Homework) {
		return nil, fmt.Errorf("%w: %d (listed %d)", ErrIndexOutOfRange, index, len(s.Homework))
	}
	return &s.Homework[index], nil
}

func (s *Session) Stage(apiID string) model.Stage {
	return s.stages[apiID]
}

// advance moves the item forward; moving backwards is ignored.
func (s *Session) advance(apiID string, to model.Stage) {
	if s.stages == nil {
		s.stages = make(map[string]model.Stage)
	}
	if to > s.stages[apiID] {
		s.stages[apiID] = to
	}
}

func (s *Session) replaceToken(token *model.Token) {
	s.Token = token
	s.Homework = nil
	s.stages = make(map[string]model.Stage)
}

// Logout drops the token. The last listing stays usable for commands that
// work on local artifacts.
func (s *Session) Logout() {
	s.Token = nil
}
