package model

import "time"

const TimeFormat = "2006-01-02 15:04:05"

type HomeworkKind string

const (
	KindQuestions   HomeworkKind = "questions"
	KindTranslation HomeworkKind = "translation"
)

type HomeworkStatus string

const (
	StatusCompleted    HomeworkStatus = "completed"
	StatusInProgress   HomeworkStatus = "in_progress"
	StatusNotCompleted HomeworkStatus = "not_completed"
	StatusMakeUp       HomeworkStatus = "make_up"
	StatusUnknown      HomeworkStatus = "unknown"
)

var statusByCode = map[int]HomeworkStatus{
	4: StatusCompleted,
	1: StatusInProgress,
	0: StatusNotCompleted,
	5: StatusMakeUp,
}

var statusLabels = map[HomeworkStatus]string{
	StatusCompleted:    "已完成",
	StatusInProgress:   "进行中",
	StatusNotCompleted: "未完成",
	StatusMakeUp:       "需补做",
	StatusUnknown:      "未知",
}

// StatusFromCode maps an upstream status code to its status. Nil and
// unmatched codes map to StatusUnknown.
func StatusFromCode(code *int) HomeworkStatus {
	if code == nil {
		return StatusUnknown
	}
	if s, ok := statusByCode[*code]; ok {
		return s
	}
	return StatusUnknown
}

// Label is the portal's own display name for the status.
func (s HomeworkStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return statusLabels[StatusUnknown]
}

// StartedUpstream reports whether the portal already considers the item
// started, so no explicit start call is needed before caching answers.
func (s HomeworkStatus) StartedUpstream() bool {
	return s == StatusInProgress || s == StatusCompleted
}

type HomeworkRecord struct {
	APIID          string         `json:"api_id"`
	APITaskID      string         `json:"api_task_id,omitempty"`
	APITaskPaperID string         `json:"api_task_paper_id,omitempty"`
	APIBatchID     string         `json:"api_batch_id,omitempty"`
	Title          string         `json:"title"`
	Kind           HomeworkKind   `json:"kind"`
	PublisherName  string         `json:"publisher_name"`
	PublishTime    time.Time      `json:"publish_time"`
	CurrentScore   *float64       `json:"current_score"`
	TotalScore     float64        `json:"total_score"`
	Status         HomeworkStatus `json:"status"`
}

// Question is one entry of a paper's question flow.
type Question struct {
	Index  int     `json:"index"`
	APIID  string  `json:"api_id"`
	TagID  string  `json:"tag_id"`
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Stage is the local workflow position of a homework item. Stages only move
// forward.
type Stage int

const (
	StageListed Stage = iota
	StageStarted
	StageAnswersCached
	StageSubmitted
)

func (s Stage) String() string {
	switch s {
	case StageStarted:
		return "started"
	case StageAnswersCached:
		return "answers_cached"
	case StageSubmitted:
		return "submitted"
	default:
		return "listed"
	}
}
