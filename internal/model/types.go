package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is the response wrapper shared by every upstream endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type SchoolInfo struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

type TokenResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	JTI          string `json:"jti"`
	UserInfo     struct {
		ID       FlexString `json:"id"`
		Username string     `json:"username"`
		Name     string     `json:"name"`
		Type     FlexInt    `json:"type"`
	} `json:"userInfo"`
}

type PageRequest struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

type IDRequest struct {
	ID string `json:"id"`
}

// TaskPage is one page of either homework listing. Regular homework arrives
// under userTasks, translation homework under tasks.
type TaskPage struct {
	PageCount int        `json:"pageCount"`
	UserTasks []TaskItem `json:"userTasks"`
	Tasks     []TaskItem `json:"tasks"`
}

func (p TaskPage) Items() []TaskItem {
	if len(p.UserTasks) > 0 {
		return p.UserTasks
	}
	return p.Tasks
}

type TaskItem struct {
	ID           FlexString `json:"id"`
	TaskID       FlexString `json:"taskId"`
	TaskPaperID  FlexString `json:"taskPaperId"`
	BatchID      FlexString `json:"batchId"`
	TaskTitle    string     `json:"taskTitle"`
	Title        string     `json:"title"`
	AssignerName string     `json:"assignerName"`
	BeginTime    string     `json:"beginTime"`
	Score        *float64   `json:"score"`
	OwnerScore   *float64   `json:"ownerScore"`
	TotalScore   float64    `json:"totalScore"`
	Status       *FlexInt   `json:"status"`
}

type DetailResponse struct {
	SubResults []SubResult `json:"subResults"`
}

type SubResult struct {
	TagID          *string `json:"tagId"`
	StandardAnswer *string `json:"standardAnswer"`
}

type PaperResponse struct {
	Content string      `json:"content"`
	Flows   []PaperFlow `json:"flows"`
}

type PaperFlow struct {
	Sort   *int       `json:"sort"`
	ID     FlexString `json:"id"`
	TagID  *string    `json:"tagId"`
	Answer *string    `json:"answer"`
	Score  float64    `json:"score"`
}

type SentenceQuestion struct {
	QuestionNumber FlexString `json:"questionNumber"`
	Question       string     `json:"question"`
}

// CacheEntry is both one element of a loadCache response and one element of
// the saveCache / submit payload.
type CacheEntry struct {
	AttachmentID string `json:"attachmentId"`
	TagID        string `json:"tagId"`
	Text         string `json:"text"`
}

type AnswersPayload struct {
	Answers []CacheEntry `json:"answers"`
	ID      string       `json:"id"`
}

// FlexString accepts a JSON string or number and keeps its textual form.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("expected integer, got %q", str)
		}
		*i = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected integer, got %s", string(b))
	}
	*i = FlexInt(n)
	return nil
}
