// Package feedback は出席者によるイベントの評価を扱う
//
// 評価は1参加者につき1件で、主催者には参加者を伏せた形で集計される。
package feedback

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
	// MaxCommentLength を超えるコメントは切り詰める（文字数）
	MaxCommentLength = 1000
)

// Feedback は出席者による評価
type Feedback struct {
	ID            string
	EventID       string
	ParticipantID string
	Rating        int
	Comment       string
	CreatedAt     time.Time
}

// NewFeedback は評価を検証して作成する
func NewFeedback(eventID, participantID string, rating int, comment string) (*Feedback, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, ErrInvalidRating
	}
	return &Feedback{
		ID:            uuid.NewString(),
		EventID:       eventID,
		ParticipantID: participantID,
		Rating:        rating,
		Comment:       normalizeComment(comment),
		CreatedAt:     time.Now(),
	}, nil
}

func normalizeComment(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > MaxCommentLength {
		return string(r[:MaxCommentLength])
	}
	return s
}

// Summary は評価の集計
type Summary struct {
	Total   int         `json:"total"`
	Average float64     `json:"average"`
	Ratings map[int]int `json:"ratings"`
}

// Summarize は評価件数、平均（小数第1位で四捨五入）、評価ごとの件数を返す
func Summarize(list []*Feedback) Summary {
	s := Summary{Ratings: make(map[int]int, MaxRating)}
	for r := MinRating; r <= MaxRating; r++ {
		s.Ratings[r] = 0
	}
	sum := 0
	for _, f := range list {
		s.Total++
		sum += f.Rating
		s.Ratings[f.Rating]++
	}
	if s.Total > 0 {
		s.Average = math.Round(float64(sum)/float64(s.Total)*10) / 10
	}
	return s
}
