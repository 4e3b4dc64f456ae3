package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var Difficulties = []Difficulty{Easy, Medium, Hard}

func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, true
	}
	return "", false
}

// Scores holds the best score per difficulty tier.
type Scores struct {
	Easy   int `bson:"easy"   json:"easy"`
	Medium int `bson:"medium" json:"medium"`
	Hard   int `bson:"hard"   json:"hard"`
}

func (s Scores) Get(d Difficulty) int {
	switch d {
	case Easy:
		return s.Easy
	case Medium:
		return s.Medium
	case Hard:
		return s.Hard
	}
	return 0
}

// Raise stores v for tier d only when it beats the current best.
func (s *Scores) Raise(d Difficulty, v int) {
	if v <= s.Get(d) {
		return
	}
	switch d {
	case Easy:
		s.Easy = v
	case Medium:
		s.Medium = v
	case Hard:
		s.Hard = v
	}
}

type ScoreEntry struct {
	Difficulty Difficulty `bson:"difficulty" json:"difficulty"`
	Value      int        `bson:"value"      json:"value"`
	Label      string     `bson:"label"      json:"label"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
}

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"                   json:"id"`
	Email               string             `bson:"email"                           json:"email"`
	Username            string             `bson:"username"                        json:"username"`
	PasswordHash        string             `bson:"password_hash,omitempty"         json:"-"`
	GoogleID            string             `bson:"google_id,omitempty"             json:"googleId,omitempty"`
	Scores              Scores             `bson:"scores"                          json:"scores"`
	History             []ScoreEntry       `bson:"history"                         json:"history"`
	ResetToken          string             `bson:"reset_token,omitempty"           json:"-"`
	ResetTokenExpiresAt *time.Time         `bson:"reset_token_expires_at,omitempty" json:"-"`
	CreatedAt           time.Time          `bson:"created_at"                      json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updated_at"                      json:"updatedAt"`
}

func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// Sanitized returns a copy without credential material. Pointer and slice
// fields are copied so the result can be handed out while u is
// mutated.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.ResetToken = ""
	out.ResetTokenExpiresAt = nil
	out.History = append([]ScoreEntry(nil), u.History...)
	if out.History == nil {
		out.History = []ScoreEntry{}
	}
	return &out
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultUsername is the local part of an already normalized email.
func DefaultUsername(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
