// backend/internal/models/player.go
package models

import "time"

type Player struct {
	ID             string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Username       string     `json:"username" bson:"username" gorm:"not null"`
	CollectionID   string     `json:"collectionId" bson:"collection_id" gorm:"index;type:varchar(36)"`
	Score          int        `json:"score" bson:"score"`
	ElapsedSeconds int        `json:"elapsedSeconds" bson:"elapsed_seconds"`
	StartedAt      time.Time  `json:"startedAt" bson:"started_at"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty" bson:"finished_at,omitempty"`
	HintsUsed      int        `json:"hintsUsed" bson:"hints_used"`
	Skips          int        `json:"skips" bson:"skips"`
	WrongAnswers   int        `json:"wrongAnswers" bson:"wrong_answers"`
	Redeemed       bool       `json:"redeemed" bson:"redeemed"`
	RedeemedAt     *time.Time `json:"redeemedAt,omitempty" bson:"redeemed_at,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
}

func (p *Player) Finished() bool {
	return p.FinishedAt != nil
}

// PlayerPatch carries a partial update; nil fields are left untouched.
type PlayerPatch struct {
	Score          *int       `json:"score"`
	ElapsedSeconds *int       `json:"elapsedSeconds"`
	HintsUsed      *int       `json:"hintsUsed"`
	Skips          *int       `json:"skips"`
	WrongAnswers   *int       `json:"wrongAnswers"`
	FinishedAt     *time.Time `json:"finishedAt"`
}

func (p PlayerPatch) Apply(player *Player) {
	if p.Score != nil {
		player.Score = *p.Score
	}
	if p.ElapsedSeconds != nil {
		player.ElapsedSeconds = *p.ElapsedSeconds
	}
	if p.HintsUsed != nil {
		player.HintsUsed = *p.HintsUsed
	}
	if p.Skips != nil {
		player.Skips = *p.Skips
	}
	if p.WrongAnswers != nil {
		player.WrongAnswers = *p.WrongAnswers
	}
	if p.FinishedAt != nil {
		t := p.FinishedAt.UTC()
		player.FinishedAt = &t
	}
}

type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	PlayerID       string    `json:"playerId"`
	Username       string    `json:"username"`
	CollectionID   string    `json:"collectionId"`
	Score          int       `json:"score"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	FinishedAt     time.Time `json:"finishedAt"`
	Redeemed       bool      `json:"redeemed"`
}
