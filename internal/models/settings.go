// backend/internal/models/settings.go
package models

import "time"

const (
	GlobalSettingsID = "global"
	LandingID        = "landing"
	AutoClearID      = "autoclear"

	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

type GlobalSettings struct {
	ID                  string    `json:"-" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	GameMode            string    `json:"gameMode" bson:"game_mode"`
	QuestionTimeSeconds int       `json:"questionTimeSeconds" bson:"question_time_seconds"`
	PointsPerCorrect    int       `json:"pointsPerCorrect" bson:"points_per_correct"`
	HintPenalty         int       `json:"hintPenalty" bson:"hint_penalty"`
	SkipPenalty         int       `json:"skipPenalty" bson:"skip_penalty"`
	WrongPenalty        int       `json:"wrongPenalty" bson:"wrong_penalty"`
	MaxAttempts         int       `json:"maxAttempts" bson:"max_attempts"`
	LeaderboardSize     int       `json:"leaderboardSize" bson:"leaderboard_size"`
	UpdatedAt           time.Time `json:"updatedAt" bson:"updated_at"`
}

func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		ID:                  GlobalSettingsID,
		GameMode:            GameModeOrdered,
		QuestionTimeSeconds: 60,
		PointsPerCorrect:    10,
		HintPenalty:         3,
		SkipPenalty:         5,
		WrongPenalty:        1,
		MaxAttempts:         0,
		LeaderboardSize:     10,
	}
}

type LandingCustomisation struct {
	ID              string    `json:"-" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title           string    `json:"title" bson:"title"`
	Subtitle        string    `json:"subtitle" bson:"subtitle"`
	Body            string    `json:"body" bson:"body"`
	ButtonText      string    `json:"buttonText" bson:"button_text"`
	PrimaryColor    string    `json:"primaryColor" bson:"primary_color"`
	BackgroundImage string    `json:"backgroundImage,omitempty" bson:"background_image"`
	LogoImage       string    `json:"logoImage,omitempty" bson:"logo_image"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updated_at"`
}

func DefaultLanding() LandingCustomisation {
	return LandingCustomisation{
		ID:           LandingID,
		Title:        "GoChangi",
		Subtitle:     "Explore, find the clues, answer the questions.",
		ButtonText:   "Start",
		PrimaryColor: "#7b2d8e",
	}
}

type AutoClearConfig struct {
	ID            string     `json:"-" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Enabled       bool       `json:"enabled" bson:"enabled"`
	IntervalHours int        `json:"intervalHours" bson:"interval_hours"`
	CollectionID  string     `json:"collectionId,omitempty" bson:"collection_id"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty" bson:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"nextRunAt,omitempty" bson:"next_run_at,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Due reports whether a scheduled clear should run at now.
func (c AutoClearConfig) Due(now time.Time) bool {
	return c.Enabled && c.NextRunAt != nil && !now.Before(*c.NextRunAt)
}

type AutoClearLog struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	RanAt        time.Time `json:"ranAt" bson:"ran_at" gorm:"index"`
	Trigger      string    `json:"trigger" bson:"trigger"`
	CollectionID string    `json:"collectionId,omitempty" bson:"collection_id"`
	DeletedCount int64     `json:"deletedCount" bson:"deleted_count"`
	Actor        string    `json:"actor,omitempty" bson:"actor"`
}

type BadUsername struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Word      string    `json:"word" bson:"word" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
