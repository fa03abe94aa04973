// backend/internal/models/collection.go
package models

import "time"

const (
	GameModeOrdered = "ordered"
	GameModeRandom  = "random"

	QuestionTypeOpen = "open"
	QuestionTypeMCQ  = "mcq"
)

type Collection struct {
	ID             string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name           string    `json:"name" bson:"name" gorm:"not null"`
	Code           string    `json:"code,omitempty" bson:"code" gorm:"index"`
	Online         bool      `json:"online" bson:"online"`
	Public         bool      `json:"public" bson:"public"`
	GameMode       string    `json:"gameMode" bson:"game_mode"`
	QuestionOrder  []string  `json:"questionOrder" bson:"question_order" gorm:"serializer:json;type:text"`
	WelcomeMessage string    `json:"welcomeMessage" bson:"welcome_message"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

type Question struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Number       int       `json:"number" bson:"number"`
	CollectionID string    `json:"collectionId" bson:"collection_id" gorm:"index;type:varchar(36)"`
	Prompt       string    `json:"prompt" bson:"prompt" gorm:"not null"`
	Type         string    `json:"type" bson:"type" gorm:"not null"`
	Options      []string  `json:"options,omitempty" bson:"options" gorm:"serializer:json;type:text"`
	Answers      []string  `json:"answers" bson:"answers" gorm:"serializer:json;type:text"`
	Hint         string    `json:"hint" bson:"hint"`
	FunFact      string    `json:"funFact" bson:"fun_fact"`
	ImagePath    string    `json:"imagePath,omitempty" bson:"image_path"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

func ValidGameMode(mode string) bool {
	return mode == GameModeOrdered || mode == GameModeRandom
}
