// backend/internal/models/dto.go
package models

// QuestionDTO is what a player sees: no accepted answers, hint only on request.
type QuestionDTO struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	Prompt    string   `json:"prompt"`
	Type      string   `json:"type"`
	Options   []string `json:"options,omitempty"`
	HasHint   bool     `json:"hasHint"`
	ImagePath string   `json:"imagePath,omitempty"`
}

func (q Question) ToDTO() QuestionDTO {
	return QuestionDTO{
		ID:        q.ID,
		Number:    q.Number,
		Prompt:    q.Prompt,
		Type:      q.Type,
		Options:   q.Options,
		HasHint:   q.Hint != "",
		ImagePath: q.ImagePath,
	}
}

// CollectionDTO hides the access code from players.
type CollectionDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Public         bool   `json:"public"`
	WelcomeMessage string `json:"welcomeMessage"`
	QuestionCount  int    `json:"questionCount"`
}

func (c Collection) ToDTO(questionCount int) CollectionDTO {
	return CollectionDTO{
		ID:             c.ID,
		Name:           c.Name,
		Public:         c.Public,
		WelcomeMessage: c.WelcomeMessage,
		QuestionCount:  questionCount,
	}
}
