package skill

import "time"

type Category string

const (
	CategoryProgramming Category = "programming"
	CategoryMusic       Category = "music"
	CategorySports      Category = "sports"
	CategoryLanguages   Category = "languages"
	CategoryArt         Category = "art"
	CategoryScience     Category = "science"
	CategoryCooking     Category = "cooking"
	CategoryOther       Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryProgramming, CategoryMusic, CategorySports, CategoryLanguages,
		CategoryArt, CategoryScience, CategoryCooking, CategoryOther:
		return true
	}
	return false
}

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

type Skill struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Level       Level     `json:"level"`
	CanTeach    bool      `json:"can_teach"`
	WantLearn   bool      `json:"want_learn"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Input struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Level       Level    `json:"level"`
	CanTeach    bool     `json:"can_teach"`
	WantLearn   bool     `json:"want_learn"`
}

// Patch carries only the fields a client sent; nil means unchanged.
type Patch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *Category `json:"category"`
	Level       *Level    `json:"level"`
	CanTeach    *bool     `json:"can_teach"`
	WantLearn   *bool     `json:"want_learn"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Level == nil && p.CanTeach == nil && p.WantLearn == nil
}

// Filter narrows List; nil fields do not filter.
type Filter struct {
	Category  *Category
	Level     *Level
	CanTeach  *bool
	WantLearn *bool
}
