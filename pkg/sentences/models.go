package sentences

import "time"

// Progress labels accepted for status and difficulty.
var (
	Statuses     = []string{"unpracticed", "practicing", "practiced", "mastered"}
	Difficulties = []string{"easy", "medium", "hard"}
)

// Sentence is the full persisted practice item.
type Sentence struct {
	ID          int64     `json:"id"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	AudioPath   string    `json:"audioPath"`
	Explanation *string   `json:"explanation"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      string    `json:"status"`
	IsNew       int       `json:"isNew"`
	Difficulty  string    `json:"difficulty"`
	IsFavorite  int       `json:"isFavorite"`
}

// Summary is the reduced projection returned by filtered listing.
type Summary struct {
	ID         int64  `json:"id"`
	Original   string `json:"original"`
	AudioPath  string `json:"audioPath"`
	Status     string `json:"status"`
	IsNew      int    `json:"isNew"`
	Difficulty string `json:"difficulty"`
	IsFavorite int    `json:"isFavorite"`
}

// PracticeItem is what a learner needs to attempt one sentence.
type PracticeItem struct {
	ID        int64  `json:"id"`
	Original  string `json:"original"`
	AudioPath string `json:"audioPath"`
}

// NewSentence is the input to Create.
type NewSentence struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	AudioPath   string `json:"audioPath"`
	Explanation string `json:"explanation"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Page is a slice of rows plus pagination metadata.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
