package models

// WordRecord represents one vocabulary item the child is known to produce
type WordRecord struct {
	ID               string   `json:"id" db:"id"`
	Word             string   `json:"word" db:"word"`
	Category         string   `json:"category" db:"category"`
	Context          string   `json:"context,omitempty" db:"context"`
	Pronunciation    string   `json:"pronunciation,omitempty" db:"pronunciation"`
	Notes            string   `json:"notes,omitempty" db:"notes"`
	RelatedWords     []string `json:"relatedWords,omitempty" db:"-"`
	IsPartOfSentence bool     `json:"isPartOfSentence,omitempty" db:"is_part_of_sentence"`
	CreatedAt        int64    `json:"createdAt" db:"created_at"` // Unix milliseconds
	UpdatedAt        int64    `json:"updatedAt" db:"updated_at"` // Unix milliseconds
}

// WordFields holds the caller-supplied parts of a record; id and timestamps
// are generated by the store on insert.
type WordFields struct {
	Word             string   `json:"word"`
	Category         string   `json:"category"`
	Context          string   `json:"context,omitempty"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	RelatedWords     []string `json:"relatedWords,omitempty"`
	IsPartOfSentence bool     `json:"isPartOfSentence,omitempty"`
}

// Fixed category labels (分类). A record belongs to exactly one of these.
const (
	CategoryAnimal      = "动物"
	CategoryFood        = "食物"
	CategoryAction      = "动作"
	CategoryObject      = "物品"
	CategoryTransport   = "交通"
	CategoryEmotion     = "情感"
	CategoryPerson      = "人物"
	CategoryDailyPhrase = "日常用语"
	CategoryOther       = "其他"
)

// Categories returns the closed category set in display order.
func Categories() []string {
	return []string{
		CategoryAnimal,
		CategoryFood,
		CategoryAction,
		CategoryObject,
		CategoryTransport,
		CategoryEmotion,
		CategoryPerson,
		CategoryDailyPhrase,
		CategoryOther,
	}
}

// IsValidCategory reports whether name is one of the fixed categories.
func IsValidCategory(name string) bool {
	for _, c := range Categories() {
		if c == name {
			return true
		}
	}
	return false
}

// NormalizeCategory maps unknown category names to 其他.
func NormalizeCategory(name string) string {
	if IsValidCategory(name) {
		return name
	}
	return CategoryOther
}
