package company

import "time"

// Company is a business that referrals point at.
type Company struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	URL           *string   `db:"url"`
	Description   *string   `db:"description"`
	PromotionText *string   `db:"promotion_text"`
	Categories    []string  `db:"categories"`
	IsCustom      bool      `db:"is_custom"`
	AuthorID      *string   `db:"author_id"`
	RefsCount     int64     `db:"refs_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SortField is a column the company list can be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByRefs      SortField = "refs"
)

// Filter selects and orders companies.
type Filter struct {
	Search     string
	Category   string
	SortBy     SortField
	Descending bool
}

// Changes lists the columns an update touches. Nil fields are left as they are.
type Changes struct {
	Name          *string
	URL           *string
	Description   *string
	PromotionText *string
	Categories    *[]string
}

func (c Changes) empty() bool {
	return c.Name == nil && c.URL == nil && c.Description == nil && c.PromotionText == nil && c.Categories == nil
}

// LetterGroup is the companies whose names start with Letter. Names starting with a
// digit or symbol share the "#" group.
type LetterGroup struct {
	Letter    string
	Companies []Company
}
