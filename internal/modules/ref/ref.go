package ref

import "time"

// Type is the kind of value a referral shares.
type Type string

const (
	TypeLink     Type = "link"
	TypeCode     Type = "code"
	TypeJobOffer Type = "job-offer"
)

// Retention is how long a referral of this type stays listed after creation.
func (t Type) Retention() time.Duration {
	const day = 24 * time.Hour
	switch t {
	case TypeLink:
		return 30 * day
	case TypeCode:
		return 60 * day
	case TypeJobOffer:
		return 180 * day
	default:
		return 90 * day
	}
}

// Status is the moderation state of a referral.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusReview   Status = "review"
	StatusRejected Status = "rejected"
	StatusPosted   Status = "posted"
)

// Reaction is a user's vote on a referral. A user holds at most one per referral.
type Reaction string

const (
	ReactionNone    Reaction = ""
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// Ref is a referral code, link or job offer posted for a company. Likes and Dislikes are
// counted from the reaction edges; they are never stored on the row.
type Ref struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Benefits    []string  `db:"benefits"`
	TermsOfUse  []string  `db:"terms_of_use"`
	Type        Type      `db:"type"`
	Value       string    `db:"value"`
	Status      Status    `db:"status"`
	IsVisible   bool      `db:"is_visible"`
	IsArchived  bool      `db:"is_archived"`
	Clicks      int64     `db:"clicks"`
	AuthorID    string    `db:"author_id"`
	CompanyID   string    `db:"company_id"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	Likes          int64   `db:"likes"`
	Dislikes       int64   `db:"dislikes"`
	CompanyName    string  `db:"company_name"`
	AuthorUsername *string `db:"author_username"`
}

func (r *Ref) Rating() int64 { return r.Likes - r.Dislikes }

// Filter selects referrals for listing. An empty Status means posted. Hidden and archived
// referrals are only listed when IncludeHidden is set.
type Filter struct {
	Type          Type
	Status        Status
	CompanyID     string
	AuthorID      string
	Search        string
	Sort          string
	IncludeHidden bool
}

// Changes lists the content fields an author edit touches. Nil fields are left as they are.
type Changes struct {
	Title       *string
	Description *string
	Benefits    *[]string
	TermsOfUse  *[]string
}

func (c Changes) empty() bool {
	return c.Title == nil && c.Description == nil && c.Benefits == nil && c.TermsOfUse == nil
}
