package ref

// Action is an engagement or author operation applied through /refs/action.
type Action string

const (
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
	ActionClick   Action = "click"
	ActionVisible Action = "visible"
	ActionArchive Action = "archive"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionLike, ActionDislike, ActionClick, ActionVisible, ActionArchive:
		return a, nil
	default:
		return "", ErrInvalidAction
	}
}

// toggleReaction returns the reaction a user holds after requesting one. Requesting the
// reaction already held removes it; anything else replaces it.
func toggleReaction(current, requested Reaction) Reaction {
	if current == requested {
		return ReactionNone
	}
	return requested
}

// ActionResult is the referral state after an action.
type ActionResult struct {
	Likes      int64
	Dislikes   int64
	Rating     int64
	Clicks     int64
	IsVisible  bool
	IsArchived bool
	// Reaction is the acting user's reaction after the action.
	Reaction Reaction
}
