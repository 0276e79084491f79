package ref

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/delordemm1/refshare-api/internal/apperror"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/modules/company"
	"github.com/delordemm1/refshare-api/internal/pagination"
)

// Service defines the business logic of the ref module.
type Service interface {
	Create(ctx context.Context, authorID string, input CreateInput) (*Ref, error)
	Get(ctx context.Context, id string) (*Ref, error)
	List(ctx context.Context, f Filter, page pagination.Params) (*Page, error)
	Update(ctx context.Context, authorID, id string, changes Changes) (*Ref, error)
	// Apply runs one engagement or author action for userID against the referral.
	Apply(ctx context.Context, userID, refID string, action Action) (*ActionResult, error)
}

// CompanyLookup resolves the company a referral is posted for.
type CompanyLookup interface {
	Get(ctx context.Context, id string) (*company.Company, error)
}

type CreateInput struct {
	Title       string
	Description string
	Benefits    []string
	TermsOfUse  []string
	Type        Type
	Value       string
	CompanyID   string
}

// Page is one page of a referral listing.
type Page struct {
	Items []Ref
	Meta  pagination.Meta
}

type service struct {
	repo      Repository
	companies CompanyLookup
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, companies CompanyLookup, logger *slog.Logger) Service {
	return &service{repo: repo, companies: companies, logger: logger, now: time.Now}
}

func (s *service) Create(ctx context.Context, authorID string, input CreateInput) (*Ref, error) {
	exists, err := s.repo.UserExists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	c, err := s.companies.Get(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.ErrInternal.WithCause(err)
	}
	now := s.now()
	ref := &Ref{
		ID:          id.String(),
		Title:       strings.TrimSpace(input.Title),
		Description: optional(input.Description),
		Benefits:    input.Benefits,
		TermsOfUse:  input.TermsOfUse,
		Type:        input.Type,
		Value:       normalizeValue(input.Type, input.Value),
		Status:      StatusDraft,
		IsVisible:   true,
		AuthorID:    authorID,
		CompanyID:   c.ID,
		ExpiresAt:   now.Add(input.Type.Retention()),
		CreatedAt:   now,
		UpdatedAt:   now,
		CompanyName: c.Name,
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return nil, err
	}
	s.logger.Info("ref created", "ref_id", ref.ID, "company_id", c.ID, "author_id", authorID)
	return ref, nil
}

func (s *service) Get(ctx context.Context, id string) (*Ref, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, f Filter, page pagination.Params) (*Page, error) {
	if f.Sort == "" {
		f.Sort = defaultSort
	}
	if _, ok := sortOrders[f.Sort]; !ok {
		return nil, ErrInvalidSort
	}
	f.Search = strings.TrimSpace(f.Search)
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Meta: pagination.NewMeta(total, page)}, nil
}

func (s *service) Update(ctx context.Context, authorID, id string, changes Changes) (*Ref, error) {
	ref, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRefNotFound) {
			return nil, ErrRefNotFound
		}
		return nil, err
	}
	if ref.AuthorID != authorID {
		return nil, ErrNotAuthor.WithDetail("You can only update your own refs")
	}
	if changes.Title != nil {
		t := strings.TrimSpace(*changes.Title)
		changes.Title = &t
	}
	if err := s.repo.Update(ctx, id, changes); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) Apply(ctx context.Context, userID, refID string, action Action) (*ActionResult, error) {
	var result *ActionResult
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		ref, err := repo.LockForUpdate(ctx, refID)
		if err != nil {
			if errors.Is(err, ErrRefNotFound) {
				return ErrRefNotFound
			}
			return err
		}
		exists, err := repo.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		reaction, err := repo.Reaction(ctx, userID, refID)
		if err != nil {
			return err
		}

		switch action {
		case ActionLike, ActionDislike:
			reaction = toggleReaction(reaction, Reaction(action))
			if err := repo.SetReaction(ctx, userID, refID, reaction); err != nil {
				return err
			}
		case ActionClick:
			if ref.Clicks, err = repo.IncrementClicks(ctx, refID); err != nil {
				return err
			}
		case ActionVisible:
			if ref.AuthorID != userID {
				return ErrNotAuthor.WithDetail("Only author can change visibility")
			}
			ref.IsVisible = !ref.IsVisible
			if err := repo.SetFlags(ctx, refID, ref.IsVisible, ref.IsArchived); err != nil {
				return err
			}
		case ActionArchive:
			if ref.AuthorID != userID {
				return ErrNotAuthor.WithDetail("Only author can archive")
			}
			ref.IsArchived = !ref.IsArchived
			if ref.IsArchived {
				ref.IsVisible = false
			}
			if err := repo.SetFlags(ctx, refID, ref.IsVisible, ref.IsArchived); err != nil {
				return err
			}
		default:
			return ErrInvalidAction
		}

		likes, dislikes, err := repo.Counts(ctx, refID)
		if err != nil {
			return err
		}
		result = &ActionResult{
			Likes:      likes,
			Dislikes:   dislikes,
			Rating:     likes - dislikes,
			Clicks:     ref.Clicks,
			IsVisible:  ref.IsVisible,
			IsArchived: ref.IsArchived,
			Reaction:   reaction,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ref action applied", "ref_id", refID, "user_id", userID, "action", action)
	return result, nil
}

// normalizeValue prefixes link values that carry no scheme with https://.
func normalizeValue(t Type, value string) string {
	value = strings.TrimSpace(value)
	if t == TypeLink {
		return httpx.WithScheme(value)
	}
	return value
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
