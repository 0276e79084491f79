package company

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/delordemm1/refshare-api/internal/apperror"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/pagination"
)

// Service defines the business logic of the company module.
type Service interface {
	Create(ctx context.Context, authorID string, input CreateInput) (*Company, error)
	Get(ctx context.Context, id string) (*Company, error)
	List(ctx context.Context, f Filter, page pagination.Params) (*Page, error)
	Letters(ctx context.Context) ([]LetterGroup, error)
	Update(ctx context.Context, authorID string, input UpdateInput) (*Company, error)
	Delete(ctx context.Context, authorID, id string) error
}

type CreateInput struct {
	Name          string
	URL           string
	Description   string
	PromotionText string
	Categories    []string
	IsCustom      bool
}

// UpdateInput edits the company ID. Nil fields are left unchanged.
type UpdateInput struct {
	ID            string
	Name          *string
	URL           *string
	Description   *string
	PromotionText *string
	Categories    *[]string
}

// Page is one page of a company listing.
type Page struct {
	Items []Company
	Meta  pagination.Meta
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) Create(ctx context.Context, authorID string, input CreateInput) (*Company, error) {
	name := strings.TrimSpace(input.Name)
	exists, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCompanyExists
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.ErrInternal.WithCause(err)
	}
	c := &Company{
		ID:            id.String(),
		Name:          name,
		URL:           optional(httpx.WithScheme(input.URL)),
		Description:   optional(input.Description),
		PromotionText: optional(input.PromotionText),
		Categories:    input.Categories,
		IsCustom:      input.IsCustom,
		AuthorID:      &authorID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("company created", "company_id", c.ID, "author_id", authorID)
	return c, nil
}

func (s *service) Get(ctx context.Context, id string) (*Company, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, f Filter, page pagination.Params) (*Page, error) {
	if f.SortBy == "" {
		f.SortBy = SortByName
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		return nil, ErrInvalidSort
	}
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Meta: pagination.NewMeta(total, page)}, nil
}

func (s *service) Letters(ctx context.Context) ([]LetterGroup, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return groupByLetter(all), nil
}

func (s *service) Update(ctx context.Context, authorID string, input UpdateInput) (*Company, error) {
	c, err := s.authored(ctx, authorID, input.ID)
	if err != nil {
		return nil, err
	}

	changes := Changes{
		Description:   input.Description,
		PromotionText: input.PromotionText,
		Categories:    input.Categories,
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != c.Name {
			exists, err := s.repo.ExistsByName(ctx, name)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrCompanyExists
			}
			changes.Name = &name
		}
	}
	if input.URL != nil {
		u := httpx.WithScheme(*input.URL)
		changes.URL = &u
	}

	if err := s.repo.Update(ctx, c.ID, changes); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, c.ID)
}

func (s *service) Delete(ctx context.Context, authorID, id string) error {
	if _, err := s.authored(ctx, authorID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("company deleted", "company_id", id, "author_id", authorID)
	return nil
}

// authored loads the company and checks that authorID created it.
func (s *service) authored(ctx context.Context, authorID, id string) (*Company, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if c.AuthorID == nil || *c.AuthorID != authorID {
		return nil, ErrNotAuthor
	}
	return c, nil
}

// groupByLetter buckets companies by the upper-cased first letter of their name. The "#"
// group comes first, then letters in order; companies are sorted by name in each group.
func groupByLetter(companies []Company) []LetterGroup {
	groups := map[string][]Company{}
	for _, c := range companies {
		key := "#"
		if r := []rune(strings.TrimSpace(c.Name)); len(r) > 0 {
			first := unicode.ToUpper(r[0])
			if first >= 'A' && first <= 'Z' {
				key = string(first)
			}
		}
		groups[key] = append(groups[key], c)
	}

	out := make([]LetterGroup, 0, len(groups))
	for letter, items := range groups {
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
		out = append(out, LetterGroup{Letter: letter, Companies: items})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Letter == "#" || out[j].Letter == "#" {
			return out[i].Letter == "#" && out[j].Letter != "#"
		}
		return out[i].Letter < out[j].Letter
	})
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
