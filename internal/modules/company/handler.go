package company

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/delordemm1/refshare-api/internal/apperror"
	"github.com/delordemm1/refshare-api/internal/contextx"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/pagination"
	"github.com/delordemm1/refshare-api/internal/validation"
)

// Handler holds the dependencies for the company module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

var bearerAuth = []map[string][]string{{"bearer": {}}}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "companies-list",
		Method:      http.MethodGet,
		Path:        "/companies/data",
		Summary:     "Search companies",
		Tags:        []string{"companies"},
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "companies-get",
		Method:      http.MethodGet,
		Path:        "/companies/item/{id}",
		Summary:     "Get a company",
		Tags:        []string{"companies"},
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "companies-create",
		Method:        http.MethodPost,
		Path:          "/companies/create",
		Summary:       "Create a company",
		Tags:          []string{"companies"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "companies-update",
		Method:      http.MethodPost,
		Path:        "/companies/update",
		Summary:     "Update a company you created",
		Tags:        []string{"companies"},
		Security:    bearerAuth,
	}, h.UpdateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "companies-delete",
		Method:      http.MethodDelete,
		Path:        "/companies/delete/{id}",
		Summary:     "Delete a company you created",
		Tags:        []string{"companies"},
		Security:    bearerAuth,
	}, h.DeleteHandler)
}

// --- DTOs & Mappers ---

type CompanyBody struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	URL           string    `json:"url,omitempty"`
	Description   string    `json:"description,omitempty"`
	PromotionText string    `json:"promotionText,omitempty"`
	Categories    []string  `json:"categories"`
	IsCustom      bool      `json:"isCustom"`
	AuthorID      string    `json:"authorId,omitempty"`
	RefsCount     int64     `json:"refsCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toBody(c *Company) CompanyBody {
	categories := c.Categories
	if categories == nil {
		categories = []string{}
	}
	return CompanyBody{
		ID:            c.ID,
		Name:          c.Name,
		URL:           deref(c.URL),
		Description:   deref(c.Description),
		PromotionText: deref(c.PromotionText),
		Categories:    categories,
		IsCustom:      c.IsCustom,
		AuthorID:      deref(c.AuthorID),
		RefsCount:     c.RefsCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toBodies(cs []Company) []CompanyBody {
	out := make([]CompanyBody, 0, len(cs))
	for i := range cs {
		out = append(out, toBody(&cs[i]))
	}
	return out
}

type LetterGroupBody struct {
	Letter    string        `json:"letter"`
	Companies []CompanyBody `json:"companies"`
}

type ListRequest struct {
	Type      string `query:"type" doc:"Set to 'letters' to group all companies by first letter"`
	Search    string `query:"search"`
	Category  string `query:"category"`
	Page      int    `query:"page"`
	Limit     int    `query:"limit"`
	SortBy    string `query:"sortBy" doc:"name, createdAt, updatedAt or refs"`
	SortOrder string `query:"sortOrder" doc:"asc or desc"`
}

type ListResponse struct {
	Body struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		Data    any              `json:"data"`
		Meta    *pagination.Meta `json:"meta,omitempty"`
	}
}

type ItemRequest struct {
	ID string `path:"id"`
}

type ItemResponse struct {
	Body struct {
		Success bool        `json:"success"`
		Message string      `json:"message,omitempty"`
		Data    CompanyBody `json:"data"`
	}
}

func itemResponse(c *Company, msg string) *ItemResponse {
	resp := &ItemResponse{}
	resp.Body.Success = true
	resp.Body.Message = msg
	resp.Body.Data = toBody(c)
	return resp
}

type CreateRequest struct {
	Body struct {
		Name          string   `json:"name" validate:"required,min=2,max=100"`
		URL           string   `json:"url,omitempty" required:"false"`
		Description   string   `json:"description,omitempty" required:"false" validate:"omitempty,min=10,max=2000"`
		PromotionText string   `json:"promotionText,omitempty" required:"false" validate:"omitempty,max=500"`
		Categories    []string `json:"categories,omitempty" required:"false"`
		IsCustom      bool     `json:"isCustom,omitempty" required:"false"`
	}
}

type UpdateRequest struct {
	Body struct {
		ID            string    `json:"id" validate:"required"`
		Name          *string   `json:"name,omitempty" required:"false" validate:"omitempty,min=2,max=100"`
		URL           *string   `json:"url,omitempty" required:"false"`
		Description   *string   `json:"description,omitempty" required:"false" validate:"omitempty,min=10,max=2000"`
		PromotionText *string   `json:"promotionText,omitempty" required:"false" validate:"omitempty,max=500"`
		Categories    *[]string `json:"categories,omitempty" required:"false"`
	}
}

type DeleteResponse struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

func currentUserID(ctx context.Context) (string, error) {
	id := contextx.UserID(ctx)
	if id == "" {
		return "", httpx.ToProblem(ctx, apperror.ErrUnauthorized)
	}
	return id, nil
}

// --- Handlers ---

// ListHandler searches companies, or groups all of them by letter when type=letters.
func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	resp := &ListResponse{}
	resp.Body.Success = true

	if input.Type == "letters" {
		groups, err := h.service.Letters(ctx)
		if err != nil {
			return nil, httpx.ToProblem(ctx, err)
		}
		data := make([]LetterGroupBody, 0, len(groups))
		for _, g := range groups {
			data = append(data, LetterGroupBody{Letter: g.Letter, Companies: toBodies(g.Companies)})
			resp.Body.Count += len(g.Companies)
		}
		resp.Body.Data = data
		return resp, nil
	}

	page, err := h.service.List(ctx, Filter{
		Search:     input.Search,
		Category:   input.Category,
		SortBy:     SortField(input.SortBy),
		Descending: input.SortOrder == "desc",
	}, pagination.Params{Page: input.Page, Limit: input.Limit})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp.Body.Count = len(page.Items)
	resp.Body.Data = toBodies(page.Items)
	resp.Body.Meta = &page.Meta
	return resp, nil
}

func (h *Handler) GetHandler(ctx context.Context, input *ItemRequest) (*ItemResponse, error) {
	c, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return itemResponse(c, ""), nil
}

func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*ItemResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	c, err := h.service.Create(ctx, userID, CreateInput{
		Name:          input.Body.Name,
		URL:           input.Body.URL,
		Description:   input.Body.Description,
		PromotionText: input.Body.PromotionText,
		Categories:    input.Body.Categories,
		IsCustom:      input.Body.IsCustom,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return itemResponse(c, "Company created successfully"), nil
}

func (h *Handler) UpdateHandler(ctx context.Context, input *UpdateRequest) (*ItemResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	c, err := h.service.Update(ctx, userID, UpdateInput{
		ID:            input.Body.ID,
		Name:          input.Body.Name,
		URL:           input.Body.URL,
		Description:   input.Body.Description,
		PromotionText: input.Body.PromotionText,
		Categories:    input.Body.Categories,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return itemResponse(c, "Company updated successfully"), nil
}

func (h *Handler) DeleteHandler(ctx context.Context, input *ItemRequest) (*DeleteResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.Delete(ctx, userID, input.ID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp := &DeleteResponse{}
	resp.Body.Success = true
	resp.Body.Message = "Company deleted successfully"
	return resp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
