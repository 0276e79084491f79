package ref

import (
	"context"
	"fmt"
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

// Handler holds the dependencies for the ref module's HTTP handlers.
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
		OperationID: "refs-list",
		Method:      http.MethodGet,
		Path:        "/refs/data",
		Summary:     "List referrals",
		Tags:        []string{"refs"},
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "refs-get",
		Method:      http.MethodGet,
		Path:        "/refs/item/{id}",
		Summary:     "Get a referral",
		Tags:        []string{"refs"},
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "refs-create",
		Method:        http.MethodPost,
		Path:          "/refs/create",
		Summary:       "Post a referral",
		Tags:          []string{"refs"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "refs-update",
		Method:      http.MethodPost,
		Path:        "/refs/update/{id}",
		Summary:     "Update a referral you posted",
		Tags:        []string{"refs"},
		Security:    bearerAuth,
	}, h.UpdateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "refs-action",
		Method:      http.MethodGet,
		Path:        "/refs/action/{id}",
		Summary:     "Like, dislike, click, hide or archive a referral",
		Tags:        []string{"refs"},
		Security:    bearerAuth,
	}, h.ActionHandler)
}

// --- DTOs & Mappers ---

type RefBody struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Benefits       []string  `json:"benefits"`
	TermsOfUse     []string  `json:"termsOfUse"`
	Type           Type      `json:"type"`
	Value          string    `json:"value"`
	Status         Status    `json:"status"`
	IsVisible      bool      `json:"isVisible"`
	IsArchived     bool      `json:"isArchived"`
	Clicks         int64     `json:"clicks"`
	Likes          int64     `json:"likes"`
	Dislikes       int64     `json:"dislikes"`
	Rating         int64     `json:"rating"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername,omitempty"`
	CompanyID      string    `json:"companyId"`
	CompanyName    string    `json:"companyName,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toBody(r *Ref) RefBody {
	return RefBody{
		ID:             r.ID,
		Title:          r.Title,
		Description:    deref(r.Description),
		Benefits:       nonNil(r.Benefits),
		TermsOfUse:     nonNil(r.TermsOfUse),
		Type:           r.Type,
		Value:          r.Value,
		Status:         r.Status,
		IsVisible:      r.IsVisible,
		IsArchived:     r.IsArchived,
		Clicks:         r.Clicks,
		Likes:          r.Likes,
		Dislikes:       r.Dislikes,
		Rating:         r.Rating(),
		AuthorID:       r.AuthorID,
		AuthorUsername: deref(r.AuthorUsername),
		CompanyID:      r.CompanyID,
		CompanyName:    r.CompanyName,
		ExpiresAt:      r.ExpiresAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type ListRequest struct {
	Page          int    `query:"page"`
	Limit         int    `query:"limit"`
	Search        string `query:"search"`
	Sort          string `query:"sort" doc:"createdAt, -createdAt, rating, -rating, title or -title"`
	TypeFilter    string `query:"typeFilter" enum:"link,code,job-offer"`
	StatusFilter  string `query:"statusFilter" enum:"draft,review,rejected,posted"`
	CompanyFilter string `query:"companyFilter"`
	AuthorFilter  string `query:"authorFilter"`
}

type ListResponse struct {
	Body struct {
		Success bool            `json:"success"`
		Data    []RefBody       `json:"data"`
		Meta    pagination.Meta `json:"meta"`
	}
}

type ItemRequest struct {
	ID string `path:"id"`
}

type ItemResponse struct {
	Body struct {
		Success bool    `json:"success"`
		Message string  `json:"message,omitempty"`
		Data    RefBody `json:"data"`
	}
}

func itemResponse(r *Ref, msg string) *ItemResponse {
	resp := &ItemResponse{}
	resp.Body.Success = true
	resp.Body.Message = msg
	resp.Body.Data = toBody(r)
	return resp
}

type CreateRequest struct {
	Body struct {
		Title       string   `json:"title" validate:"required,min=3,max=200"`
		Description string   `json:"description,omitempty" required:"false" validate:"omitempty,max=5000"`
		Benefits    []string `json:"benefits,omitempty"`
		TermsOfUse  []string `json:"termsOfUse,omitempty"`
		Type        string   `json:"type" validate:"required,oneof=link code job-offer"`
		Value       string   `json:"value" validate:"required,max=5000"`
		CompanyID   string   `json:"companyId" validate:"required"`
	}
}

type UpdateRequest struct {
	ID   string `path:"id"`
	Body struct {
		Title       *string   `json:"title,omitempty" required:"false" validate:"omitempty,min=3,max=200"`
		Description *string   `json:"description,omitempty" required:"false" validate:"omitempty,max=5000"`
		Benefits    *[]string `json:"benefits,omitempty"`
		TermsOfUse  *[]string `json:"termsOfUse,omitempty"`
	}
}

type ActionRequest struct {
	ID     string `path:"id"`
	Action string `query:"action" doc:"like, dislike, click, visible or archive"`
}

type ActionBody struct {
	Likes      int64    `json:"likes"`
	Dislikes   int64    `json:"dislikes"`
	Rating     int64    `json:"rating"`
	Clicks     int64    `json:"clicks"`
	IsVisible  bool     `json:"isVisible"`
	IsArchived bool     `json:"isArchived"`
	Reaction   Reaction `json:"reaction,omitempty"`
}

type ActionResponse struct {
	Body struct {
		Success bool       `json:"success"`
		Message string     `json:"message"`
		Data    ActionBody `json:"data"`
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

// ListHandler lists posted referrals by default. An author listing their own referrals
// also sees hidden and archived ones.
func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	f := Filter{
		Type:      Type(input.TypeFilter),
		Status:    Status(input.StatusFilter),
		CompanyID: input.CompanyFilter,
		AuthorID:  input.AuthorFilter,
		Search:    input.Search,
		Sort:      input.Sort,
	}
	if viewer := contextx.UserID(ctx); viewer != "" && viewer == f.AuthorID {
		f.IncludeHidden = true
	}

	page, err := h.service.List(ctx, f, pagination.Params{Page: input.Page, Limit: input.Limit})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp := &ListResponse{}
	resp.Body.Success = true
	resp.Body.Data = make([]RefBody, 0, len(page.Items))
	for i := range page.Items {
		resp.Body.Data = append(resp.Body.Data, toBody(&page.Items[i]))
	}
	resp.Body.Meta = page.Meta
	return resp, nil
}

func (h *Handler) GetHandler(ctx context.Context, input *ItemRequest) (*ItemResponse, error) {
	r, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return itemResponse(r, ""), nil
}

func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*ItemResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	r, err := h.service.Create(ctx, userID, CreateInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Benefits:    input.Body.Benefits,
		TermsOfUse:  input.Body.TermsOfUse,
		Type:        Type(input.Body.Type),
		Value:       input.Body.Value,
		CompanyID:   input.Body.CompanyID,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return itemResponse(r, "Ref created successfully"), nil
}

func (h *Handler) UpdateHandler(ctx context.Context, input *UpdateRequest) (*ItemResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	r, err := h.service.Update(ctx, userID, input.ID, Changes{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Benefits:    input.Body.Benefits,
		TermsOfUse:  input.Body.TermsOfUse,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return itemResponse(r, "Ref updated successfully"), nil
}

func (h *Handler) ActionHandler(ctx context.Context, input *ActionRequest) (*ActionResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	action, err := ParseAction(input.Action)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	res, err := h.service.Apply(ctx, userID, input.ID, action)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp := &ActionResponse{}
	resp.Body.Success = true
	resp.Body.Message = fmt.Sprintf("%s successful", action)
	resp.Body.Data = ActionBody{
		Likes:      res.Likes,
		Dislikes:   res.Dislikes,
		Rating:     res.Rating,
		Clicks:     res.Clicks,
		IsVisible:  res.IsVisible,
		IsArchived: res.IsArchived,
		Reaction:   res.Reaction,
	}
	return resp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
