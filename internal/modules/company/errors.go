package company

import "github.com/delordemm1/refshare-api/internal/apperror"

var (
	ErrCompanyNotFound = apperror.ErrNotFound.Derive("ErrCompanyNotFound", "Company not found", "urn:problem:company/err-company-not-found")
	ErrCompanyExists   = apperror.ErrConflict.Derive("ErrCompanyExists", "Company with this name already exists", "urn:problem:company/err-company-exists")
	ErrNotAuthor       = apperror.ErrForbidden.Derive("ErrNotAuthor", "Only the author can change this company", "urn:problem:company/err-not-author")
	ErrInvalidSort     = apperror.ErrInvalidArgument.Derive("ErrInvalidSort", "Invalid sort. Use: name, createdAt, updatedAt, refs", "urn:problem:company/err-invalid-sort")
)
