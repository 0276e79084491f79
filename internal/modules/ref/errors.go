package ref

import "github.com/delordemm1/refshare-api/internal/apperror"

var (
	ErrRefNotFound   = apperror.ErrNotFound.Derive("ErrRefNotFound", "Ref not found", "urn:problem:ref/err-ref-not-found")
	ErrUserNotFound  = apperror.ErrNotFound.Derive("ErrUserNotFound", "User not found", "urn:problem:ref/err-user-not-found")
	ErrNotAuthor     = apperror.ErrForbidden.Derive("ErrNotAuthor", "Only the author can change this ref", "urn:problem:ref/err-not-author")
	ErrInvalidAction = apperror.ErrInvalidArgument.Derive("ErrInvalidAction", "Invalid action. Use: like, dislike, click, visible, archive", "urn:problem:ref/err-invalid-action")
	ErrInvalidSort   = apperror.ErrInvalidArgument.Derive("ErrInvalidSort", "Invalid sort. Use: createdAt, -createdAt, rating, -rating, title, -title", "urn:problem:ref/err-invalid-sort")
)
