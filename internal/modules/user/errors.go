package user

import "github.com/delordemm1/refshare-api/internal/apperror"

var (
	// Resource & identity
	ErrUserNotFound = apperror.ErrNotFound.Derive("ErrUserNotFound", "User not found", "urn:problem:user/err-user-not-found")
	ErrEmailExists  = apperror.ErrConflict.Derive("ErrEmailExists", "User already exists", "urn:problem:user/err-email-exists")

	// Credentials
	ErrInvalidPassword  = apperror.ErrUnauthorized.Derive("ErrInvalidPassword", "Invalid password", "urn:problem:user/err-invalid-password")
	ErrEmailNotVerified = apperror.ErrUnauthorized.Derive("ErrEmailNotVerified", "Mail is not confirmed", "urn:problem:user/err-email-not-verified")

	// Verification codes
	ErrAlreadyVerified  = apperror.ErrInvalidArgument.Derive("ErrAlreadyVerified", "User is already verified", "urn:problem:user/err-already-verified")
	ErrUsernameRequired = apperror.ErrInvalidArgument.Derive("ErrUsernameRequired", "username key is required", "urn:problem:user/err-username-required")
	ErrPasswordRequired = apperror.ErrInvalidArgument.Derive("ErrPasswordRequired", "password key is required", "urn:problem:user/err-password-required")

	// Refresh tokens
	ErrNoRefreshToken      = apperror.ErrUnauthorized.Derive("ErrNoRefreshToken", "No refresh token provided", "urn:problem:user/err-no-refresh-token")
	ErrInvalidRefreshToken = apperror.ErrUnauthorized.Derive("ErrInvalidRefreshToken", "Invalid refresh token", "urn:problem:user/err-invalid-refresh-token")
	ErrRefreshTokenRevoked = apperror.ErrUnauthorized.Derive("ErrRefreshTokenRevoked", "Refresh token not found or invalidated", "urn:problem:user/err-refresh-token-revoked")

	// OAuth
	ErrUnsupportedProvider = apperror.ErrInvalidArgument.Derive("ErrUnsupportedOAuthProvider", "unsupported oauth provider", "urn:problem:user/err-unsupported-oauth-provider")
	ErrOAuthStateInvalid   = apperror.ErrInvalidArgument.Derive("ErrOAuthStateInvalid", "invalid or expired oauth state", "urn:problem:user/err-oauth-state-invalid")
	ErrOAuthExchangeFailed = apperror.ErrUnauthorized.Derive("ErrOAuthExchangeFailed", "oauth authentication failed", "urn:problem:user/err-oauth-exchange-failed")
	ErrOAuthEmailMissing   = apperror.ErrInvalidArgument.Derive("ErrOAuthEmailMissing", "email not provided by oauth provider", "urn:problem:user/err-oauth-email-missing")
	ErrIdentityTaken       = apperror.ErrConflict.Derive("ErrIdentityTaken", "this provider account is linked to another user", "urn:problem:user/err-identity-taken")

	ErrInternal = apperror.ErrInternal.Derive("ErrInternal", "internal server error", "urn:problem:user/err-internal")
)
