package auth

import "catalog-api/internal/apperr"

var (
	ErrRegistrationFields = apperr.New(apperr.KindInputValidation, "Name, email and password are required")
	ErrPasswordTooLong    = apperr.New(apperr.KindInputValidation, "Password is too long")
	ErrLoginFields        = apperr.New(apperr.KindInputValidation, "Email and password are required")
	ErrUserExists         = apperr.New(apperr.KindConflict, "User already exists")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "User not found")
	ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "Invalid credentials")

	ErrRefreshTokenMissing = apperr.New(apperr.KindInputValidation, "Refresh token missing")
	// ErrRefreshTokenInvalid covers bad signatures and expiry; ErrRefreshTokenMismatch
	// covers well-formed tokens that are no longer the one stored for the user.
	ErrRefreshTokenInvalid  = apperr.New(apperr.KindAuthentication, "Invalid or expired refresh token")
	ErrRefreshTokenMismatch = apperr.New(apperr.KindAuthentication, "Invalid refresh token")

	ErrAccessTokenMissing = apperr.New(apperr.KindAuthentication, "Access denied. No token provided.")
	ErrAccessTokenExpired = apperr.New(apperr.KindAuthentication, "Token expired")
	ErrAccessTokenInvalid = apperr.New(apperr.KindAuthentication, "Invalid token")
	ErrForbidden          = apperr.New(apperr.KindAuthentication, "Forbidden")
)
