package templates

// CodeData holds the variables shared by every verification-code email.
type CodeData struct {
	AppName          string
	Code             string
	ExpiresInMinutes int
}

var (
	// RegisterCode confirms a new account's email address.
	RegisterCode = Expect[CodeData]("auth.register_code")
	// PasswordCode authorizes a password reset.
	PasswordCode = Expect[CodeData]("auth.password_code")
	// DraftCode confirms an email change or another pending profile edit.
	DraftCode = Expect[CodeData]("auth.draft_code")
)
