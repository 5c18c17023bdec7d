package config

// AuthorityConfig locates the external authority users are redirected to for
// login confirmation. The client never talks to it directly; it only builds
// the redirect URL and waits for the confirmation to land on the session record.
type AuthorityConfig interface {
	GetAuthorityAuthURL() string
	GetAuthorityClientID() string
	GetAuthorityRedirectURL() string
}

type Authority struct{}

var _ AuthorityConfig = Authority{}

func (Authority) GetAuthorityAuthURL() string {
	return GetEnv("AUTHORITY_AUTH_URL", "https://auth.system.com/auth")
}

func (Authority) GetAuthorityClientID() string {
	return GetEnv("AUTHORITY_CLIENT_ID", "web_client_v1")
}

func (Authority) GetAuthorityRedirectURL() string {
	return GetEnv("AUTHORITY_REDIRECT_URL", "http://localhost:3000/callback")
}
