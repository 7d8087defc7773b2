package config

import "os"

// TokenSource represents where the Socrata app token came from.
type TokenSource string

const (
	TokenSourceEnv    TokenSource = "env"
	TokenSourceConfig TokenSource = "config"
	TokenSourceNone   TokenSource = "none"
)

// TokenStatus describes whether and how the CFTC app token is configured.
// A missing token is not an error: the client degrades to unauthenticated
// mode, which Socrata rate-limits more aggressively.
type TokenStatus struct {
	IsSet  bool        `json:"is_set"`
	Source TokenSource `json:"source"`
	Masked string      `json:"masked,omitempty"` // e.g., "Lfz...8uQ"
}

// CheckToken reports the status of the configured app token.
func CheckToken(cfg *Config) TokenStatus {
	tok := cfg.CFTC.AppToken
	if tok == "" {
		return TokenStatus{Source: TokenSourceNone}
	}
	status := TokenStatus{IsSet: true, Masked: maskToken(tok)}
	if os.Getenv("COTLENS_CFTC_APP_TOKEN") != "" || os.Getenv("SODA_APP_TOKEN") != "" {
		status.Source = TokenSourceEnv
	} else {
		status.Source = TokenSourceConfig
	}
	return status
}

// maskToken masks a token for display, showing only first 3 and last 3 chars.
func maskToken(tok string) string {
	if len(tok) <= 8 {
		return "***"
	}
	return tok[:3] + "..." + tok[len(tok)-3:]
}
