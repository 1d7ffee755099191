package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)
	kvPasswordRegex  = regexp.MustCompile(`(?i)(password=)(\S+)`)
)

var sensitiveParams = []string{"apikey", "api_key", "key", "token", "secret", "password", "sign", "passphrase"}

// MaskDSN hides the password in a connection string. URL-form DSNs are parsed,
// so passwords containing '@' are hidden in full.
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
			return u.String()
		}
		return dsn
	}
	if strings.Contains(strings.ToLower(dsn), "password=") {
		return kvPasswordRegex.ReplaceAllString(dsn, "${1}***")
	}
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskURL hides userinfo passwords and credential-like query parameters.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return MaskDSN(raw)
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for k := range q {
			if isSensitive(k) {
				q.Set(k, "REDACTED")
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	return u.String()
}

func isSensitive(param string) bool {
	p := strings.ToLower(param)
	for _, s := range sensitiveParams {
		if p == s {
			return true
		}
	}
	return false
}
