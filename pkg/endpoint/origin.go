package endpoint

import (
	"net/url"
	"strings"
)

// normalizeHost lowercases a host value and strips any port suffix so
// allow-list entries match regardless of how the client spelled them.
func normalizeHost(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	host, _, found := strings.Cut(value, ":")
	if !found {
		host = value
	}
	return strings.ToLower(host)
}

// originAllowed applies the origin policy: when an Origin header is
// present its host must be allow-listed; otherwise the Host header is
// checked instead. An empty allow-list never reaches this function.
func originAllowed(allowed []string, hostHeader, originHeader string) bool {
	hosts := make(map[string]struct{}, len(allowed))
	for _, entry := range allowed {
		if normalized := normalizeHost(entry); normalized != "" {
			hosts[normalized] = struct{}{}
		}
	}

	originHost := ""
	if originHeader != "" {
		if parsed, err := url.Parse(originHeader); err == nil {
			originHost = strings.ToLower(parsed.Hostname())
		}
	}
	if originHost != "" {
		_, ok := hosts[originHost]
		return ok
	}

	host := normalizeHost(hostHeader)
	if host == "" {
		return true
	}
	_, ok := hosts[host]
	return ok
}
