package ratelimit

import (
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Path matching supports prefix matching (e.g., "/api/jobs/" matches
// "/api/jobs/{id}/applications").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if isUnlimited(path, method) {
		return &EndpointConfig{Path: path, Method: method} // Limit 0 means unlimited
	}

	// Try exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	// Try prefix match (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	// No match found
	return nil
}

// isUnlimited reports requests that bypass limiting. Probes and scrapes are
// exempt, and so is job posting, whose contract allows only 200, 400 and 500.
func isUnlimited(path, method string) bool {
	switch {
	case method == "GET" && (path == "/health" || path == "/metrics"):
		return true
	case method == "POST" && path == "/api/jobs":
		return true
	default:
		return false
	}
}
