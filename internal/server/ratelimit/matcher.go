package ratelimit

import (
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Path matching supports prefix matching (e.g., "/runs/" matches "/runs/{id}").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Health check endpoint is unlimited.
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	return nil
}
