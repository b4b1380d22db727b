package ratelimit

import "strings"

// MatchEndpoint returns the config for method and path, or nil.
// Exact paths win over prefix entries (paths ending in "/").
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	var prefix *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if prefix == nil && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			prefix = c
		}
	}
	return prefix
}
