package xtream

import "strings"

// Scheme prefixes recognised on a server address.
const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
	schemeSep   = "://"
)

// CommonPorts are the port suffixes tried, in order, when a server address
// does not carry an explicit port. The empty suffix means the scheme default.
var CommonPorts = []string{"", ":80", ":8080", ":8000", ":8081", ":8443", ":443"}

// GenerateEndpoints expands a server address into the ordered list of base
// URLs worth probing.
//
// A scheme given in the address is tried first, followed by the opposite
// scheme; a bare host tries http before https. Unless the host already names
// a port, every scheme is combined with CommonPorts (scheme-major order).
// Results have no trailing slash and contain no duplicates.
//
//	GenerateEndpoints("example.com")       // 14 candidates
//	GenerateEndpoints("example.com:8080")  // http://example.com:8080, https://example.com:8080
func GenerateEndpoints(address string) []string {
	s := strings.TrimRight(strings.TrimSpace(address), "/")

	host := s
	schemes := []string{schemeHTTP, schemeHTTPS}
	switch {
	case strings.HasPrefix(s, schemeHTTPS+schemeSep):
		host = strings.TrimPrefix(s, schemeHTTPS+schemeSep)
		schemes = []string{schemeHTTPS, schemeHTTP}
	case strings.HasPrefix(s, schemeHTTP+schemeSep):
		host = strings.TrimPrefix(s, schemeHTTP+schemeSep)
	}

	ports := CommonPorts
	if hasExplicitPort(host) {
		ports = []string{""}
	}

	seen := make(map[string]struct{}, len(schemes)*len(ports))
	endpoints := make([]string, 0, len(schemes)*len(ports))
	for _, scheme := range schemes {
		for _, port := range ports {
			candidate := strings.TrimRight(scheme+schemeSep+host+port, "/")
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			endpoints = append(endpoints, candidate)
		}
	}
	return endpoints
}

// hasExplicitPort is a deliberately loose check: any colon counts, except in
// a bracketed IPv6 literal.
func hasExplicitPort(host string) bool {
	return strings.Contains(host, ":") && !strings.HasPrefix(host, "[")
}
