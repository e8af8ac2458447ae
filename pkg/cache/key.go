package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached E-utilities answer.
type CacheKey struct {
	// Endpoint is the E-utilities path (e.g., "/elink.fcgi")
	Endpoint string

	// Params are the request fields that determine the answer
	Params url.Values
}

// LinkKey returns the key for an elink resolution of fromUID via linkName.
func LinkKey(linkName, fromUID string) CacheKey {
	return CacheKey{
		Endpoint: "/elink.fcgi",
		Params: url.Values{
			"linkname": []string{linkName},
			"from_uid": []string{fromUID},
		},
	}
}

// LinkName returns the elink link name the key was built for.
func (k CacheKey) LinkName() string {
	return k.Params.Get("linkname")
}

// FromUID returns the uid being resolved.
func (k CacheKey) FromUID() string {
	return k.Params.Get("from_uid")
}

// String generates a deterministic cache key string.
// Format: sra:endpoint:param1=val1:param2=val2
//
// Example:
//
//	sra:elink:from_uid=12345:linkname=bioproject_sra
func (k CacheKey) String() string {
	parts := []string{"sra"}

	endpoint := strings.TrimSuffix(strings.Trim(k.Endpoint, "/"), ".fcgi")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Params[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
