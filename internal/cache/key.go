package cache

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Params are the named query values of an upstream request.
type Params map[string]string

// Key identifies a cached upstream response.
type Key struct {
	Sport    string
	Endpoint string
	Params   Params
}

// Canonical returns the stable serialization of the key. Parameters are
// sorted by name and empty values are omitted, so an absent parameter and
// an empty one serialize identically.
func (k Key) Canonical() string {
	names := make([]string, 0, len(k.Params))

	for name, value := range k.Params {
		if value != "" {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = url.QueryEscape(name) + "=" + url.QueryEscape(k.Params[name])
	}

	return k.Sport + "|" + k.Endpoint + "|" + strings.Join(pairs, "&")
}

// String returns the hashed storage key.
func (k Key) String() string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(k.Canonical())))
}

// Query returns the non-empty params as url.Values.
func (p Params) Query() url.Values {
	q := url.Values{}

	for name, value := range p {
		if value != "" {
			q.Set(name, value)
		}
	}

	return q
}
