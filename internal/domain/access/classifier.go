// Package access decides, per outgoing request, whether a credential must be
// attached. Classification is a pure function of path and method over an
// explicit ordered rule list; first match wins and anything unmatched is
// protected. Rule precedence is the whole contract: per-user sub-segments
// override the public read surface of an otherwise-browsable family.
package access

import "strings"

// Classification is the result of classifying an endpoint.
type Classification int

const (
	// Public endpoints are dispatched without a credential.
	Public Classification = iota
	// Protected endpoints carry the bearer credential when one is stored.
	Protected
)

// String returns a short name for logging.
func (c Classification) String() string {
	if c == Public {
		return "public"
	}
	return "protected"
}

// allowList holds the authentication/bootstrap paths that are public for any
// method. Matched by substring so versioned prefixes don't matter.
var allowList = []string{
	"health",
	"stats",
	"auth/initiate",
	"auth/verify-otp",
	"auth/resend-otp",
	"auth/complete-profile",
	"media/upload-url",
	"auth/register",
	"auth/login",
	"auth/logout",
	"auth/refresh",
	"auth/verify-email",
	"auth/verify-phone",
	"auth/forgot-password",
	"auth/reset-password",
	"categories",
}

// restrictedSegments are per-user or owner-scoped path segments that force
// protection even under an otherwise-public resource family.
var restrictedSegments = map[string]bool{
	"user-activity":      true,
	"favorites":          true,
	"like":               true,
	"my-business":        true,
	"owner":              true,
	"photo-request":      true,
	"whatsapp-check":     true,
	"user-reviews":       true,
	"user-liked-reviews": true,
}

// families are the resource groups whose bare list reads are browsable
// without a login.
var families = map[string]bool{
	"businesses": true,
	"services":   true,
	"products":   true,
}

// rule is one predicate→classification pair. The rules slice is evaluated in
// order and the first matching rule decides.
type rule struct {
	name  string
	match func(segs []string, path, method string) bool
	class Classification
}

var rules = []rule{
	{
		name: "auth and bootstrap allow-list",
		match: func(_ []string, path, _ string) bool {
			for _, entry := range allowList {
				if strings.Contains(path, entry) {
					return true
				}
			}
			return false
		},
		class: Public,
	},
	{
		name: "restricted per-user segments",
		match: func(segs []string, _, _ string) bool {
			for _, s := range segs {
				if restrictedSegments[s] {
					return true
				}
			}
			return false
		},
		class: Protected,
	},
	{
		name: "resource family list read",
		match: func(segs []string, _, method string) bool {
			return method == "GET" && len(segs) == 1 && families[segs[0]]
		},
		class: Public,
	},
	{
		// Detail reads carry richer data than the list surface and must not
		// be scraped anonymously; writes to a family are never public.
		name: "resource family detail or write",
		match: func(segs []string, _, _ string) bool {
			return len(segs) > 0 && families[segs[0]]
		},
		class: Protected,
	},
	{
		name: "business hours read",
		match: func(segs []string, _, method string) bool {
			return method == "GET" && len(segs) > 0 && segs[0] == "business-hours"
		},
		class: Public,
	},
	{
		name: "business hours write",
		match: func(segs []string, _, _ string) bool {
			return len(segs) > 0 && segs[0] == "business-hours"
		},
		class: Protected,
	},
	{
		name: "analytics read",
		match: func(segs []string, _, method string) bool {
			return method == "GET" && len(segs) > 0 && segs[0] == "analytics"
		},
		class: Public,
	},
}

// Classify returns the classification for a request to path with the given
// HTTP method. path is relative to the API base URL; a query string, leading
// or trailing slashes, and letter case are all ignored.
func Classify(path, method string) Classification {
	p := normalize(path)
	segs := strings.Split(p, "/")
	m := strings.ToUpper(method)

	for _, r := range rules {
		if r.match(segs, p, m) {
			return r.class
		}
	}
	// Default deny: unknown paths and write operations never ride for free.
	return Protected
}

func normalize(path string) string {
	p := path
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return strings.Trim(strings.ToLower(p), "/")
}
