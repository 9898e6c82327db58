// Package regions resolves the target region for a translated command.
// Explicit requests win over regions embedded in ARN arguments, which in
// turn win over the per-service pinning table and the configured default.
package regions

import "regexp"

// arnRegion captures the region field of an ARN. Global-service ARNs
// leave the field empty, which the extractor treats as no match.
var arnRegion = regexp.MustCompile(`^arn:aws[a-z-]*:[a-z0-9-]+:([a-z0-9-]+):`)

// globalServiceRegions pins services whose endpoints live in a single
// region regardless of what the caller configured.
var globalServiceRegions = map[string]string{
	"cloudfront":        "us-east-1",
	"globalaccelerator": "us-west-2",
	"organizations":     "us-east-1",
	"shield":            "us-east-1",
	"waf":               "us-east-1",
}

// nonRegionalized services accept any signing region; requests are not
// repinned even when the profile default differs from us-east-1.
var nonRegionalized = map[string]struct{}{
	"iam":     {},
	"route53": {},
}

// IsGlobal reports whether the service is pinned to a single region.
func IsGlobal(service string) bool {
	_, ok := globalServiceRegions[service]
	return ok
}

// IsNonRegionalized reports whether the service ignores the region field.
func IsNonRegionalized(service string) bool {
	_, ok := nonRegionalized[service]
	return ok
}

// PinnedRegion returns the fixed region for a global service, or "".
func PinnedRegion(service string) string {
	return globalServiceRegions[service]
}

// FromARN extracts the region field from an ARN-shaped string. It returns
// "" when the value is not an ARN or the ARN carries no region.
func FromARN(value string) string {
	m := arnRegion.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

// FromARNs scans candidate argument values and returns the first region
// found in any ARN among them.
func FromARNs(values []string) string {
	for _, v := range values {
		if r := FromARN(v); r != "" {
			return r
		}
	}
	return ""
}

// Resolve picks the effective region for a call against service.
//
// Pinned global services always resolve to their fixed region. Otherwise
// the explicit request wins, then a region recovered from an ARN
// argument, then the profile default.
func Resolve(service, explicit, fromARN, profileDefault string) string {
	if pinned := PinnedRegion(service); pinned != "" {
		return pinned
	}
	if explicit != "" {
		return explicit
	}
	if fromARN != "" {
		return fromARN
	}
	return profileDefault
}
