package catalog

import (
	"strings"
	"unicode"
)

// XformName converts a wire-style name to its CLI form, e.g.
// DescribeInstances -> describe-instances, DBInstanceIdentifier ->
// db-instance-identifier. Acronym runs stay together.
func XformName(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CLIFlag returns the --flag form of a wire parameter name.
func CLIFlag(paramName string) string {
	return "--" + XformName(paramName)
}
