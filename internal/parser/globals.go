package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// globalArgs carries the aws-level options that apply to every service.
type globalArgs struct {
	region        string
	query         string
	output        string
	profile       string
	endpointURL   string
	color         string
	debug         bool
	noVerifySSL   bool
	noSignRequest bool
	noPaginate    bool
}

var globalValueFlags = map[string]struct{}{
	"--region":       {},
	"--query":        {},
	"--output":       {},
	"--profile":      {},
	"--endpoint-url": {},
	"--color":        {},
	"--ca-bundle":    {},
}

var globalBoolFlags = map[string]struct{}{
	"--debug":              {},
	"--no-verify-ssl":      {},
	"--no-sign-request":    {},
	"--no-paginate":        {},
	"--no-cli-pager":       {},
	"--no-cli-auto-prompt": {},
	"--version":            {},
}

// extractGlobalArgs pulls aws-level options out of the token stream,
// wherever they appear, and returns the remaining service tokens.
func extractGlobalArgs(tokens []string) (globalArgs, []string, error) {
	var g globalArgs
	var remaining []string

	i := 0
	for i < len(tokens) {
		token := tokens[i]
		i++

		flag, inline, hasInline := strings.Cut(token, "=")
		if _, ok := globalBoolFlags[flag]; ok {
			switch flag {
			case "--debug":
				g.debug = true
			case "--no-verify-ssl":
				g.noVerifySSL = true
			case "--no-sign-request":
				g.noSignRequest = true
			case "--no-paginate":
				g.noPaginate = true
			}
			continue
		}
		if _, ok := globalValueFlags[flag]; ok {
			value := inline
			if !hasInline {
				if i >= len(tokens) || isFlagToken(tokens[i]) {
					return g, nil, ir.NewCommandValidationError(
						fmt.Sprintf("argument %s: expected one argument", flag))
				}
				value = tokens[i]
				i++
			}
			switch flag {
			case "--region":
				g.region = value
			case "--query":
				g.query = value
			case "--output":
				g.output = value
			case "--profile":
				g.profile = value
			case "--endpoint-url":
				g.endpointURL = value
			case "--color":
				g.color = value
			}
			continue
		}
		remaining = append(remaining, token)
	}
	return g, remaining, nil
}

// denied lists the global options the engine refuses to honor, sorted.
func (g globalArgs) denied() []string {
	var denied []string
	if g.debug {
		denied = append(denied, "--debug")
	}
	if g.endpointURL != "" {
		denied = append(denied, "--endpoint-url")
	}
	if g.noVerifySSL {
		denied = append(denied, "--no-verify-ssl")
	}
	if g.noSignRequest {
		denied = append(denied, "--no-sign-request")
	}
	sort.Strings(denied)
	return denied
}
