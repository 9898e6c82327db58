// Package lexer tokenizes CLI command strings with shell-style quoting
// rules. No subprocess is ever invoked, so there is no shell-injection
// path downstream of this package.
package lexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// CommandWord is the required literal first token of every command.
const CommandWord = "aws"

// prohibited shell, logical and assignment operators. A command containing
// any of these is rejected with all offenders reported together.
var prohibited = map[string]struct{}{
	"&&":  {},
	"||":  {},
	"=":   {},
	"*=":  {},
	"/=":  {},
	"%=":  {},
	"+=":  {},
	"-=":  {},
	"<<=": {},
	">>=": {},
	"&=":  {},
	"^=":  {},
	"|=":  {},
}

// Split tokenizes the given CLI command. The token list is non-empty and
// starts with the literal command word, with prohibited operators rejected.
func Split(cliCommand string) ([]string, error) {
	tokens, err := shlex.Split(cliCommand)
	if err != nil {
		return nil, ir.NewParseError(err.Error())
	}

	var offenders []string
	for _, token := range tokens {
		if _, ok := prohibited[token]; ok {
			offenders = append(offenders, token)
		}
	}
	if len(offenders) > 0 {
		return nil, ir.NewProhibitedOperatorsError(offenders)
	}

	if len(tokens) == 0 {
		return nil, ir.NewParseError("The provided CLI command is empty")
	}
	if tokens[0] != CommandWord {
		return nil, ir.NewParseError("The provided CLI command is not an AWS command")
	}
	return tokens, nil
}

// ExpandUserHome expands a leading ~ in each token to the caller's home
// directory, mirroring what a shell would have done before invocation.
func ExpandUserHome(tokens []string) []string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return tokens
	}
	expanded := make([]string, len(tokens))
	for i, token := range tokens {
		switch {
		case token == "~":
			expanded[i] = home
		case strings.HasPrefix(token, "~/"):
			expanded[i] = filepath.Join(home, token[2:])
		default:
			expanded[i] = token
		}
	}
	return expanded
}
