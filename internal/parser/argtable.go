package parser

import (
	"sort"
	"strings"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// Options the reported valid-flag list leaves out. They either have no
// server-side effect or are handled elsewhere.
var excludedOptionalParams = map[string]struct{}{
	"--cli-input-json":        {},
	"--generate-cli-skeleton": {},
	"--dry-run":               {},
	"--no-dry-run":            {},
}

// parsedArgs accumulates everything one pass over the operation's
// arguments produced. Nothing here raises; the caller decides which
// problem to report first.
type parsedArgs struct {
	values             map[string]any
	given              []string
	missing            []string
	unknownFlags       []string
	unknownPositionals []string
}

func isFlagToken(token string) bool {
	if strings.HasPrefix(token, "--") {
		return true
	}
	// A lone dash or a negative number is a value.
	if len(token) > 1 && token[0] == '-' {
		c := token[1]
		return c < '0' || c > '9'
	}
	return false
}

// parseArgTable walks the operation's argument tokens into a parsedArgs
// accumulator. Only malformed values error out here; unknown or missing
// arguments are collected for the precedence pass.
func parseArgTable(op *catalog.Operation, meta ir.CommandMetadata, tokens []string) (*parsedArgs, error) {
	parsed := &parsedArgs{values: make(map[string]any)}

	i := 0
	for i < len(tokens) {
		token := tokens[i]
		i++

		if !isFlagToken(token) {
			parsed.unknownPositionals = append(parsed.unknownPositionals, token)
			continue
		}

		flag, inline, hasInline := strings.Cut(token, "=")

		param := op.ParamByFlag(flag)
		negated := false
		if param == nil && strings.HasPrefix(flag, "--no-") {
			if p := op.ParamByFlag("--" + flag[len("--no-"):]); p != nil && p.Type == "boolean" {
				param, negated = p, true
			}
		}
		if param == nil {
			param = abbreviatedParam(op, flag)
		}
		if param == nil {
			parsed.unknownFlags = append(parsed.unknownFlags, flag)
			continue
		}

		parsed.given = append(parsed.given, flag)

		if negated {
			parsed.values[param.Name] = false
			continue
		}

		var raw []string
		switch {
		case param.Type == "boolean":
			if hasInline {
				raw = []string{inline}
			}
		case hasInline:
			raw = []string{inline}
		case param.Type == "list":
			for i < len(tokens) && !isFlagToken(tokens[i]) {
				raw = append(raw, tokens[i])
				i++
			}
			if len(raw) == 0 {
				return nil, ir.NewExpectedArgumentError(flag, "expected at least one argument", meta)
			}
		default:
			if i >= len(tokens) || isFlagToken(tokens[i]) {
				return nil, ir.NewExpectedArgumentError(flag, "expected one argument", meta)
			}
			raw = []string{tokens[i]}
			i++
		}

		value, err := coerceValue(param, flag, raw)
		if err != nil {
			return nil, err
		}
		parsed.values[param.Name] = value
	}

	for _, required := range op.RequiredFlags() {
		p := op.ParamByFlag(required)
		if _, ok := parsed.values[p.Name]; !ok {
			parsed.missing = append(parsed.missing, required)
		}
	}
	return parsed, nil
}

// abbreviatedParam resolves a flag that is a unique prefix of exactly
// one supported flag.
func abbreviatedParam(op *catalog.Operation, flag string) *catalog.Parameter {
	if !strings.HasPrefix(flag, "--") || len(flag) <= 2 {
		return nil
	}
	var match *catalog.Parameter
	for _, supported := range op.SupportedFlags() {
		if strings.HasPrefix(supported, flag) {
			if match != nil {
				return nil
			}
			match = op.ParamByFlag(supported)
		}
	}
	return match
}

// checkParsedArgs turns the accumulator into the first reportable error.
// A close misspelling short-circuits with a suggestion; otherwise unknown
// flags come before missing required flags, which come before stray
// positional arguments.
func checkParsedArgs(op *catalog.Operation, meta ir.CommandMetadata, service, operation string, parsed *parsedArgs) error {
	if len(parsed.unknownFlags) > 0 {
		supported := op.SupportedFlags()
		for _, unknown := range parsed.unknownFlags {
			if !strings.HasPrefix(unknown, "--") {
				continue
			}
			for _, existing := range supported {
				if similarityRatio(existing, unknown) >= 0.8 {
					return ir.NewMisspelledParametersError(service, operation, unknown, existing)
				}
			}
		}

		var valid []string
		for _, flag := range supported {
			if _, excluded := excludedOptionalParams[flag]; !excluded {
				valid = append(valid, flag)
			}
		}
		invalid := append([]string(nil), parsed.unknownFlags...)
		sort.Strings(invalid)
		return ir.NewInvalidParametersReceivedError(service, operation, invalid, valid)
	}
	if len(parsed.missing) > 0 {
		return ir.NewMissingRequiredParametersError(service, operation, parsed.missing, meta)
	}
	if len(parsed.unknownPositionals) > 0 {
		return ir.NewUnknownArgumentsError(service, operation, parsed.unknownPositionals)
	}
	return nil
}
