package parser

import (
	"regexp"

	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// ec2 resource ids are short (8 hex chars) or long (17 hex chars) form.
var ec2IDPatterns = map[string]*regexp.Regexp{
	"InstanceIds": regexp.MustCompile(`^i-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
	"ImageIds":    regexp.MustCompile(`^ami-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
	"SnapshotIds": regexp.MustCompile(`^snap-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
	"VolumeIds":   regexp.MustCompile(`^vol-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
	"VpcIds":      regexp.MustCompile(`^vpc-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
	"SubnetIds":   regexp.MustCompile(`^subnet-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
	"GroupIds":    regexp.MustCompile(`^sg-[0-9a-f]{8}(?:[0-9a-f]{9})?$`),
}

var (
	ssmInstanceID   = regexp.MustCompile(`^(?:i-|mi-)[0-9a-f]{8}(?:[0-9a-f]{9})?$`)
	ssmDocumentName = regexp.MustCompile(`^[a-zA-Z0-9_\-.:/]{3,128}$`)
)

func runCustomValidations(service, operation string, params map[string]any) error {
	switch service {
	case "ec2":
		return validateEC2Parameters(params)
	case "ssm":
		return validateSSMParameters(operation, params)
	}
	return nil
}

func validateEC2Parameters(params map[string]any) error {
	for name, pattern := range ec2IDPatterns {
		value, present := params[name]
		if !present {
			continue
		}
		for _, id := range stringElements(value) {
			if !pattern.MatchString(id) {
				return ir.NewParameterPatternError(name, pattern.String())
			}
		}
	}
	return nil
}

func validateSSMParameters(operation string, params map[string]any) error {
	switch operation {
	case "SendCommand":
		for _, id := range stringElements(params["InstanceIds"]) {
			if !ssmInstanceID.MatchString(id) {
				return ir.NewParameterPatternError("InstanceIds", ssmInstanceID.String())
			}
		}
		if name, ok := params["DocumentName"].(string); ok && !ssmDocumentName.MatchString(name) {
			return ir.NewParameterPatternError("DocumentName", ssmDocumentName.String())
		}
	case "ListCommands":
		if id, ok := params["InstanceId"].(string); ok && !ssmInstanceID.MatchString(id) {
			return ir.NewParameterPatternError("InstanceId", ssmInstanceID.String())
		}
	}
	return nil
}

// stringElements flattens a parameter value into its string members.
func stringElements(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, element := range v {
			if s, ok := element.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
