package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return New(cat, zerolog.Nop())
}

func TestParseSimpleCommand(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws ec2 describe-instances --region eu-west-1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.ServiceName() != "ec2" || cmd.OperationName() != "DescribeInstances" {
		t.Fatalf("resolved %s.%s", cmd.ServiceName(), cmd.OperationName())
	}
	if cmd.Region != "eu-west-1" {
		t.Fatalf("Region = %q", cmd.Region)
	}
	if cmd.IsCustomization {
		t.Fatal("API operations are not customizations")
	}
}

func TestParseIsIdempotent(t *testing.T) {
	p := newTestParser(t)
	const cli = "aws iam list-users --path-prefix /engineering/ --max-items 50"
	first, err := p.Parse(cli)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := p.Parse(cli)
	if err != nil {
		t.Fatalf("Parse again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parses differ:\n%+v\n%+v", first, second)
	}
}

func TestParseTypedParameters(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws ec2 run-instances --image-id ami-0abcdef12 --min-count 1 --max-count 3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cmd.Parameters["MinCount"]; got != int64(1) {
		t.Fatalf("MinCount = %v (%T)", got, got)
	}
	if got := cmd.Parameters["MaxCount"]; got != int64(3) {
		t.Fatalf("MaxCount = %v (%T)", got, got)
	}
}

func TestParseRejectsUnknownService(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws nosuchservice do-thing")
	var verr *ir.InvalidServiceError
	if !errors.As(err, &verr) {
		t.Fatalf("expected InvalidServiceError, got %v", err)
	}
}

func TestParseRejectsDeniedPseudoService(t *testing.T) {
	p := newTestParser(t)
	for _, cli := range []string{"aws configure list", "aws history show"} {
		_, err := p.Parse(cli)
		var verr *ir.ServiceNotAllowedError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ServiceNotAllowedError, got %v", cli, err)
		}
	}
}

func TestParseMissingOperation(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2")
	var verr *ir.MissingOperationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected MissingOperationError, got %v", err)
	}
}

func TestParseDeniedGlobalArguments(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances --debug --endpoint-url http://localhost:9999")
	var verr *ir.DeniedGlobalArgumentsError
	if !errors.As(err, &verr) {
		t.Fatalf("expected DeniedGlobalArgumentsError, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "--debug") || !strings.Contains(msg, "--endpoint-url") {
		t.Fatalf("all offenders should be reported together: %s", msg)
	}
}

func TestParseMissingRequiredParameters(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws rds create-db-instance")
	var verr *ir.MissingRequiredParametersError
	if !errors.As(err, &verr) {
		t.Fatalf("expected MissingRequiredParametersError, got %v", err)
	}
	want := []string{"--db-instance-class", "--db-instance-identifier", "--engine"}
	if !reflect.DeepEqual(verr.Parameters, want) {
		t.Fatalf("missing = %v, want %v", verr.Parameters, want)
	}
	if verr.CommandMetadata().ServiceSDKName != "rds" {
		t.Fatal("the failure should still carry the resolved metadata")
	}
}

func TestParseMisspelledParameter(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances --instance-idss i-0123456789abcdef0")
	var verr *ir.MisspelledParametersError
	if !errors.As(err, &verr) {
		t.Fatalf("expected MisspelledParametersError, got %v", err)
	}
	if !strings.Contains(err.Error(), "--instance-ids") {
		t.Fatalf("the suggestion should name the real flag: %s", err.Error())
	}
}

func TestParseUnknownParameterListsSupported(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances --completely-unrelated x")
	var verr *ir.InvalidParametersReceivedError
	if !errors.As(err, &verr) {
		t.Fatalf("expected InvalidParametersReceivedError, got %v", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "--dry-run") || strings.Contains(msg, "--cli-input-json") {
		t.Fatalf("excluded optional parameters must not be suggested: %s", msg)
	}
	if !strings.Contains(msg, "--instance-ids") {
		t.Fatalf("supported flags should be listed: %s", msg)
	}
}

func TestParseUnknownPositionalArguments(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances stray-token")
	var verr *ir.UnknownArgumentsError
	if !errors.As(err, &verr) {
		t.Fatalf("expected UnknownArgumentsError, got %v", err)
	}
}

func TestParseExpectedArgument(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances --instance-ids")
	var verr *ir.ExpectedArgumentError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ExpectedArgumentError, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected at least one argument") {
		t.Fatalf("message = %s", err.Error())
	}
}

func TestParseFilterValidation(t *testing.T) {
	p := newTestParser(t)

	// Wrong element key set.
	_, err := p.Parse(`aws ec2 describe-instances --filters '{"Name":"instance-state-name"}'`)
	var malformed *ir.MalformedFilterError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedFilterError, got %v", err)
	}

	// Unknown filter name.
	_, err = p.Parse("aws ec2 describe-instances --filters Name=does-not-exist,Values=x")
	var unknown *ir.UnknownFiltersError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFiltersError, got %v", err)
	}

	// Tag-prefixed names pass where the operation allows them.
	if _, err := p.Parse("aws ec2 describe-instances --filters Name=tag:Team,Values=core"); err != nil {
		t.Fatalf("tag filter should validate: %v", err)
	}
}

func TestParseEC2IDPattern(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances --instance-ids not-an-id")
	var verr *ir.ParameterPatternError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ParameterPatternError, got %v", err)
	}
}

func TestParseClientSideQuery(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws ec2 describe-instances --query \"Reservations[].Instances[?State.Name=='running']\"")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.ClientSideQuery == "" {
		t.Fatal("the query should be carried on the command")
	}

	_, err = p.Parse("aws ec2 describe-instances --query 'Reservations[?'")
	var verr *ir.ClientSideFilterError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ClientSideFilterError, got %v", err)
	}
}

func TestParseRegionFromARN(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws lambda get-function --function-name arn:aws:lambda:ap-southeast-2:123456789012:function:report-gen")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Region != "ap-southeast-2" {
		t.Fatalf("Region = %q, want the ARN's region", cmd.Region)
	}
}

func TestParseGlobalServicePinning(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws cloudfront list-distributions --region eu-central-1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Region != "us-east-1" {
		t.Fatalf("pinned services override --region, got %q", cmd.Region)
	}
}

func TestParseWaiter(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws ec2 wait instance-running --instance-ids i-0123456789abcdef0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.OperationName() != "wait instance-running" {
		t.Fatalf("operation = %q", cmd.OperationName())
	}
	if !cmd.IsCustomization {
		t.Fatal("waiters are customizations")
	}

	_, err = p.Parse("aws ec2 wait nosuch-condition")
	var verr *ir.InvalidServiceOperationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected InvalidServiceOperationError, got %v", err)
	}
}

func TestParseS3Customizations(t *testing.T) {
	p := newTestParser(t)

	cmd, err := p.Parse("aws s3 ls s3://my-bucket/logs/ --recursive")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cmd.IsCustomization || cmd.OperationName() != "ls" {
		t.Fatalf("got %+v", cmd.Metadata)
	}
	if cmd.Parameters["--recursive"] != true {
		t.Fatalf("Parameters = %v", cmd.Parameters)
	}

	// The bare s3 namespace does not expose API operations.
	_, err = p.Parse("aws s3 list-buckets")
	var verr *ir.InvalidServiceOperationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected InvalidServiceOperationError, got %v", err)
	}

	// The API surface lives under s3api.
	if _, err := p.Parse("aws s3api list-buckets"); err != nil {
		t.Fatalf("s3api list-buckets: %v", err)
	}
}

func TestParseRDSAuthTokenCustomization(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws rds generate-db-auth-token")
	var verr *ir.MissingRequiredParametersError
	if !errors.As(err, &verr) {
		t.Fatalf("expected MissingRequiredParametersError, got %v", err)
	}
	if len(verr.Parameters) != 3 {
		t.Fatalf("missing = %v, want all three flags", verr.Parameters)
	}

	cmd, err := p.Parse("aws rds generate-db-auth-token --hostname db.example.internal --port 5432 --username app")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Parameters["--port"] != int64(5432) {
		t.Fatalf("Parameters = %v", cmd.Parameters)
	}
}

func TestParseEMRHighLevelDenied(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws emr create-cluster --release-label emr-7.0.0")
	var verr *ir.OperationNotAllowedError
	if !errors.As(err, &verr) {
		t.Fatalf("expected OperationNotAllowedError, got %v", err)
	}

	// The real API operation is untouched by the denial.
	if _, err := p.Parse("aws emr list-clusters"); err != nil {
		t.Fatalf("emr list-clusters: %v", err)
	}
}

func TestParseProhibitedOperators(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("aws ec2 describe-instances && rm -rf /")
	var verr *ir.ProhibitedOperatorsError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ProhibitedOperatorsError, got %v", err)
	}
}

func TestParseShorthandAndJSONValues(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse(`aws ec2 describe-instances --filters '[{"Name":"instance-state-name","Values":["running"]}]'`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	filters, ok := cmd.Parameters["Filters"].([]any)
	if !ok || len(filters) != 1 {
		t.Fatalf("Filters = %v", cmd.Parameters["Filters"])
	}

	cmd, err = p.Parse("aws ec2 describe-instances --filters Name=instance-state-name,Values=running,stopped")
	if err != nil {
		t.Fatalf("Parse shorthand: %v", err)
	}
	element := cmd.Parameters["Filters"].([]any)[0].(map[string]any)
	values := element["Values"].([]any)
	if len(values) != 2 || values[1] != "stopped" {
		t.Fatalf("shorthand values = %v", values)
	}
}

func TestParseBooleanNegation(t *testing.T) {
	p := newTestParser(t)
	cmd, err := p.Parse("aws ec2 run-instances --image-id ami-0abcdef12 --min-count 1 --max-count 1 --no-dry-run")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Parameters["DryRun"] != false {
		t.Fatalf("DryRun = %v", cmd.Parameters["DryRun"])
	}
}
