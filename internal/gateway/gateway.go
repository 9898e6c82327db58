// Package gateway is CloudGate's single entry point: it translates a
// CLI command, classifies it, verifies the configured constraints,
// gates mutations behind consent and finally hands the command to the
// interpreter. Callers only ever see structured responses; no failure
// surfaces as a stack trace.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/cloudgate-project/cloudgate/internal/audit"
	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/classify"
	"github.com/cloudgate-project/cloudgate/internal/config"
	"github.com/cloudgate-project/cloudgate/internal/consent"
	"github.com/cloudgate-project/cloudgate/internal/constraint"
	"github.com/cloudgate-project/cloudgate/internal/interp"
	"github.com/cloudgate-project/cloudgate/internal/ir"
	"github.com/cloudgate-project/cloudgate/internal/parser"
	"github.com/cloudgate-project/cloudgate/internal/regions"
)

const (
	StatusSuccess         = "success"
	StatusConsentRequired = "consent_required"
	StatusFailed          = "failed"
)

const consentMismatchPrefix = "Consent token expired, invalid, or doesn't match the command signature."

// Credentials are the caller-supplied signing credentials.
type Credentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
}

// CallRequest is one execution request.
type CallRequest struct {
	CLICommand    string      `json:"cli_command"`
	Credentials   Credentials `json:"credentials"`
	DefaultRegion string      `json:"default_region,omitempty"`
	MaxResults    *int        `json:"max_results,omitempty"`
	MaxTokens     *int        `json:"max_tokens,omitempty"`
	IsCounting    bool        `json:"is_counting,omitempty"`
	ConsentToken  string      `json:"consent_token,omitempty"`
}

// CommandMetadata identifies the executed operation in responses.
type CommandMetadata struct {
	Service         string `json:"service"`
	ServiceFullName string `json:"service_full_name,omitempty"`
	Operation       string `json:"operation"`
	Region          string `json:"region,omitempty"`
}

// ExecutionResult carries the decoded response payload.
type ExecutionResult struct {
	JSON            map[string]any `json:"json"`
	StatusCode      int            `json:"status_code"`
	PaginationToken string         `json:"pagination_token,omitempty"`
}

// CallResponse is the structured outcome of a Call.
type CallResponse struct {
	Status                 string           `json:"status"`
	Response               *ExecutionResult `json:"response,omitempty"`
	Metadata               *CommandMetadata `json:"metadata,omitempty"`
	Message                string           `json:"message,omitempty"`
	ConsentToken           string           `json:"token,omitempty"`
	ValidationFailures     []ir.Failure     `json:"validation_failures,omitempty"`
	MissingContextFailures []ir.Failure     `json:"missing_context_failures,omitempty"`
	FailedConstraints      []ir.Failure     `json:"failed_constraints,omitempty"`
}

// ValidationResponse is the outcome of Validate: translation plus
// constraint verification, no execution.
type ValidationResponse struct {
	Valid                  bool               `json:"valid"`
	Classification         *ir.Classification `json:"classification,omitempty"`
	Metadata               *CommandMetadata   `json:"metadata,omitempty"`
	RequiresConsent        bool               `json:"requires_consent,omitempty"`
	ValidationFailures     []ir.Failure       `json:"validation_failures,omitempty"`
	MissingContextFailures []ir.Failure       `json:"missing_context_failures,omitempty"`
	FailedConstraints      []ir.Failure       `json:"failed_constraints,omitempty"`
}

// Gateway wires the translation and execution pipeline together.
type Gateway struct {
	cat        *catalog.Catalog
	parser     *parser.Parser
	classifier *classify.Classifier
	engine     *constraint.Engine
	consent    *consent.Manager
	interp     *interp.Interpreter
	cfg        config.GlobalConfig
	log        zerolog.Logger
	audit      *audit.Logger
}

// New builds a gateway. The audit logger may be nil; auditing is then
// disabled.
func New(cat *catalog.Catalog, cfg config.GlobalConfig, log zerolog.Logger, auditLog *audit.Logger) *Gateway {
	constraints := []constraint.Constraint{constraint.NoStreamingOutput}
	if cfg.ReadOnly {
		constraints = append([]constraint.Constraint{constraint.ReadOnly}, constraints...)
	}
	return &Gateway{
		cat:        cat,
		parser:     parser.New(cat, log),
		classifier: classify.New(cat),
		engine:     constraint.NewEngine(constraints...),
		consent:    consent.NewManager(time.Duration(cfg.ConsentTTLSeconds) * time.Second),
		interp:     interp.New(cat, interp.NewTransport(), log),
		cfg:        cfg,
		log:        log,
		audit:      auditLog,
	}
}

// Parse translates a command without classifying or executing it.
func (g *Gateway) Parse(cliCommand string) (*ir.Command, error) {
	return g.parser.Parse(cliCommand)
}

// Translate runs translation and classification only. Failures land in
// the translation's failure lists, bucketed by whether the command was
// malformed or merely incomplete.
func (g *Gateway) Translate(cliCommand string) ir.Translation {
	cmd, err := g.parser.Parse(cliCommand)
	if err != nil {
		t := ir.Translation{Program: cliCommand}
		var missing ir.MissingContextError
		if errors.As(err, &missing) {
			t.MissingContextFailures = []ir.Failure{missing.AsFailure()}
			meta := missing.CommandMetadata()
			t.Metadata = &meta
			cls := g.classifier.Classify(meta.ServiceSDKName, meta.OperationSDKName)
			t.Classification = &cls
			return t
		}
		var validation ir.ValidationError
		if errors.As(err, &validation) {
			t.ValidationFailures = []ir.Failure{validation.AsFailure()}
			return t
		}
		t.ValidationFailures = []ir.Failure{{Reason: err.Error()}}
		return t
	}

	cls := g.classifier.Classify(cmd.ServiceName(), cmd.OperationName())
	meta := cmd.Metadata
	return ir.Translation{
		Command:        cmd,
		Metadata:       &meta,
		Program:        cliCommand,
		Classification: &cls,
	}
}

// Validate translates and constraint-checks a command without executing
// it.
func (g *Gateway) Validate(cliCommand string) ValidationResponse {
	tr := g.Translate(cliCommand)
	if tr.Failed() {
		resp := ValidationResponse{
			Classification:         tr.Classification,
			ValidationFailures:     tr.ValidationFailures,
			MissingContextFailures: tr.MissingContextFailures,
		}
		if tr.Metadata != nil {
			resp.Metadata = &CommandMetadata{
				Service:         tr.Metadata.ServiceSDKName,
				ServiceFullName: tr.Metadata.ServiceFullSDKName,
				Operation:       tr.Metadata.OperationSDKName,
			}
		}
		g.auditLog(audit.EventCommandValidated, cliCommand, tr.Command, map[string]any{"valid": false})
		return resp
	}

	cmd := tr.Command
	resp := ValidationResponse{
		Classification:  tr.Classification,
		Metadata:        responseMetadata(cmd, cmd.Region),
		RequiresConsent: g.classifier.RequiresConsent(cmd.ServiceName(), cmd.OperationName()),
	}
	if failures := g.engine.Verify(cmd, *tr.Classification); len(failures) > 0 {
		resp.FailedConstraints = failures
		g.auditLog(audit.EventCommandDenied, cliCommand, cmd, map[string]any{"failed_constraints": len(failures)})
		return resp
	}

	resp.Valid = true
	g.auditLog(audit.EventCommandValidated, cliCommand, cmd, map[string]any{"valid": true})
	return resp
}

// CheckConsent reports whether the command may run with the presented
// token. It returns nil when no consent is needed or the token redeems.
func (g *Gateway) CheckConsent(cliCommand string, cmd *ir.Command, presented string) *CallResponse {
	if !g.classifier.RequiresConsent(cmd.ServiceName(), cmd.OperationName()) {
		return nil
	}

	presentedFailed := false
	if presented != "" {
		if g.consent.Validate(presented, cliCommand) {
			g.auditLog(audit.EventConsentGranted, cliCommand, cmd, nil)
			return nil
		}
		presentedFailed = true
	} else if g.consent.HasValidTokenFor(cliCommand) {
		return nil
	}

	token, err := g.consent.Generate(cliCommand)
	if err != nil {
		return &CallResponse{
			Status:  StatusFailed,
			Message: err.Error(),
		}
	}

	prefix := ""
	if presentedFailed {
		prefix = consentMismatchPrefix + " "
	}
	message := fmt.Sprintf(
		"%sThis operation '%s' requires explicit consent. Ask user for consent, and then call again with consent token %s if user gives consent to run action",
		prefix, cliCommand, token,
	)
	g.auditLog(audit.EventConsentRequired, cliCommand, cmd, map[string]any{"presented_failed": presentedFailed})
	return &CallResponse{
		Status:       StatusConsentRequired,
		Message:      message,
		ConsentToken: token,
		Metadata:     responseMetadata(cmd, cmd.Region),
	}
}

// Call runs the full pipeline for one command.
func (g *Gateway) Call(ctx context.Context, req CallRequest) CallResponse {
	tr := g.Translate(req.CLICommand)
	if tr.Failed() {
		return CallResponse{
			Status:                 StatusFailed,
			ValidationFailures:     tr.ValidationFailures,
			MissingContextFailures: tr.MissingContextFailures,
		}
	}
	cmd := tr.Command

	region := cmd.Region
	if region == "" {
		region = req.DefaultRegion
	}
	if region == "" {
		region = g.cfg.DefaultRegion
	}
	if r := regions.PinnedRegion(cmd.ServiceName()); r != "" {
		region = r
	}
	cmd.Region = region

	if failures := g.engine.Verify(cmd, *tr.Classification); len(failures) > 0 {
		g.auditLog(audit.EventCommandDenied, req.CLICommand, cmd, map[string]any{"failed_constraints": len(failures)})
		return CallResponse{
			Status:            StatusFailed,
			Metadata:          responseMetadata(cmd, region),
			FailedConstraints: failures,
		}
	}

	if gated := g.CheckConsent(req.CLICommand, cmd, req.ConsentToken); gated != nil {
		return *gated
	}

	creds := interp.Credentials{
		AccessKeyID:     req.Credentials.AccessKeyID,
		SecretAccessKey: req.Credentials.SecretAccessKey,
		SessionToken:    req.Credentials.SessionToken,
	}

	principal := ""
	if g.cfg.PreflightIdentity {
		principal = g.preflightIdentity(ctx, creds, region)
	}

	opts := interp.Options{MaxResults: req.MaxResults, MaxTokens: req.MaxTokens, Count: req.IsCounting}
	if opts.MaxResults == nil && g.cfg.MaxResults > 0 {
		n := g.cfg.MaxResults
		opts.MaxResults = &n
	}
	if opts.MaxTokens == nil && g.cfg.MaxTokens > 0 {
		n := g.cfg.MaxTokens
		opts.MaxTokens = &n
	}

	var result *interp.Result
	var execErr error
	if cmd.IsCustomization {
		result, region, execErr = g.executeCustomization(ctx, cmd, creds, region, opts)
	} else {
		result, execErr = g.interp.Execute(ctx, cmd, creds, opts)
		region = executionRegion(cmd, result, region)
	}
	if execErr != nil {
		g.auditEntry(audit.EventCommandDenied, req.CLICommand, cmd, principal, map[string]any{"error": execErr.Error()})
		return CallResponse{
			Status:   StatusFailed,
			Metadata: responseMetadata(cmd, region),
			Message:  execErr.Error(),
		}
	}

	g.auditEntry(audit.EventCommandExecuted, req.CLICommand, cmd, principal, nil)

	exec := &ExecutionResult{StatusCode: http.StatusOK}
	if result != nil {
		exec.JSON = result.Body
		exec.PaginationToken = result.PaginationToken
		if result.ResourceCount != nil {
			exec.JSON = map[string]any{
				"resource_count": result.ResourceCount.Count,
				"count_status":   result.ResourceCount.Status,
			}
		}
	}
	return CallResponse{
		Status:   StatusSuccess,
		Response: exec,
		Metadata: responseMetadata(cmd, region),
	}
}

// preflightIdentity resolves the caller ARN for audit records. A failed
// preflight does not block execution.
func (g *Gateway) preflightIdentity(ctx context.Context, creds interp.Credentials, region string) string {
	if region == "" {
		region = g.cfg.DefaultRegion
	}
	awsCfg := aws.Config{
		Region:      region,
		Credentials: awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
	}
	out, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		g.log.Warn().Err(err).Msg("identity preflight failed")
		return ""
	}
	return aws.ToString(out.Arn)
}

// executionRegion gives the region reported in response metadata. The
// s3 listing operations are surfaced as global.
func executionRegion(cmd *ir.Command, result *interp.Result, region string) string {
	if cmd.ServiceName() == "s3" && cmd.OperationName() == "ListBuckets" {
		return "Global"
	}
	if cmd.ServiceName() == "s3" && cmd.OperationName() == "GetBucketLocation" && result != nil {
		if lc, ok := result.Body["LocationConstraint"].(string); ok && lc != "" {
			return lc
		}
		return "us-east-1"
	}
	return region
}

func responseMetadata(cmd *ir.Command, region string) *CommandMetadata {
	if cmd == nil {
		return nil
	}
	return &CommandMetadata{
		Service:         cmd.ServiceName(),
		ServiceFullName: cmd.ServiceFullName(),
		Operation:       cmd.OperationName(),
		Region:          region,
	}
}

func (g *Gateway) auditLog(event audit.EventType, cliCommand string, cmd *ir.Command, detail any) {
	g.auditEntry(event, cliCommand, cmd, "", detail)
}

func (g *Gateway) auditEntry(event audit.EventType, cliCommand string, cmd *ir.Command, principal string, detail any) {
	if g.audit == nil {
		return
	}
	entry := audit.Entry{CLICommand: cliCommand, PrincipalARN: principal, Detail: detail}
	if cmd != nil {
		entry.Service = cmd.ServiceName()
		entry.Operation = cmd.OperationName()
		entry.Region = cmd.Region
	}
	if err := g.audit.Log(event, entry); err != nil {
		g.log.Warn().Err(err).Msg("audit write failed")
	}
}
