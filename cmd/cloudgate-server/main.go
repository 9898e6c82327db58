// cloudgate-server exposes the CloudGate gateway as an MCP stdio
// server, so agent runtimes can validate and execute AWS-CLI-style
// commands as tools.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/cloudgate-project/cloudgate/internal/audit"
	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/config"
	"github.com/cloudgate-project/cloudgate/internal/db"
	"github.com/cloudgate-project/cloudgate/internal/gateway"
	"github.com/cloudgate-project/cloudgate/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "cloudgate-server",
		Short:   "CloudGate MCP server — AWS command tools over stdio",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	var auditLog *audit.Logger
	if cfg.AuditDBPath != "" {
		auditDB, err := db.OpenAuditDB(cfg.AuditDBPath)
		if err != nil {
			return fmt.Errorf("opening audit db: %w", err)
		}
		defer auditDB.Close()
		auditLog, err = audit.NewLogger(auditDB)
		if err != nil {
			return fmt.Errorf("initializing audit log: %w", err)
		}
	}

	gw := gateway.New(cat, cfg, logger, auditLog)

	s := server.NewMCPServer("cloudgate", version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(callTool(), callHandler(gw))
	s.AddTool(validateTool(), validateHandler(gw))

	logger.Info().Str("version", version).Msg("mcp server starting on stdio")
	return server.ServeStdio(s)
}

func callTool() mcp.Tool {
	return mcp.NewTool("call_aws",
		mcp.WithDescription("Execute an AWS-CLI-style command. Mutating operations are gated: the first call returns a consent token to present to the user, and the command runs only when called again with consent_token after the user agrees."),
		mcp.WithString("cli_command",
			mcp.Required(),
			mcp.Description("The full command line, e.g. 'aws ec2 describe-instances --region us-west-2'"),
		),
		mcp.WithString("default_region",
			mcp.Description("Region used when the command does not carry one"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Cap on returned items for paginated operations"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Response token budget for paginated operations"),
		),
		mcp.WithBoolean("is_counting",
			mcp.Description("Count matching resources instead of returning them"),
		),
		mcp.WithString("consent_token",
			mcp.Description("Consent token from a previous gated response"),
		),
	)
}

func callHandler(gw *gateway.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cliCommand, err := request.RequireString("cli_command")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		creds := gateway.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		}
		if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
			return mcp.NewToolResultError("server is missing AWS credentials: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY in its environment"), nil
		}

		req := gateway.CallRequest{
			CLICommand:    cliCommand,
			Credentials:   creds,
			DefaultRegion: request.GetString("default_region", ""),
			IsCounting:    request.GetBool("is_counting", false),
			ConsentToken:  request.GetString("consent_token", ""),
		}
		if n := request.GetInt("max_results", 0); n > 0 {
			req.MaxResults = &n
		}
		if n := request.GetInt("max_tokens", 0); n > 0 {
			req.MaxTokens = &n
		}

		return jsonResult(gw.Call(ctx, req))
	}
}

func validateTool() mcp.Tool {
	return mcp.NewTool("validate_aws_command",
		mcp.WithDescription("Translate and validate an AWS-CLI-style command without executing it. Returns the classification, whether consent would be required, and any validation failures."),
		mcp.WithString("cli_command",
			mcp.Required(),
			mcp.Description("The full command line to validate"),
		),
	)
}

func validateHandler(gw *gateway.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cliCommand, err := request.RequireString("cli_command")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(gw.Validate(cliCommand))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
