package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	rdsauth "github.com/aws/aws-sdk-go-v2/feature/rds/auth"

	"github.com/cloudgate-project/cloudgate/internal/interp"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

const defaultPresignExpiry = 3600

// executeCustomization runs the CLI-only commands that have a direct
// remote effect. Commands that would require local filesystem transfer
// or an interactive channel are accepted by translation but cannot run
// here.
func (g *Gateway) executeCustomization(ctx context.Context, cmd *ir.Command, creds interp.Credentials, region string, opts interp.Options) (*interp.Result, string, error) {
	svc := cmd.ServiceName()
	op := cmd.OperationName()

	if strings.HasPrefix(op, "wait ") {
		result, err := g.pollWaiter(ctx, cmd, creds, region, opts)
		return result, region, err
	}

	switch {
	case svc == "s3" && op == "ls":
		return g.executeS3List(ctx, cmd, creds, region, opts)
	case svc == "s3" && op == "mb":
		return g.executeBucketOp(ctx, cmd, "CreateBucket", creds, region)
	case svc == "s3" && op == "rb":
		return g.executeBucketOp(ctx, cmd, "DeleteBucket", creds, region)
	case svc == "s3" && op == "presign":
		result, err := g.presignObject(cmd, creds, region)
		return result, region, err
	case svc == "config" && op == "get-status":
		result, err := g.interp.ExecuteOperation(ctx, "config", "DescribeConfigurationRecorderStatus", map[string]any{}, region, cmd.ClientSideQuery, creds, opts)
		return result, region, err
	case svc == "rds" && op == "generate-db-auth-token":
		result, err := g.generateDBAuthToken(ctx, cmd, creds, region)
		return result, region, err
	default:
		return nil, region, fmt.Errorf("%s %s is validate-only: it moves data through the local machine or opens an interactive session", svc, op)
	}
}

// executeS3List maps `s3 ls` onto the underlying API: no path lists
// buckets, a path lists objects under its prefix.
func (g *Gateway) executeS3List(ctx context.Context, cmd *ir.Command, creds interp.Credentials, region string, opts interp.Options) (*interp.Result, string, error) {
	paths := positionalPaths(cmd)
	if len(paths) == 0 {
		result, err := g.interp.ExecuteOperation(ctx, "s3", "ListBuckets", map[string]any{}, region, cmd.ClientSideQuery, creds, opts)
		return result, "Global", err
	}

	bucket, prefix, err := splitS3URI(paths[0])
	if err != nil {
		return nil, region, err
	}
	params := map[string]any{"Bucket": bucket}
	if prefix != "" {
		params["Prefix"] = prefix
	}
	recursive, _ := cmd.Parameters["--recursive"].(bool)
	if !recursive {
		params["Delimiter"] = "/"
	}
	result, err := g.interp.ExecuteOperation(ctx, "s3", "ListObjectsV2", params, region, cmd.ClientSideQuery, creds, opts)
	return result, region, err
}

func (g *Gateway) executeBucketOp(ctx context.Context, cmd *ir.Command, operation string, creds interp.Credentials, region string) (*interp.Result, string, error) {
	paths := positionalPaths(cmd)
	if len(paths) == 0 {
		return nil, region, fmt.Errorf("a bucket URI is required")
	}
	bucket, key, err := splitS3URI(paths[0])
	if err != nil {
		return nil, region, err
	}
	if key != "" {
		return nil, region, fmt.Errorf("expected a bucket URI, got an object path: %s", paths[0])
	}
	result, err := g.interp.ExecuteOperation(ctx, "s3", operation, map[string]any{"Bucket": bucket}, region, "", creds, interp.Options{})
	return result, region, err
}

// presignObject produces a SigV4 presigned GET URL for an object. No
// request is sent; the URL itself is the result.
func (g *Gateway) presignObject(cmd *ir.Command, creds interp.Credentials, region string) (*interp.Result, error) {
	paths := positionalPaths(cmd)
	if len(paths) == 0 {
		return nil, fmt.Errorf("an object URI is required")
	}
	bucket, key, err := splitS3URI(paths[0])
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("expected an object URI, got a bucket: %s", paths[0])
	}

	expires := defaultPresignExpiry
	if n, ok := cmd.Parameters["--expires-in"].(int64); ok {
		expires = int(n)
	}
	if region == "" {
		region = "us-east-1"
	}

	svc := g.cat.Service("s3")
	endpoint := interp.EndpointURL(svc, region)
	target := fmt.Sprintf("%s/%s/%s", endpoint, bucket, strings.ReplaceAll(key, " ", "%20"))
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = fmt.Sprintf("X-Amz-Expires=%d", expires)

	provider := awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
	cr, err := provider.Retrieve(context.Background())
	if err != nil {
		return nil, err
	}
	signer := v4.NewSigner()
	signed, _, err := signer.PresignHTTP(context.Background(), cr, req, "UNSIGNED-PAYLOAD", "s3", region, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &interp.Result{Body: map[string]any{"PresignedURL": signed}}, nil
}

// generateDBAuthToken builds an IAM database authentication token. This
// is purely local signing work, no request leaves the machine.
func (g *Gateway) generateDBAuthToken(ctx context.Context, cmd *ir.Command, creds interp.Credentials, region string) (*interp.Result, error) {
	hostname, _ := cmd.Parameters["--hostname"].(string)
	username, _ := cmd.Parameters["--username"].(string)
	port, ok := cmd.Parameters["--port"].(int64)
	if !ok {
		return nil, fmt.Errorf("--port must be an integer")
	}
	if region == "" {
		region = "us-east-1"
	}

	provider := awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
	endpoint := fmt.Sprintf("%s:%d", hostname, port)
	token, err := rdsauth.BuildAuthToken(ctx, endpoint, region, username, provider)
	if err != nil {
		return nil, err
	}
	return &interp.Result{Body: map[string]any{"AuthToken": token}}, nil
}

// pollWaiter issues a single poll of the waiter's backing operation.
// The caller inspects the response to decide whether the condition
// holds; there is no retry loop here.
func (g *Gateway) pollWaiter(ctx context.Context, cmd *ir.Command, creds interp.Credentials, region string, opts interp.Options) (*interp.Result, error) {
	condition := strings.TrimPrefix(cmd.OperationName(), "wait ")
	svc := g.cat.Service(cmd.ServiceName())
	if svc == nil {
		return nil, fmt.Errorf("unknown service %s", cmd.ServiceName())
	}
	waiter := svc.WaiterByCondition(condition)
	if waiter == nil {
		return nil, fmt.Errorf("unknown wait condition %s", condition)
	}
	return g.interp.ExecuteOperation(ctx, cmd.ServiceName(), waiter.Operation, cmd.Parameters, region, cmd.ClientSideQuery, creds, opts)
}

func positionalPaths(cmd *ir.Command) []string {
	paths, _ := cmd.Parameters["paths"].([]string)
	return paths
}

// splitS3URI splits s3://bucket/key/parts into bucket and key.
func splitS3URI(uri string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	if trimmed == uri || trimmed == "" {
		return "", "", fmt.Errorf("invalid S3 URI: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI: %s", uri)
	}
	return bucket, key, nil
}
