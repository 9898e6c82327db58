package interp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	awscreds "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/regions"
)

const (
	connectTimeout = 10 * time.Second
	readTimeout    = 10 * time.Second
)

// Credentials are the caller-supplied signing credentials. SessionToken
// is empty for long-lived keys.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// APIError is a service-side error decoded from a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RateLimiter paces outbound calls per service. Pagination can fan a
// single command into many requests; without pacing a tight page loop
// trips service throttling.
type RateLimiter struct {
	mu         sync.Mutex
	ratePerSec int
	lastCall   map[string]time.Time
}

func NewRateLimiter(ratePerSec int) *RateLimiter {
	return &RateLimiter{
		ratePerSec: ratePerSec,
		lastCall:   make(map[string]time.Time),
	}
}

func (rl *RateLimiter) Wait(service string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	minInterval := time.Second / time.Duration(rl.ratePerSec)
	if last, ok := rl.lastCall[service]; ok {
		if elapsed := time.Since(last); elapsed < minInterval {
			time.Sleep(minInterval - elapsed)
		}
	}
	rl.lastCall[service] = time.Now()
}

// Transport signs and sends serialized requests. Calls are made exactly
// once, with no retry; budget enforcement upstream depends on each call
// costing one round trip.
type Transport struct {
	client  *http.Client
	signer  *v4.Signer
	limiter *RateLimiter
}

// NewTransport builds a transport with fixed connect and read timeouts
// and per-service pacing.
func NewTransport() *Transport {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Transport{
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
		signer:  v4.NewSigner(),
		limiter: NewRateLimiter(10),
	}
}

// Do serializes, signs, sends and decodes one operation call. The
// returned map is the decoded response body; service-side failures come
// back as *APIError.
func (t *Transport) Do(ctx context.Context, svc *catalog.Service, op *catalog.Operation, region string, params map[string]any, creds Credentials) (map[string]any, error) {
	if t.limiter != nil {
		t.limiter.Wait(svc.Name)
	}
	req, err := BuildRequest(svc, op, params)
	if err != nil {
		return nil, fmt.Errorf("serializing %s.%s: %w", svc.Name, op.Name, err)
	}

	endpoint := resolveEndpoint(svc, region)
	u := endpoint + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, strings.NewReader(string(req.Body)))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	h := sha256.Sum256(req.Body)
	payloadHash := hex.EncodeToString(h[:])

	signingRegion := region
	if r := regions.PinnedRegion(svc.Name); r != "" {
		signingRegion = r
	}
	if regions.IsNonRegionalized(svc.Name) {
		signingRegion = "us-east-1"
	}
	if err := t.signer.SignHTTP(ctx, awscreds.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}, httpReq, payloadHash, signingName(svc), signingRegion, time.Now()); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, decodeError(svc.Protocol, resp, body)
	}
	return decodeResponse(svc, op, resp, body)
}

// EndpointURL resolves the public endpoint for a service in a region.
func EndpointURL(svc *catalog.Service, region string) string {
	return resolveEndpoint(svc, region)
}

func resolveEndpoint(svc *catalog.Service, region string) string {
	prefix := svc.EndpointPrefix
	if regions.IsNonRegionalized(svc.Name) || svc.Name == "cloudfront" {
		return fmt.Sprintf("https://%s.amazonaws.com", prefix)
	}
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.%s.amazonaws.com", prefix, region)
}

func signingName(svc *catalog.Service) string {
	if svc.SigningName != "" {
		return svc.SigningName
	}
	return svc.EndpointPrefix
}

func decodeResponse(svc *catalog.Service, op *catalog.Operation, resp *http.Response, body []byte) (map[string]any, error) {
	if op.Streaming {
		out := map[string]any{"Body": string(body)}
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			out["ContentType"] = ct
		}
		if etag := resp.Header.Get("ETag"); etag != "" {
			out["ETag"] = etag
		}
		return out, nil
	}
	switch svc.Protocol {
	case "query", "rest-xml":
		return decodeXMLBody(op, body)
	default:
		return decodeJSONBody(body)
	}
}

func decodeError(protocol string, resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	switch protocol {
	case "query", "rest-xml":
		code, msg := decodeXMLError(body)
		apiErr.Code, apiErr.Message = code, msg
	default:
		code, msg := decodeJSONError(body)
		if code == "" {
			code = resp.Header.Get("X-Amzn-Errortype")
			if i := strings.IndexByte(code, ':'); i >= 0 {
				code = code[:i]
			}
		}
		apiErr.Code, apiErr.Message = code, msg
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
