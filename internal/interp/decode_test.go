package interp

import (
	"net/http"
	"testing"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
)

func TestDecodeXMLBodyQueryProtocol(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	op := cat.Service("iam").Operations["ListUsers"]
	body := []byte(`<ListUsersResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/">
  <ListUsersResult>
    <Users>
      <member><UserName>alice</UserName><UserId>AIDA1</UserId></member>
      <member><UserName>bob</UserName><UserId>AIDA2</UserId></member>
    </Users>
    <IsTruncated>false</IsTruncated>
  </ListUsersResult>
  <ResponseMetadata><RequestId>req-1</RequestId></ResponseMetadata>
</ListUsersResponse>`)

	m, err := decodeXMLBody(op, body)
	if err != nil {
		t.Fatalf("decodeXMLBody: %v", err)
	}
	users, ok := m["Users"].([]any)
	if !ok || len(users) != 2 {
		t.Fatalf("member wrappers should collapse into a list, got %T %v", m["Users"], m["Users"])
	}
	first := users[0].(map[string]any)
	if first["UserName"] != "alice" {
		t.Fatalf("UserName = %v", first["UserName"])
	}
	md := m["ResponseMetadata"].(map[string]any)
	if md["RequestId"] != "req-1" {
		t.Fatalf("metadata should survive the result hoist, got %v", md)
	}
	if _, ok := m["ListUsersResult"]; ok {
		t.Fatal("the result wrapper should be hoisted away")
	}
}

func TestDecodeXMLBodyRepeatedSiblings(t *testing.T) {
	op := catalog.NewOperation("ListHostedZones", nil)
	body := []byte(`<ListHostedZonesResponse>
  <HostedZones>
    <HostedZone><Id>Z1</Id></HostedZone>
    <HostedZone><Id>Z2</Id></HostedZone>
  </HostedZones>
</ListHostedZonesResponse>`)

	m, err := decodeXMLBody(op, body)
	if err != nil {
		t.Fatalf("decodeXMLBody: %v", err)
	}
	zones := m["HostedZones"].(map[string]any)["HostedZone"].([]any)
	if len(zones) != 2 {
		t.Fatalf("repeated siblings should become a list, got %v", zones)
	}
}

func TestDecodeXMLBodyEmpty(t *testing.T) {
	op := catalog.NewOperation("DeleteBucket", nil)
	m, err := decodeXMLBody(op, []byte("  "))
	if err != nil {
		t.Fatalf("decodeXMLBody: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("empty body should decode to an empty map, got %v", m)
	}
}

func TestDecodeXMLError(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
		msg  string
	}{
		{
			name: "query protocol",
			body: `<ErrorResponse><Error><Type>Sender</Type><Code>AccessDenied</Code><Message>not authorized</Message></Error></ErrorResponse>`,
			code: "AccessDenied",
			msg:  "not authorized",
		},
		{
			name: "bare error",
			body: `<Error><Code>NoSuchBucket</Code><Message>bucket missing</Message></Error>`,
			code: "NoSuchBucket",
			msg:  "bucket missing",
		},
		{
			name: "nested errors",
			body: `<Response><Errors><Error><Code>InvalidInstanceID.NotFound</Code><Message>no such instance</Message></Error></Errors></Response>`,
			code: "InvalidInstanceID.NotFound",
			msg:  "no such instance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := decodeXMLError([]byte(tt.body))
			if code != tt.code || msg != tt.msg {
				t.Fatalf("got (%q, %q), want (%q, %q)", code, msg, tt.code, tt.msg)
			}
		})
	}
}

func TestDecodeJSONError(t *testing.T) {
	code, msg := decodeJSONError([]byte(`{"__type":"com.amazon.coral.service#AccessDeniedException","message":"denied"}`))
	if code != "AccessDeniedException" || msg != "denied" {
		t.Fatalf("got (%q, %q)", code, msg)
	}
}

func TestDecodeErrorFallsBackToHeaderAndStatus(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Header:     http.Header{"X-Amzn-Errortype": []string{"ValidationException:http://internal"}},
	}
	err := decodeError("json", resp, []byte(`{}`))
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "ValidationException" {
		t.Fatalf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "Bad Request" {
		t.Fatalf("Message = %q", apiErr.Message)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d", apiErr.StatusCode)
	}
}
