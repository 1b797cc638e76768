package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/lendingloop/lendingloop-backend/pkg/config"
	pkgerrors "github.com/lendingloop/lendingloop-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(
		config.SendgridConfig{APIKey: "test-key", DefaultFrom: "noreply@lendingloop.test"},
		WithBaseURL("http://sendgrid.test/v3"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientSendRequest(t *testing.T) {
	const expectedURL = "http://sendgrid.test/v3/mail/send"

	var capturedURL string
	var capturedHeaders http.Header
	var capturedBody map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &capturedBody); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}

		return &http.Response{
			StatusCode: http.StatusAccepted,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(t, rt)
	err := client.Send(context.Background(), Message{
		To:        "borrower@example.com",
		Subject:   "hello",
		PlainText: "body",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("authorization header missing")
	}
	from, _ := capturedBody["from"].(map[string]any)
	if from["email"] != "noreply@lendingloop.test" {
		t.Fatalf("unexpected from %+v", from)
	}
	if capturedBody["subject"] != "hello" {
		t.Fatalf("unexpected subject %+v", capturedBody["subject"])
	}
}

func TestClientSendRejectsMissingRecipient(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatalf("request should not be sent")
		return nil, nil
	})
	err := client.Send(context.Background(), Message{Subject: "x", PlainText: "y"})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClientSendSurfacesAPIError(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(`{"errors":[{"message":"bad key"}]}`)),
			Header:     http.Header{},
		}, nil
	})
	client := newTestClient(t, rt)
	err := client.Send(context.Background(), Message{To: "a@b.c", Subject: "x", PlainText: "y"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.SendgridConfig{DefaultFrom: "noreply@lendingloop.test"})
	if !errors.Is(err, errAPIKeyRequired) {
		t.Fatalf("expected api key error, got %v", err)
	}
}
