package alphasms

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// stubTransport records calls and refuses to perform them. Used to prove an
// operation never reaches the network.
type stubTransport struct {
	calls int
}

func (s *stubTransport) Do(*http.Request) (*http.Response, error) {
	s.calls++
	return nil, errors.New("unexpected network call")
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	client, err := NewClient(Auth{APIKey: "secret"}, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

// acceptAllHandler parses the posted batch and answers one accepted receipt
// per entry, in reverse order to exercise correlation-id matching.
func acceptAllHandler(t *testing.T, requests *[][]msgRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		var req packageRequest
		if err := xml.Unmarshal(data, &req); err != nil {
			t.Errorf("parse request: %v", err)
			return
		}
		if req.Message == nil {
			t.Errorf("expected message action, got %s", data)
			return
		}
		if requests != nil {
			*requests = append(*requests, req.Message.Msgs)
		}

		fmt.Fprint(w, "<package><message>")
		for i := len(req.Message.Msgs) - 1; i >= 0; i-- {
			entry := req.Message.Msgs[i]
			fmt.Fprintf(w, `<msg id=%q sms_id="sms-%d" status="accepted"></msg>`, entry.ID, i+1)
		}
		fmt.Fprint(w, "</message></package>")
	})
}

func TestNewClientAuthModes(t *testing.T) {
	if _, err := NewClient(Auth{}, zerolog.Nop()); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument without credentials, got %v", err)
	}

	both := Auth{APIKey: "secret", Login: "user", Password: "pass"}
	if _, err := NewClient(both, zerolog.Nop()); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument with both modes, got %v", err)
	}

	if _, err := NewClient(Auth{APIKey: "secret"}, zerolog.Nop()); err != nil {
		t.Fatalf("api key mode should work: %v", err)
	}
	if _, err := NewClient(Auth{Login: "user", Password: "pass"}, zerolog.Nop()); err != nil {
		t.Fatalf("login/password mode should work: %v", err)
	}
}

func TestSendMessagesEmptyBatch(t *testing.T) {
	transport := &stubTransport{}
	client, err := NewClient(Auth{APIKey: "secret"}, zerolog.Nop(), WithHTTPClient(transport))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.SendMessages(context.Background(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if transport.calls != 0 {
		t.Fatalf("empty batch must not contact the transport, got %d calls", transport.calls)
	}
}

func TestSendMessagesInvalidPhone(t *testing.T) {
	transport := &stubTransport{}
	client, err := NewClient(Auth{APIKey: "secret"}, zerolog.Nop(), WithHTTPClient(transport))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	msgs := []Message{{Phone: "123", Sender: "UAinet", Text: "hi"}}
	if _, err := client.SendMessages(context.Background(), msgs); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if transport.calls != 0 {
		t.Fatalf("validation failure must not contact the transport, got %d calls", transport.calls)
	}
}

func TestSendMessagesRoundTrip(t *testing.T) {
	var requests [][]msgRequest
	client := newTestClient(t, acceptAllHandler(t, &requests))

	msgs := []Message{
		{Phone: "0681234567", Sender: "UAinet", Text: "Test1"},
		{Phone: "0667654321", Sender: "UAinet", Text: "Test2"},
	}
	results, err := client.SendMessages(context.Background(), msgs)
	if err != nil {
		t.Fatalf("SendMessages failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected one result per message, got %d", len(results))
	}
	// The handler answers in reverse order; correlation ids must restore
	// request order.
	if results[0].SMSID != "sms-1" || results[1].SMSID != "sms-2" {
		t.Fatalf("results out of order: %+v", results)
	}

	if len(requests) != 1 {
		t.Fatalf("expected a single POST, got %d", len(requests))
	}
	sent := requests[0]
	if sent[0].Recipient != "380681234567" || sent[1].Recipient != "380667654321" {
		t.Fatalf("recipients not normalized to wire form: %+v", sent)
	}
}

func TestSendSMSSingle(t *testing.T) {
	client := newTestClient(t, acceptAllHandler(t, nil))

	result, err := client.SendSMS(context.Background(), Message{Phone: "0681234567", Sender: "UAinet", Text: "hi"})
	if err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	if !result.Accepted || result.SMSID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSendMessagesPartialRejection(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req packageRequest
		if err := xml.Unmarshal(data, &req); err != nil || req.Message == nil || len(req.Message.Msgs) != 2 {
			t.Errorf("unexpected request: %s", data)
			return
		}
		fmt.Fprintf(w, `<package><message>
			<msg id=%q sms_id="111" status="accepted"></msg>
			<msg id=%q status="rejected">blocked recipient</msg>
		</message></package>`, req.Message.Msgs[0].ID, req.Message.Msgs[1].ID)
	})
	client := newTestClient(t, handler)

	msgs := []Message{
		{Phone: "0681234567", Sender: "UAinet", Text: "ok"},
		{Phone: "0667654321", Sender: "UAinet", Text: "blocked"},
	}
	results, err := client.SendMessages(context.Background(), msgs)
	if err != nil {
		t.Fatalf("partial rejection must not fail the call: %v", err)
	}
	if !results[0].Accepted || results[1].Accepted {
		t.Fatalf("unexpected accept flags: %+v", results)
	}
	if results[1].ProviderMessage != "blocked recipient" {
		t.Fatalf("unexpected provider message: %q", results[1].ProviderMessage)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<package><status><msg sms_id="1234567" status="delivered">done</msg></status></package>`)
	})
	client := newTestClient(t, handler)

	result, err := client.Status(context.Background(), "1234567")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if result.State != StateDelivered || result.Detail != "done" {
		t.Fatalf("unexpected status: %+v", result)
	}
}

func TestStatusMissingEntry(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<package><status><msg sms_id="other" status="sent"></msg></status></package>`)
	})
	client := newTestClient(t, handler)

	if _, err := client.Status(context.Background(), "1234567"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestStatusEmptyID(t *testing.T) {
	transport := &stubTransport{}
	client, err := NewClient(Auth{APIKey: "secret"}, zerolog.Nop(), WithHTTPClient(transport))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Status(context.Background(), "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if transport.calls != 0 {
		t.Fatalf("expected no network call, got %d", transport.calls)
	}
}

func TestBalanceRoundTrip(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<package><balance><amount>25.50</amount><currency>UAH</currency></balance></package>`)
	})
	client := newTestClient(t, handler)

	balance, err := client.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Amount != 25.50 || balance.Currency != "UAH" {
		t.Fatalf("unexpected balance: %+v", balance)
	}
}

func TestProviderErrorSurfacesOnEveryOperation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<package><error code="4">Not enough money</error></package>`)
	})
	client := newTestClient(t, handler)
	ctx := context.Background()

	operations := []struct {
		name string
		call func() error
	}{
		{"send", func() error {
			_, err := client.SendSMS(ctx, Message{Phone: "0681234567", Sender: "UAinet", Text: "hi"})
			return err
		}},
		{"status", func() error { _, err := client.Status(ctx, "1"); return err }},
		{"balance", func() error { _, err := client.Balance(ctx); return err }},
	}
	for _, op := range operations {
		err := op.call()
		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("%s: expected provider error, got %v", op.name, err)
		}
		if provErr.Code != 4 || provErr.Message != "Not enough money" {
			t.Fatalf("%s: unexpected provider error: %+v", op.name, provErr)
		}
	}
}

func TestTransportErrorOnNon2xx(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client := newTestClient(t, handler)

	if _, err := client.Balance(context.Background()); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTransportErrorOnNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(Auth{APIKey: "secret"}, zerolog.Nop(), WithBaseURL(url))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Balance(context.Background()); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
