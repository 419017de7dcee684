package simd

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

func TestValidateCallbackURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "valid external URL", url: "https://example.com/callback"},
		{name: "valid localhost for development", url: "http://localhost:8000/callback"},
		{name: "invalid scheme", url: "ftp://example.com/callback", wantErr: ErrInvalidURL},
		{name: "missing hostname", url: "http:///callback", wantErr: ErrInvalidURL},
		{name: "metadata endpoint - IP", url: "http://169.254.169.254/metadata", wantErr: ErrMetadataEndpoint},
		{name: "metadata endpoint - hostname", url: "http://metadata.google.internal/metadata", wantErr: ErrMetadataEndpoint},
		{name: "wildcard address", url: "http://0.0.0.0:8000/callback", wantErr: ErrInternalHost},
		{name: "direct loopback IP", url: "http://127.0.0.1:8000/callback", wantErr: ErrInternalHost},
		{name: "private network IP", url: "http://10.1.2.3/callback", wantErr: ErrInternalHost},
		{name: "IPv6 loopback", url: "http://[::1]:8000/callback", wantErr: ErrInternalHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCallbackURL(tt.url)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateCallbackURL() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateCallbackURL() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"public IP", "8.8.8.8", false},
		{"RFC 1918 - 10.0.0.0/8", "10.0.0.1", true},
		{"RFC 1918 - 172.16.0.0/12", "172.16.0.1", true},
		{"RFC 1918 - 192.168.0.0/16", "192.168.1.1", true},
		{"link-local", "169.254.0.1", true},
		{"loopback", "127.0.0.1", true},
		{"IPv6 loopback", "::1", true},
		{"IPv6 unique local", "fc00::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP: %s", tt.ip)
			}
			if got := isPrivateIP(ip); got != tt.want {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

// localhostURL rewrites an httptest server URL to use the localhost hostname,
// which passes callback validation while a literal 127.0.0.1 would not.
func localhostURL(t *testing.T, server *httptest.Server, path string) string {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	return "http://localhost:" + u.Port() + path
}

func fastNotifier() *Notifier {
	n := NewNotifier()
	n.backoff = utils.NewConstantBackoff(time.Millisecond)
	return n
}

func completedRecord(id string) *RunRecord {
	now := time.Now().UTC()
	return &RunRecord{
		Run: &models.Run{
			ID:        id,
			Status:    models.RunStatusCompleted,
			Model:     "mm1",
			CreatedAt: now,
			StartTime: now,
			EndTime:   now,
			Result:    &models.Result{Model: "mm1", CustomersServed: 7},
		},
	}
}

func TestNotifierNotifySendsPayload(t *testing.T) {
	var (
		received NotificationPayload
		secret   string
		path     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		secret = r.Header.Get(CallbackSecretHeader)
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := fastNotifier()
	notifier.Notify(localhostURL(t, server, "/callback/{run_id}"), "my-secret-123", completedRecord("run-abc-123"))
	notifier.Wait()

	if path != "/callback/run-abc-123" {
		t.Errorf("expected path /callback/run-abc-123, got %q", path)
	}
	if secret != "my-secret-123" {
		t.Errorf("expected secret my-secret-123, got %q", secret)
	}
	if received.RunID != "run-abc-123" || received.Status != models.RunStatusCompleted {
		t.Errorf("unexpected payload %+v", received)
	}
	if received.Result == nil || received.Result.CustomersServed != 7 {
		t.Errorf("expected result in payload, got %+v", received.Result)
	}
	if received.EndTime == nil || received.Timestamp == 0 {
		t.Errorf("expected end time and timestamp in payload")
	}
}

func TestNotifierRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := fastNotifier()
	notifier.Notify(localhostURL(t, server, "/cb"), "", completedRecord("run-1"))
	notifier.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNotifierGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := fastNotifier()
	err := notifier.sendNotification(context.Background(), localhostURL(t, server, "/cb"), "", NotificationPayload{RunID: "run-1"})
	if err == nil {
		t.Fatalf("expected error after retries")
	}
	if got := calls.Load(); got != int32(notifier.maxRetries+1) {
		t.Fatalf("expected %d attempts, got %d", notifier.maxRetries+1, got)
	}
}

func TestNotifierSkipsEmptyAndRejectedURLs(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	notifier := fastNotifier()
	notifier.Notify("", "", completedRecord("run-1"))
	// literal loopback address is rejected before any request is made
	notifier.Notify(server.URL+"/cb", "", completedRecord("run-1"))
	notifier.Notify(localhostURL(t, server, "/cb"), "", nil)
	notifier.Wait()

	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestExecutorNotifiesOnCompletion(t *testing.T) {
	payloads := make(chan NotificationPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p NotificationPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode: %v", err)
		}
		payloads <- p
	}))
	defer server.Close()

	store := NewRunStore(0)
	notifier := fastNotifier()
	exec := newTestExecutor(store, notifier, nil)

	if _, err := store.Create("run-1", mustScenario(t, goldenYAML), localhostURL(t, server, "/done"), "s3cret"); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := exec.Start("run-1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	exec.Wait()
	notifier.Wait()

	select {
	case p := <-payloads:
		if p.Status != models.RunStatusCompleted {
			t.Fatalf("expected completed, got %s", p.Status)
		}
		if p.Result == nil || p.Result.CustomersServed != 523 {
			t.Fatalf("expected golden result in payload")
		}
	default:
		t.Fatalf("expected a callback")
	}
}
