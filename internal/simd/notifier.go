package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

var (
	ErrInvalidURL       = errors.New("invalid callback URL")
	ErrMetadataEndpoint = errors.New("callback URL targets a cloud metadata endpoint")
	ErrInternalHost     = errors.New("callback URL targets an internal address")
)

// CallbackSecretHeader carries the per-run shared secret on callbacks
const CallbackSecretHeader = "X-Simulation-Callback-Secret"

var metadataHosts = map[string]bool{
	"metadata.google.internal": true,
	"metadata":                 true,
	"169.254.169.254":          true,
	"fd00:ec2::254":            true,
}

// NotificationPayload represents the JSON payload sent to the callback URL
type NotificationPayload struct {
	RunID     string           `json:"run_id"`
	Status    models.RunStatus `json:"status"`
	Model     string           `json:"model,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	StartTime *time.Time       `json:"start_time,omitempty"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Error     string           `json:"error,omitempty"`
	Result    *models.Result   `json:"result,omitempty"`
	Timestamp int64            `json:"timestamp"` // When notification was sent
}

// Notifier posts run completion callbacks
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
	wg         sync.WaitGroup
}

// NewNotifier creates a new notification service
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 10*time.Second, 2.0, true),
	}
}

// Notify sends a notification to the callback URL asynchronously.
// A "{run_id}" placeholder in the URL is replaced with the run ID.
func (n *Notifier) Notify(callbackURL, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}
	if rec == nil || rec.Run == nil {
		logger.Warn("cannot notify: invalid run record", "callback_url", callbackURL)
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", url.PathEscape(rec.Run.ID))
	if err := validateCallbackURL(finalURL); err != nil {
		logger.Warn("callback URL rejected", "run_id", rec.Run.ID, "callback_url", finalURL, "error", err)
		return
	}

	payload := NotificationPayload{
		RunID:     rec.Run.ID,
		Status:    rec.Run.Status,
		Model:     rec.Run.Model,
		CreatedAt: rec.Run.CreatedAt,
		StartTime: optionalTime(rec.Run.StartTime),
		EndTime:   optionalTime(rec.Run.EndTime),
		Error:     rec.Run.Error,
		Result:    rec.Run.Result,
		Timestamp: time.Now().UTC().UnixMilli(),
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.sendNotification(context.Background(), finalURL, callbackSecret, payload); err != nil {
			logger.Error("failed to send notification after retries",
				"callback_url", finalURL,
				"run_id", payload.RunID,
				"status", payload.Status,
				"max_retries", n.maxRetries,
				"error", err)
		}
	}()
}

// Wait blocks until all pending notifications are delivered or abandoned
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// sendNotification performs the HTTP POST with retries
func (n *Notifier) sendNotification(ctx context.Context, callbackURL, callbackSecret string, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			if err := utils.Sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = n.post(ctx, callbackURL, callbackSecret, body)
		if lastErr == nil {
			logger.Info("notification sent", "run_id", payload.RunID, "status", payload.Status)
			return nil
		}
		logger.Warn("notification attempt failed",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"attempt", attempt+1,
			"error", lastErr)
	}
	return lastErr
}

func (n *Notifier) post(ctx context.Context, callbackURL, callbackSecret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "queue-sim/1.0")
	if callbackSecret != "" {
		req.Header.Set(CallbackSecretHeader, callbackSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// validateCallbackURL rejects URLs that would let a caller reach metadata
// services or internal addresses. The "localhost" hostname stays allowed
// for local development; literal loopback IPs do not.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	if metadataHosts[host] {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsUnspecified() || isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrInternalHost, host)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
