package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chime/internal/config"
)

const userAgent = "Chime-Go/0.1.0"

// Service defines the push notification surface used by the daemon.
type Service interface {
	NotifyRing(ctx context.Context, sessionRings uint64, currentStreak uint64) error
	NotifyStreakMilestone(ctx context.Context, streak uint64) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRing(ctx context.Context, sessionRings uint64, currentStreak uint64) error {
	data := payload{
		title:    "Chime - Bell",
		message:  fmt.Sprintf("🔔 Take a mindful breath (ring %d this session, %d-day streak)", sessionRings, currentStreak),
		tags:     []string{"chime", "bell"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStreakMilestone(ctx context.Context, streak uint64) error {
	data := payload{
		title:   "Chime - Streak",
		message: fmt.Sprintf("🏆 %d days of mindfulness practice in a row", streak),
		tags:    []string{"chime", "streak"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Chime - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"chime", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRing(context.Context, uint64, uint64) error   { return nil }
func (noopService) NotifyStreakMilestone(context.Context, uint64) error { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
