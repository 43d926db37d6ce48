package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/message"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the conversation history cannot be fetched.
var ErrUnavailable = errors.New("history unavailable")

// maxBody caps how much of a history response is read.
const maxBody = 32 << 20

// Loader fetches the stored conversation between two identities.
type Loader struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewLoader creates a loader for the server at baseURL. A zero timeout means no per-request limit.
func NewLoader(baseURL string, timeout time.Duration, client *http.Client, logger *zap.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
}

// Load performs one history request and returns the normalized messages sorted by SentAt.
// Records that fail normalization are logged and skipped.
func (l *Loader) Load(ctx context.Context, user, partner string) ([]message.Message, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/history/%s/%s", l.baseURL, url.PathEscape(user), url.PathEscape(partner))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: server returned %d", ErrUnavailable, resp.StatusCode)
	}

	msgs, skipped, err := message.DecodeBatch(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	for _, s := range skipped {
		l.logger.Warn("skipping malformed history record", zap.Error(s), zap.String("partner", partner))
	}

	message.SortBySentAt(msgs)
	l.logger.Info("history loaded", zap.String("partner", partner), zap.Int("messages", len(msgs)), zap.Int("skipped", len(skipped)))
	return msgs, nil
}
