package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
)

// Client submits decoded tokens to the check-in API.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// Submit posts one check-in for eventID. A non-2xx response is not an error
// as long as the body is a ScanResult; the status is returned alongside.
func (c *Client) Submit(ctx context.Context, eventID string, req model.CheckInRequest) (*model.ScanResult, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/events/" + url.PathEscape(eventID) + "/checkin"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Bearer)
	}

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("post check-in: %w", err)
	}
	defer resp.Body.Close()

	var res model.ScanResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return &res, resp.StatusCode, nil
}

// DefaultDedupeWindow is how long a Station ignores repeat reads of a token
// that was checked in. Scanners often emit one badge several times.
const DefaultDedupeWindow = 3 * time.Second

// Station runs back-to-back scan sessions against one event. Repeat reads of
// a successfully submitted token are dropped for DedupeWindow; a token whose
// check-in was refused or failed to send is submitted again on the next read.
type Station struct {
	EventID        string
	Source         FrameSource
	Interval       time.Duration
	Decode         func(string) error
	Submit         func(ctx context.Context, eventID string, req model.CheckInRequest) (*model.ScanResult, int, error)
	FoodTokenGiven bool
	DedupeWindow   time.Duration
	Logger         *slog.Logger
	// OnResult, if set, is called with every submitted token's result.
	OnResult func(tok string, res *model.ScanResult, status int)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run loops until the source is exhausted (nil error) or ctx is cancelled.
func (st *Station) Run(ctx context.Context) error {
	logger := st.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := st.DedupeWindow
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	now := st.Now
	if now == nil {
		now = time.Now
	}
	seen := make(map[string]time.Time)

	for {
		sess := Session{Source: st.Source, Interval: st.Interval, Decode: st.Decode, Logger: logger}
		tok, err := sess.Run(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		at := now()
		for t, last := range seen {
			if at.Sub(last) >= window {
				delete(seen, t)
			}
		}
		if _, dup := seen[tok]; dup {
			logger.DebugContext(ctx, "duplicate scan skipped", slog.String("event_id", st.EventID))
			continue
		}

		res, status, err := st.Submit(ctx, st.EventID, model.CheckInRequest{Token: tok, FoodTokenGiven: st.FoodTokenGiven})
		if err != nil {
			logger.WarnContext(ctx, "submit failed", slog.String("event_id", st.EventID), slog.String("error", err.Error()))
			continue
		}
		if res.Success {
			seen[tok] = at
		}
		if st.OnResult != nil {
			st.OnResult(tok, res, status)
		}
	}
}
