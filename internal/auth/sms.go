package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const fast2SMSURL = "https://www.fast2sms.com/dev/bulkV2"

// SMSSender delivers login codes.
type SMSSender interface {
	SendOTP(ctx context.Context, phone, otp string) error
}

// Fast2SMSSender sends codes through the Fast2SMS OTP route.
type Fast2SMSSender struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

var _ SMSSender = (*Fast2SMSSender)(nil)

// NewFast2SMSSender creates a sender. An empty url uses the public endpoint.
func NewFast2SMSSender(apiKey, url string) (*Fast2SMSSender, error) {
	if apiKey == "" {
		return nil, errors.New("FAST2SMS_API_KEY is required")
	}
	if url == "" {
		url = fast2SMSURL
	}
	return &Fast2SMSSender{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type fast2SMSRequest struct {
	Route           string `json:"route"`
	Numbers         string `json:"numbers"`
	VariablesValues string `json:"variables_values"`
	Flash           int    `json:"flash"`
}

type fast2SMSResponse struct {
	Return    bool            `json:"return"`
	RequestID string          `json:"request_id"`
	Message   json.RawMessage `json:"message"`
}

// message flattens the response message, which is a string or a list.
func (r fast2SMSResponse) message() string {
	var s string
	if err := json.Unmarshal(r.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(r.Message, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return string(r.Message)
}

func (f *Fast2SMSSender) SendOTP(ctx context.Context, phone, otp string) error {
	body, err := json.Marshal(fast2SMSRequest{
		Route:           "otp",
		Numbers:         phone,
		VariablesValues: otp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("authorization", f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read sms response: %w", err)
	}

	var out fast2SMSResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode sms response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !out.Return {
		return fmt.Errorf("sms provider rejected request (status %d): %s", resp.StatusCode, out.message())
	}
	return nil
}

// LogSender writes codes to the log instead of sending them.
// Development only.
type LogSender struct {
	logger *slog.Logger
}

var _ SMSSender = (*LogSender)(nil)

// NewLogSender creates a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) SendOTP(ctx context.Context, phone, otp string) error {
	l.logger.InfoContext(ctx, "otp generated", "phone", phone, "otp", otp)
	return nil
}
