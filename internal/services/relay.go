package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
)

// DefaultUltraMsgURL is the public UltraMsg API base.
const DefaultUltraMsgURL = "https://api.ultramsg.com"

// RelayClient posts WhatsApp chat messages to the UltraMsg API.
type RelayClient struct {
	baseURL    string
	instanceID string
	token      string
	httpClient *http.Client
}

// NewRelayClient creates a client for one UltraMsg instance.
func NewRelayClient(baseURL, instanceID, token string, timeout time.Duration) *RelayClient {
	if baseURL == "" {
		baseURL = DefaultUltraMsgURL
	}
	return &RelayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Token string `json:"token"`
	To    string `json:"to"`
	Body  string `json:"body"`
}

// SendChat delivers body to the phone number and returns the upstream JSON.
// Non-2xx answers and transport failures come back as *UpstreamError.
func (c *RelayClient) SendChat(ctx context.Context, to, body string) (json.RawMessage, error) {
	payload, err := json.Marshal(chatMessage{Token: c.token, To: to, Body: body})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages/chat", c.baseURL, c.instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: upstreamDetail(raw)}
	}

	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		return quoted, nil
	}
	return raw, nil
}

// upstreamDetail prefers the "error" field of a JSON body over the raw text.
func upstreamDetail(raw []byte) string {
	var body struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil {
		return fmt.Sprint(body.Error)
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return "unknown error"
}

// Relay validates status-change notifications and forwards them through the client.
type Relay struct {
	client *RelayClient
	logger *zap.SugaredLogger
}

// NewRelay creates a new relay
func NewRelay(client *RelayClient, logger *zap.SugaredLogger) *Relay {
	return &Relay{client: client, logger: logger}
}

// Validate checks that every required field is present.
func (r *Relay) Validate(req models.RelayRequest) error {
	var missing []string
	for field, v := range map[string]string{
		"phoneNumber":  req.PhoneNumber,
		"problemId":    req.ProblemID,
		"problemTitle": req.ProblemTitle,
		"newStatus":    req.NewStatus,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Message: "missing required fields: " + strings.Join(missing, ", ")}
	}
	return nil
}

// Forward sends the templated message. It does not retry.
func (r *Relay) Forward(ctx context.Context, req models.RelayRequest) (json.RawMessage, error) {
	r.logger.Infow("Relay request received", "problem_id", req.ProblemID)
	if err := r.Validate(req); err != nil {
		r.logger.Warnw("Relay request rejected", "problem_id", req.ProblemID, "error", err)
		return nil, err
	}

	phone := stripSpaces(req.PhoneNumber)
	locale := i18n.Negotiate(req.Language)
	body := i18n.Sprintf(locale, "relay.message", req.ProblemTitle, req.ProblemID, req.NewStatus)

	r.logger.Infow("Relay forwarding", "problem_id", req.ProblemID, "status", req.NewStatus, "locale", locale)
	data, err := r.client.SendChat(ctx, phone, body)
	if err != nil {
		r.logger.Errorw("Relay failed", "problem_id", req.ProblemID, "error", err)
		return nil, err
	}

	r.logger.Infow("Relay succeeded", "problem_id", req.ProblemID)
	return data, nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
