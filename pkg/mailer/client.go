package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a transactional-mail relay over HTTP with basic auth.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	Sender     string
	HTTPClient *http.Client
}

type SendEmailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type SendEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	} `json:"data"`
}

func NewClient(baseURL, username, password, sender string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		Password: password,
		Sender:   sender,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendEmail posts one plain-text message to the relay.
func (c *Client) SendEmail(ctx context.Context, to, subject, text string) (*SendEmailResponse, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient address is required")
	}

	jsonData, err := json.Marshal(SendEmailRequest{
		From:    c.Sender,
		To:      to,
		Subject: subject,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	url := fmt.Sprintf("%s/send/email", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Username, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("mail relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response SendEmailResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !response.Success {
		return &response, fmt.Errorf("mail relay rejected message: %s", response.Message)
	}
	return &response, nil
}
