// Package notify delivers push notifications through the hosted frame
// notification API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/farlance/internal/config"
	"github.com/jonathan/farlance/internal/fetch"
)

const notificationsPath = "/v2/farcaster/frame/notifications"

// Outcome is the result of a single delivery attempt.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeNoToken     Outcome = "no_token"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
)

// Notification is the user-visible payload.
type Notification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	TargetURL string `json:"target_url"`
	UUID      string `json:"uuid"` // Lets the delivery service drop duplicates
}

type sendRequest struct {
	TargetFIDs   []int64      `json:"target_fids"`
	Notification Notification `json:"notification"`
}

type sendResponse struct {
	Deliveries []struct {
		FID    int64  `json:"fid"`
		Status string `json:"status"`
	} `json:"notification_deliveries"`
}

// Client sends notifications to one recipient at a time.
type Client struct {
	api     *fetch.Client
	baseURL string
}

// NewClient creates a client from the notify configuration.
func NewClient(cfg config.NotifyConfig) *Client {
	return &Client{
		api: fetch.NewClient(&fetch.Options{
			Timeout: cfg.Timeout.Std(),
			Headers: map[string]string{"x-api-key": cfg.APIKey},
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Send delivers n to fid. The returned error, if any, explains a non-success
// outcome and is meant for logging only. Send never retries.
func (c *Client) Send(ctx context.Context, fid int64, n Notification) (Outcome, error) {
	req := sendRequest{TargetFIDs: []int64{fid}, Notification: n}

	var resp sendResponse
	status, err := c.api.JSON(ctx, http.MethodPost, c.baseURL+notificationsPath, req, &resp)
	if err != nil {
		if status == http.StatusTooManyRequests {
			return OutcomeRateLimited, err
		}
		return OutcomeError, err
	}

	for _, d := range resp.Deliveries {
		if d.FID == fid {
			outcome := outcomeFor(d.Status)
			if outcome != OutcomeSuccess {
				return outcome, fmt.Errorf("delivery to fid %d reported %q", fid, d.Status)
			}
			return outcome, nil
		}
	}
	return OutcomeError, errors.New("no delivery status for recipient")
}

func outcomeFor(status string) Outcome {
	switch status {
	case "success":
		return OutcomeSuccess
	case "no_token", "token_disabled", "invalid_token":
		return OutcomeNoToken
	case "rate_limited":
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}
