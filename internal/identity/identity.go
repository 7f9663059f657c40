// Package identity resolves signers and user records from the hosted social
// identity API.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/farlance/internal/config"
	"github.com/jonathan/farlance/internal/fetch"
)

// SignerStatusApproved marks a signer the user has authorized.
const SignerStatusApproved = "approved"

// ErrNotFound is returned when the API has no record for the requested key.
var ErrNotFound = errors.New("identity not found")

// Signer is a delegated signing key and the account it belongs to.
type Signer struct {
	UUID   string `json:"signer_uuid"`
	Status string `json:"status"`
	FID    int64  `json:"fid"`
}

// Approved reports whether the signer can be used to sign in.
func (s *Signer) Approved() bool {
	return s.Status == SignerStatusApproved && s.FID > 0
}

// User is the public account record.
type User struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PfpURL      string `json:"pfp_url"`
	Profile     struct {
		Bio struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
}

// Bio returns the user's bio text.
func (u *User) Bio() string {
	return u.Profile.Bio.Text
}

// Client calls the identity API.
type Client struct {
	api     *fetch.Client
	baseURL string
}

// NewClient creates a client from the identity configuration.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		api: fetch.NewClient(&fetch.Options{
			Timeout: cfg.Timeout.Std(),
			Headers: map[string]string{"x-api-key": cfg.APIKey},
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// LookupSigner fetches a signer by UUID.
func (c *Client) LookupSigner(ctx context.Context, signerUUID string) (*Signer, error) {
	u := c.baseURL + "/v2/farcaster/signer?" + url.Values{"signer_uuid": {signerUUID}}.Encode()

	var signer Signer
	status, err := c.api.JSON(ctx, http.MethodGet, u, nil, &signer)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up signer: %w", err)
	}
	return &signer, nil
}

// UserByFID fetches the account record for fid.
func (c *Client) UserByFID(ctx context.Context, fid int64) (*User, error) {
	u := c.baseURL + "/v2/farcaster/user/bulk?" + url.Values{"fids": {strconv.FormatInt(fid, 10)}}.Encode()

	var resp struct {
		Users []User `json:"users"`
	}
	status, err := c.api.JSON(ctx, http.MethodGet, u, nil, &resp)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	for i := range resp.Users {
		if resp.Users[i].FID == fid {
			return &resp.Users[i], nil
		}
	}
	return nil, ErrNotFound
}
