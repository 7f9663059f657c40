// Package types provides request and response bodies for the HTTP API.
package types

import (
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/farlance/internal/db"
)

var validate = validator.New()

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	return validate
}

// SessionRequest starts a session from an approved signer.
type SessionRequest struct {
	SignerUUID string `json:"signerUuid" validate:"required,uuid"`
}

// SessionResponse carries the session token and the signed-in profile.
type SessionResponse struct {
	Token   string      `json:"token"`
	Profile *db.Profile `json:"profile"`
}

// Validate validates the SessionRequest using the validator.
func (r *SessionRequest) Validate() error {
	return validate.Struct(r)
}
