package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/identity"
	"github.com/jonathan/farlance/internal/log"
	"github.com/jonathan/farlance/internal/types"
)

// handleCreateSession signs a user in from an approved signer. The profile is
// created or refreshed from the identity service before the token is issued.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	ctx := r.Context()
	signer, err := s.identity.LookupSigner(ctx, req.SignerUUID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.writeError(w, r, &ErrUnauthorized{Message: "Signer not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if !signer.Approved() {
		log.Info(ctx, "signer not approved", slog.String("status", signer.Status))
		s.writeError(w, r, &ErrUnauthorized{Message: "Signer is not approved"})
		return
	}

	user, err := s.identity.UserByFID(ctx, signer.FID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.writeError(w, r, &ErrUnauthorized{Message: "User not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}

	profile, err := s.store.UpsertProfile(ctx, &db.ProfileUpsertInput{
		FID:         signer.FID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		PfpURL:      user.PfpURL,
		Bio:         user.Bio(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.jwtService.GenerateToken(profile.ID, profile.FID)
	if err != nil {
		log.Error(ctx, "failed to generate token", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	s.setSessionCookie(w, token, s.jwtService.TTL())
	log.Info(ctx, "session created", slog.Int64("fid", profile.FID))
	s.jsonResponse(w, http.StatusOK, types.SessionResponse{Token: token, Profile: profile})
}

// handleGetSession returns the signed-in profile.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	profile, err := s.currentProfile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleDeleteSession clears the session cookie. Tokens are stateless, so a
// bearer token stays valid until it expires.
func (s *Server) handleDeleteSession(w http.ResponseWriter, _ *http.Request) {
	s.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie writes the session cookie. A negative ttl deletes it.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     s.session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
}
