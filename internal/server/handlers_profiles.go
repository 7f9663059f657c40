package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/server/middleware"
	"github.com/jonathan/farlance/internal/types"
)

// handleListTalent lists profiles, optionally only holders of one skill.
func (s *Server) handleListTalent(w http.ResponseWriter, r *http.Request) {
	var (
		filters db.ProfileFilters
		err     error
	)
	if filters.SkillID, err = optionalUUID(r.URL.Query().Get("skill"), "skill"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filters.Limit, filters.Offset, err = pagination(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	profiles, err := s.store.ListProfiles(r.Context(), filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []db.Profile{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	fid, err := strconv.ParseInt(r.PathValue("fid"), 10, 64)
	if err != nil || fid <= 0 {
		s.writeError(w, r, &ErrNotFound{Resource: "profile"})
		return
	}

	profile, err := s.store.GetProfileByFID(r.Context(), fid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile == nil {
		s.writeError(w, r, &ErrNotFound{Resource: "profile"})
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleUpdateProfile edits the caller's display name, bio and headline.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.GetProfileID(r)
	if err != nil {
		s.writeError(w, r, &ErrUnauthorized{Message: "Unauthorized"})
		return
	}

	var req types.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	profile, err := s.store.UpdateProfile(r.Context(), profileID, &db.ProfileUpdateInput{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Headline:    req.Headline,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile == nil {
		s.writeError(w, r, &ErrNotFound{Resource: "profile"})
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleReplaceSkills replaces the caller's skill set.
func (s *Server) handleReplaceSkills(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.GetProfileID(r)
	if err != nil {
		s.writeError(w, r, &ErrUnauthorized{Message: "Unauthorized"})
		return
	}

	var req types.ReplaceSkillsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	if len(req.SkillIDs) > 0 {
		known, err := s.store.CountSkills(r.Context(), req.SkillIDs)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if known != len(req.SkillIDs) {
			s.writeError(w, r, &ErrValidation{Field: "skillIds", Message: "unknown skill"})
			return
		}
	}

	if err := s.store.ReplaceProfileSkills(r.Context(), profileID, req.SkillIDs); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.store.GetProfile(r.Context(), profileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile == nil {
		s.writeError(w, r, &ErrNotFound{Resource: "profile"})
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.store.ListSkills(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if skills == nil {
		skills = []db.Skill{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"skills": skills})
}

// currentProfile loads the signed-in profile. A valid token for a profile
// that no longer exists is treated as unauthenticated.
func (s *Server) currentProfile(r *http.Request) (*db.Profile, error) {
	profileID, err := middleware.GetProfileID(r)
	if err != nil {
		return nil, &ErrUnauthorized{Message: "Unauthorized"}
	}
	profile, err := s.store.GetProfile(r.Context(), profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &ErrUnauthorized{Message: "Unauthorized"}
	}
	return profile, nil
}
