package types

import "github.com/google/uuid"

// UpdateProfileRequest edits the caller's profile. Omitted fields are kept.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=64"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Headline    *string `json:"headline,omitempty" validate:"omitempty,max=120"`
}

// Validate validates the UpdateProfileRequest using the validator.
func (r *UpdateProfileRequest) Validate() error {
	return validate.Struct(r)
}

// ReplaceSkillsRequest sets the caller's skills.
type ReplaceSkillsRequest struct {
	SkillIDs []uuid.UUID `json:"skillIds" validate:"max=50,unique"`
}

// Validate validates the ReplaceSkillsRequest using the validator.
func (r *ReplaceSkillsRequest) Validate() error {
	return validate.Struct(r)
}
