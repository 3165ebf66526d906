package domain

import (
	"fmt"

	"chat-hub/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Submission is one inbound client frame, not yet persisted.
// Body and FileURL must not both be empty; FileURL and FileName travel
// together (both present or both absent). The fileUrl/fileName keys are
// the ones the upload endpoint answers with: clients echo that response
// verbatim into their next frame.
type Submission struct {
	Username string `json:"username" validate:"required"`
	Body     string `json:"message" validate:"required_without=FileURL"`
	FileURL  string `json:"fileUrl,omitempty" validate:"required_with=FileName"`
	FileName string `json:"fileName,omitempty" validate:"required_with=FileURL"`
}

// Validate reports why a submission must be dropped. Invalid submissions
// are never persisted and never broadcast.
func (s Submission) Validate() error {
	if err := validate.Struct(s); err != nil {
		if s.Username == "" {
			return fmt.Errorf("%w: %v", errors.ErrMissingUsername, err)
		}
		return fmt.Errorf("%w: %v", errors.ErrEmptySubmission, err)
	}
	return nil
}
