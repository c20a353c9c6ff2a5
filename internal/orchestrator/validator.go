package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks a request the caller has to fix.
var ErrValidation = errors.New("validation error")

// threadIDRule matches memory.ThreadIDRule but allows an empty id, which
// starts a new thread.
const threadIDRule = "omitempty,max=128,printascii"

// Validator checks chat requests before any work is done.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate trims the request in place and rejects a blank prompt or a
// malformed thread id.
func (v *Validator) Validate(req *Request) error {
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.ThreadID = strings.TrimSpace(req.ThreadID)

	if req.Prompt == "" {
		return fmt.Errorf("missing 'prompt' in request body: %w", ErrValidation)
	}
	if err := v.validate.Var(req.ThreadID, threadIDRule); err != nil {
		return fmt.Errorf("invalid 'thread_id': %w", ErrValidation)
	}
	return nil
}
