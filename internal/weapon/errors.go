package weapon

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid weapon config")
	ErrMissingCollaborator = errors.New("missing weapon collaborator")
)
