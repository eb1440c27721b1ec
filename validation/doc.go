// Package validation validates request input and reports failures as
// VALIDATION_ERROR app errors.
//
// Request bodies use struct tags:
//
//	type CreateJobRequest struct {
//	    URL   string `json:"url" validate:"required,url,max=2048"`
//	    Model string `json:"model" validate:"omitempty,oneof=tiny base small"`
//	}
//	err := validation.Validate(req)
//
// Path and query values use the Validator or ValidateUUID:
//
//	id, err := validation.ValidateUUID("job_id", c.Param("id"))
package validation
