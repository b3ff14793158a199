// Package validation checks configuration and request structs against
// go-playground/validator tags.
//
//	type SearchParams struct {
//	    Query string `form:"q" validate:"required,max=200"`
//	    Page  int    `form:"page" validate:"gte=1"`
//	}
//	if err := validation.Validate(p); err != nil { ... }
//
// Errors are *errors.AppError with code INVALID_REQUEST and a "fields"
// detail listing each failing field by its config or JSON name.
package validation
