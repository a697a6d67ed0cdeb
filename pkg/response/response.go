// Package response defines the JSON envelope shared by all API endpoints.
package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var EmptyRequestBodyResponse = Response{
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Message: "Invalid request body.",
}

var ResourceNotFoundResponse = Response{
	Message: "The requested resource was not found.",
}

var ServerErrorResponse = Response{
	Message: "An internal server error occurred. Please try again later.",
}

var AuthenticationRequiredResponse = Response{
	Message: "Authentication required",
}

var StubUnavailableResponse = Response{
	Message: "Custom stub is not available",
}

type Response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Details    []any  `json:"details,omitempty"`
	Data       any    `json:"data,omitempty"`
	Pagination any    `json:"pagination,omitempty"`
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Success: true,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	errs := make([]validationError, 0, len(validationErrs))

	for _, e := range validationErrs {
		var issue string

		switch e.Tag() {
		case "required":
			issue = "This field is required."
		case "url":
			issue = "Invalid url."
		case "min":
			issue = "Value is too short."
		case "max":
			issue = "Value is too long."
		default:
			issue = "Invalid value."
		}

		errs = append(errs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: issue,
		})
	}

	return errs
}

func ValidationErrorResponse(err error) Response {
	resp := Response{
		Message: "Validation failed. Please check your input.",
	}

	for _, e := range getValidationErrors(err) {
		resp.Details = append(resp.Details, e)
	}

	return resp
}
