package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Register custom validation tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	err := v.RegisterValidation("workspace_role", validateWorkspaceRole)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("workspace_type", validateWorkspaceType)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("channel_type", validateChannelType)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("invite_status", validateInviteStatus)
	if err != nil {
		return nil
	}

	return &CustomValidator{validator: v}
}

// Custom validation functions
func validateWorkspaceRole(fl playgroundvalidator.FieldLevel) bool {
	role := fl.Field().String()
	return role == "admin" || role == "membre" || role == "invité"
}

func validateWorkspaceType(fl playgroundvalidator.FieldLevel) bool {
	t := fl.Field().String()
	return t == "public" || t == "private"
}

func validateChannelType(fl playgroundvalidator.FieldLevel) bool {
	t := fl.Field().String()
	return t == "public" || t == "private" || t == "direct"
}

func validateInviteStatus(fl playgroundvalidator.FieldLevel) bool {
	status := fl.Field().String()
	return status == "PENDING" || status == "ACCEPTED" || status == "DECLINED"
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// RegisterRequest Request validation structs based on models
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type WorkspaceRequest struct {
	Name string `json:"name" validate:"required,min=2"`
	Type string `json:"type" validate:"omitempty,workspace_type"`
}

type ChannelRequest struct {
	Name string `json:"name" validate:"required,min=1"`
	Type string `json:"type" validate:"required,channel_type"`
}

type ChannelInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type InvitationResponseRequest struct {
	Accept bool `json:"accept"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type SetRoleRequest struct {
	Role         string   `json:"role" validate:"required,workspace_role"`
	Capabilities []string `json:"capabilities" validate:"omitempty,dive,min=1"`
}

type SetChannelRoleRequest struct {
	Role string `json:"role" validate:"required,workspace_role"`
}

type MessageRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}
