// Package forms validates user-submitted forms. The same rules run in the
// HTTP client before a request is sent and in the server before it is acted on.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SignUpForm is the registration payload posted to /api/signup.
type SignUpForm struct {
	FirstName       string `json:"firstName" form:"firstName" validate:"required,max=50"`
	LastName        string `json:"lastName" form:"lastName" validate:"required,max=50"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=8,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
}

// SignInForm carries credentials for /api/auth/signin.
type SignInForm struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ArticleForm is the payload of a new post.
type ArticleForm struct {
	Title   string   `json:"title" form:"title" validate:"required,max=200"`
	Content string   `json:"content" form:"content" validate:"required"`
	Tags    []string `json:"tags" form:"tags" validate:"max=10,dive,max=32"`
}

// ValidationError maps form field names (as submitted) to a human message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "forms: " + e.First()
}

// First returns the message of the first invalid field in a stable order.
func (e *ValidationError) First() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	for _, field := range fieldOrder {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Fields[keys[0]]
}

var fieldOrder = []string{"firstName", "lastName", "email", "password", "confirmPassword", "title", "content", "tags"}

var fieldLabels = map[string]string{
	"firstName":       "First name",
	"lastName":        "Last name",
	"email":           "Email",
	"password":        "Password",
	"confirmPassword": "Password confirmation",
	"title":           "Title",
	"content":         "Content",
	"tags":            "Tags",
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// bcrypt hashes at most 72 bytes, whatever the rune count.
		_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			limit, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(fl.Field().String()) <= limit
		})
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func (f *SignUpForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
}

func (f SignUpForm) Validate() error {
	f.Normalize()
	return check(f)
}

func (f SignInForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

func (f *ArticleForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
	tags := make([]string, 0, len(f.Tags))
	for _, tag := range f.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	f.Tags = tags
}

func (f ArticleForm) Validate() error {
	f.Normalize()
	return check(f)
}

func check(form any) error {
	err := engine().Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := fe.Field()
		if idx := strings.IndexByte(name, '['); idx >= 0 {
			name = name[:idx]
		}
		if _, seen := out.Fields[name]; seen {
			continue
		}
		out.Fields[name] = message(name, fe)
	}

	return out
}

func message(field string, fe validator.FieldError) string {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Email must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s can have at most %s entries", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", label, fe.Param())
	case "eqfield":
		return "Passwords must match"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
