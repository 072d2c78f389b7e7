package identity

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type accountFields struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

func (f accountFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, validation.RuneLength(3, MaxEmailLen), is.Email),
		validation.Field(&f.Username, validation.Required, validation.RuneLength(1, MaxUsernameLen)),
		validation.Field(&f.FullName, validation.RuneLength(0, MaxFullNameLen)),
	)
}

func validateAccount(op, email, username string, fullName *string) error {
	f := accountFields{
		Email:    strings.TrimSpace(email),
		Username: strings.TrimSpace(username),
	}
	if fullName != nil {
		f.FullName = *fullName
	}
	if err := f.Validate(); err != nil {
		return invalid(op, err.Error())
	}
	return nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
