package tasks

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type taskFields struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

func (f taskFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, MaxTitleLen)),
		validation.Field(&f.Priority, validation.Min(PriorityLow), validation.Max(PriorityHigh)),
	)
}

type tagFields struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (f tagFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.RuneLength(1, MaxTagNameLen)),
		validation.Field(&f.Color, validation.Required, validation.Match(colorRe).Error("must be a #RRGGBB color")),
	)
}

func validateTask(op, title string, priority int) error {
	if err := (taskFields{Title: title, Priority: priority}).Validate(); err != nil {
		return invalid(op, err.Error())
	}
	return nil
}

func validateTag(op, name, color string) error {
	if err := (tagFields{Name: name, Color: color}).Validate(); err != nil {
		return invalid(op, err.Error())
	}
	return nil
}
