package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template is a named email template with variable metadata.
type Template struct {
	ID                string
	Type              string
	Name              string
	SubjectTemplate   string
	BodyTemplate      string
	RequiredVariables []string
	OptionalVariables []string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t *Template) Validate() error {
	if strings.TrimSpace(t.Type) == "" {
		return fmt.Errorf("%w: template type is required", ErrValidation)
	}
	if strings.TrimSpace(t.SubjectTemplate) == "" {
		return fmt.Errorf("%w: subject template is required", ErrValidation)
	}
	if strings.TrimSpace(t.BodyTemplate) == "" {
		return fmt.Errorf("%w: body template is required", ErrValidation)
	}
	return nil
}

// MissingVariables returns required variables absent from vars.
func (t *Template) MissingVariables(vars map[string]any) []string {
	var missing []string
	for _, name := range t.RequiredVariables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
