package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "valid lowercase", input: "sent", want: StatusSent},
		{name: "valid uppercase with spaces", input: " PENDING ", want: StatusPending},
		{name: "webhook state", input: "bounced", want: StatusBounced},
		{name: "invalid", input: "unknown", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatusFromString() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminalForDelivery(t *testing.T) {
	t.Parallel()

	terminal := []Status{StatusSent, StatusBounced, StatusDelivered, StatusOpened, StatusClicked}
	for _, s := range terminal {
		if !s.IsTerminalForDelivery() {
			t.Errorf("%s should be terminal for delivery", s)
		}
	}

	for _, s := range []Status{StatusPending, StatusFailed} {
		if s.IsTerminalForDelivery() {
			t.Errorf("%s should not be terminal for delivery", s)
		}
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	valid := Notification{
		RecipientEmail: "merchant@example.com",
		Type:           TypeWelcome,
		Status:         StatusPending,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Notification)
	}{
		{name: "missing recipient", mutate: func(n *Notification) { n.RecipientEmail = "" }},
		{name: "malformed recipient", mutate: func(n *Notification) { n.RecipientEmail = "not-an-email" }},
		{name: "missing type", mutate: func(n *Notification) { n.Type = "  " }},
		{name: "invalid status", mutate: func(n *Notification) { n.Status = "exploded" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := valid
			tt.mutate(&n)
			err := n.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTemplateMissingVariables(t *testing.T) {
	t.Parallel()

	tmpl := Template{
		Type:              TypeWelcome,
		SubjectTemplate:   "Welcome, {{.shop_name}}!",
		BodyTemplate:      "<p>Hi {{.shop_name}}</p>",
		RequiredVariables: []string{"shop_name", "plan_name"},
		OptionalVariables: []string{"product_count"},
	}

	missing := tmpl.MissingVariables(map[string]any{"shop_name": "Glam Store"})
	if len(missing) != 1 || missing[0] != "plan_name" {
		t.Fatalf("MissingVariables() = %v, want [plan_name]", missing)
	}

	missing = tmpl.MissingVariables(map[string]any{
		"shop_name": "Glam Store",
		"plan_name": "Pro",
	})
	if len(missing) != 0 {
		t.Fatalf("MissingVariables() = %v, want empty", missing)
	}
}

func TestParseAttemptOutcomeFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseAttemptOutcomeFromString(" Timeout ")
	if err != nil {
		t.Fatalf("ParseAttemptOutcomeFromString() error = %v", err)
	}
	if got != AttemptTimeout {
		t.Fatalf("outcome = %s, want timeout", got)
	}

	if _, err := ParseAttemptOutcomeFromString("partial"); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	if AttemptSuccess.String() != "success" || strings.ToLower(AttemptFailed.String()) != "failed" {
		t.Fatal("outcome string values changed")
	}
}
