package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/yttext/errors"
)

type createJob struct {
	URL      string `json:"url" validate:"required,url,max=2048"`
	Model    string `json:"model" validate:"omitempty,oneof=tiny base small medium large large-v2 large-v3"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		in         createJob
		wantFields []string
	}{
		{"valid minimal", createJob{URL: "https://www.youtube.com/watch?v=abc"}, nil},
		{"valid full", createJob{URL: "https://youtu.be/abc", Model: "large-v3", Language: "en"}, nil},
		{"missing url", createJob{}, []string{"url"}},
		{"not a url", createJob{URL: "youtube"}, []string{"url"}},
		{"url too long", createJob{URL: "https://x.io/" + strings.Repeat("a", 2048)}, []string{"url"}},
		{"unknown model", createJob{URL: "https://youtu.be/abc", Model: "huge"}, []string{"model"}},
		{"several", createJob{Model: "huge", Language: "english-us"}, []string{"url", "model", "language"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			fields, _ := appErr.Details["fields"].([]FieldError)
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("fields = %+v", fields)
			}
			for i, want := range tt.wantFields {
				if fields[i].Field != want {
					t.Errorf("field %d = %q, want %q", i, fields[i].Field, want)
				}
			}
		})
	}
}

func TestValidateMessages(t *testing.T) {
	err := Validate(createJob{URL: "https://youtu.be/abc", Model: "huge"})
	if err == nil || !strings.Contains(err.Error(), "model: must be one of: tiny base") {
		t.Errorf("unexpected message %v", err)
	}
}

func TestValidatorChecks(t *testing.T) {
	tests := []struct {
		name  string
		check func(*Validator)
		want  int
	}{
		{"required ok", func(v *Validator) { v.Required("url", "x") }, 0},
		{"required blank", func(v *Validator) { v.Required("url", "   ") }, 1},
		{"max length", func(v *Validator) { v.MaxLength("url", "abcdef", 3) }, 1},
		{"one of ok", func(v *Validator) { v.OneOf("model", "base", []string{"base", "small"}) }, 0},
		{"one of empty", func(v *Validator) { v.OneOf("model", "", []string{"base"}) }, 0},
		{"one of bad", func(v *Validator) { v.OneOf("model", "huge", []string{"base"}) }, 1},
		{"custom", func(v *Validator) { v.Custom(false, "url", "must not be blank") }, 1},
		{"uuid ok", func(v *Validator) { v.RequiredUUID("id", uuid.NewString()) }, 0},
		{"uuid nil", func(v *Validator) { v.RequiredUUID("id", uuid.Nil.String()) }, 1},
		{"uuid bad", func(v *Validator) { v.RequiredUUID("id", "nope") }, 1},
		{"chained", func(v *Validator) { v.Required("a", "").Required("b", "").MaxLength("c", "ok", 5) }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.check(v)
			if len(v.Errors()) != tt.want {
				t.Fatalf("errors = %+v, want %d", v.Errors(), tt.want)
			}
			if (v.Validate() != nil) != (tt.want > 0) {
				t.Errorf("Validate() mismatch")
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	want := uuid.New()
	got, err := ValidateUUID("job_id", want.String())
	if err != nil || got != want {
		t.Fatalf("got %v, %v", got, err)
	}

	for _, in := range []string{"", "not-a-uuid", uuid.Nil.String()} {
		_, err := ValidateUUID("job_id", in)
		if !errors.HasCode(err, errors.ErrCodeValidation) {
			t.Errorf("%q: expected validation error, got %v", in, err)
		}
	}
}
