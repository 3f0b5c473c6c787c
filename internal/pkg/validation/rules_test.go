package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestIsClock(t *testing.T) {
	for _, s := range []string{"00:00", "09:30", "23:59"} {
		if !IsClock(s) {
			t.Fatalf("IsClock(%q) = false", s)
		}
	}
	for _, s := range []string{"9:30", "24:00", "12:60", "0930", ""} {
		if IsClock(s) {
			t.Fatalf("IsClock(%q) = true", s)
		}
	}
}

func TestRegisteredTags(t *testing.T) {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatalf("Register: %v", err)
	}

	type slot struct {
		Date  string `validate:"caldate"`
		Start string `validate:"clock"`
		OR    string `validate:"refnumber"`
		Name  string `validate:"personname"`
	}
	if err := v.Struct(slot{Date: "2025-03-01", Start: "13:00", OR: "OR-2025-00417", Name: "Maria Santos"}); err != nil {
		t.Fatalf("valid slot rejected: %v", err)
	}

	err := v.Struct(slot{Date: "2025-02-30", Start: "1pm", OR: "#1", Name: "M"})
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) != 4 {
		t.Fatalf("errors = %v", err)
	}
}
