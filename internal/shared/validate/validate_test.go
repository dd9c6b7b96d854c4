package validate

import (
	"errors"
	"testing"
)

type sample struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	SelfIntro string `json:"selfIntro" validate:"min=30"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Email: "not-an-email", SelfIntro: "short"})
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected Errors, got %T", err)
	}
	got := map[string]string{}
	for _, fe := range verrs {
		got[fe.Field] = fe.Message
	}
	if got["name"] != "is required" {
		t.Fatalf("unexpected name message: %q", got["name"])
	}
	if got["email"] != "must be a valid email address" {
		t.Fatalf("unexpected email message: %q", got["email"])
	}
	if got["selfIntro"] != "must be at least 30 characters" {
		t.Fatalf("unexpected selfIntro message: %q", got["selfIntro"])
	}
}

func TestMinCountsRunesNotBytes(t *testing.T) {
	// 30 Arabic letters are 60 bytes but exactly 30 characters.
	intro := ""
	for i := 0; i < 30; i++ {
		intro += "ع"
	}
	if err := Struct(sample{Name: "a", Email: "a@b.co", SelfIntro: intro}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := Struct(sample{Name: "a", Email: "a@b.co", SelfIntro: intro[:len(intro)-2]}); err == nil {
		t.Fatalf("expected 29 characters to fail")
	}
}

func TestEmail(t *testing.T) {
	if !Email("sara@anoud.com") {
		t.Fatalf("expected valid email")
	}
	if Email("sara@") || Email("") {
		t.Fatalf("expected invalid email")
	}
}
