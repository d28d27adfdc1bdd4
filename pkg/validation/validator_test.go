package validation

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
)

type signupReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Code     string `json:"code" validate:"omitempty,otp"`
}

type reviewReq struct {
	Rating int `json:"rating" validate:"required,rating"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Configure(v)
	return v
}

func TestToDetailsUsesJSONNames(t *testing.T) {
	v := newValidator()
	err := v.Struct(signupReq{Email: "nope", Password: "123", Code: "12a"})
	d := ToDetails(err)
	if d["email"] != "must be a valid email" {
		t.Fatalf("email detail: %q", d["email"])
	}
	if d["password"] != "min length 6" {
		t.Fatalf("password detail: %q", d["password"])
	}
	if d["code"] != "must be a 6 digit code" {
		t.Fatalf("code detail: %q", d["code"])
	}
}

func TestRatingAlias(t *testing.T) {
	v := newValidator()
	if err := v.Struct(reviewReq{Rating: 5}); err != nil {
		t.Fatalf("rating 5 should pass: %v", err)
	}
	d := ToDetails(v.Struct(reviewReq{Rating: 6}))
	if d["rating"] != "must be between 1 and 5" {
		t.Fatalf("rating detail: %q", d["rating"])
	}
}

func TestToDetailsSyntaxError(t *testing.T) {
	var x map[string]any
	err := json.Unmarshal([]byte("{"), &x)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	// Unmarshal of a truncated document yields *json.SyntaxError
	if d := ToDetails(err); d["payload"] != "invalid json" {
		t.Fatalf("unexpected details %v", d)
	}
}
