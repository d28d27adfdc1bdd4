package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("order not found")
	wrapped := fmt.Errorf("load: %w", base)
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not_found, got %s", KindOf(wrapped))
	}
	if MessageOf(wrapped) != "order not found" {
		t.Fatalf("unexpected message %q", MessageOf(wrapped))
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors must map to internal")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidInput:        http.StatusBadRequest,
		KindInvalidCode:         http.StatusBadRequest,
		KindInvalidSignature:    http.StatusBadRequest,
		KindUnauthorized:        http.StatusUnauthorized,
		KindForbidden:           http.StatusForbidden,
		KindNotFound:            http.StatusNotFound,
		KindConflict:            http.StatusConflict,
		KindUpstreamUnavailable: http.StatusBadGateway,
		KindInternal:            http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := HTTPStatus(k); got != want {
			t.Errorf("%s: got %d want %d", k, got, want)
		}
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Upstream("payment provider unavailable", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if err.Error() != "payment provider unavailable: dial tcp: timeout" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}
