package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
)

func render(t *testing.T, err error) (int, APIResponse[any]) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "req-1")
	Fail(c, err)
	var out APIResponse[any]
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return rec.Code, out
}

func TestFailCarriesTraceForEveryKind(t *testing.T) {
	SetProduction(false)
	cases := []struct {
		err    error
		status int
	}{
		{apperror.InvalidInput("bad input"), http.StatusBadRequest},
		{apperror.NotFound("order not found"), http.StatusNotFound},
		{apperror.Conflict("order already paid"), http.StatusConflict},
		{apperror.Internal(errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, out := render(t, tc.err)
		if code != tc.status || out.Status != tc.status || out.Success {
			t.Fatalf("%v: status %d, body %+v", tc.err, code, out)
		}
		if out.Trace == "" || out.Error == nil {
			t.Fatalf("%v: missing trace or error chain", tc.err)
		}
		if out.RequestID != "req-1" {
			t.Fatalf("request id %q", out.RequestID)
		}
	}
}

func TestFailHidesDetailsInProduction(t *testing.T) {
	SetProduction(true)
	defer SetProduction(false)
	code, out := render(t, apperror.Internal(errors.New("db down")))
	if code != http.StatusInternalServerError || out.Message != "internal server error" {
		t.Fatalf("%d %+v", code, out)
	}
	if out.Trace != "" || out.Error != nil {
		t.Fatalf("details leaked: %+v", out)
	}
}
