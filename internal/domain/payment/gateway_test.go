package payment

import (
	"fmt"
	"strings"
	"testing"
)

func TestCardFormattingIsMasked(t *testing.T) {
	c := Card{HolderName: "Ann", Number: "5528790000000008", CVC: "123"}
	for _, s := range []string{c.String(), fmt.Sprintf("%v", c), fmt.Sprintf("%+v", c), fmt.Sprintf("%#v", c)} {
		if strings.Contains(s, "5528790000000008") || strings.Contains(s, "123}") {
			t.Fatalf("card leaked: %s", s)
		}
	}
	if !strings.Contains(c.String(), "0008") {
		t.Fatal("last four missing")
	}
}
