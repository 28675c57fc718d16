package util

import "testing"

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault(" 24 ", 0); got != 24 {
		t.Fatalf("expected 24, got %d", got)
	}
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("2.5", 7); got != 7 {
		t.Fatalf("expected default for non-integer, got %d", got)
	}
}

func TestParseInt(t *testing.T) {
	if _, err := ParseInt("abc"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"Status":            "Status",
		"CreditHistory":     "Credit History",
		"PersonalStatusSex": "Personal Status Sex",
		"NumPeopleLiable":   "Num People Liable",
		"HTTPServer":        "HTTP Server",
	}
	for in, want := range cases {
		if got := Humanize(in); got != want {
			t.Fatalf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	if got := SnakeCase("OtherInstallmentPlans"); got != "other_installment_plans" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SnakeCase("Age"); got != "age" {
		t.Fatalf("unexpected %q", got)
	}
}
