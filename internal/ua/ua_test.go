// internal/ua/ua_test.go

package ua

import "testing"

func TestParseEmpty(t *testing.T) {
	if got := Parse("  "); got != (Agent{}) {
		t.Fatalf("Parse(blank) = %+v", got)
	}
	if got := (Agent{}).Label(); got != "unknown" {
		t.Fatalf("Label() = %q", got)
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		a    Agent
		want string
	}{
		{Agent{Browser: "Firefox", Version: "128.0.1", OS: "Linux"}, "Firefox 128 on Linux"},
		{Agent{Browser: "Chrome"}, "Chrome"},
		{Agent{OS: "Windows"}, "on Windows"},
		{Agent{Browser: "Chrome", IsBot: true}, "bot"},
	}
	for _, c := range cases {
		if got := c.a.Label(); got != c.want {
			t.Errorf("%+v.Label() = %q, want %q", c.a, got, c.want)
		}
	}
}

func TestParseDesktopFirefox(t *testing.T) {
	a := Parse("Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
	if a.Browser != "Firefox" || a.Device != "Desktop" || a.IsBot {
		t.Fatalf("Parse = %+v", a)
	}
}
