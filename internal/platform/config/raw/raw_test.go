package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LOG_SERVICE", " claimguard-api ")
	c := New().Prefix("LOG_")
	if got := c.Get("SERVICE", "x"); got != "claimguard-api" {
		t.Fatalf("Get = %q", got)
	}
	if got := c.Get("COMPONENT", "runs"); got != "runs" {
		t.Fatalf("default = %q", got)
	}
}

func TestGetBool(t *testing.T) {
	c := New().Prefix("RAWB_")
	cases := map[string]bool{"1": true, "TRUE": true, "yes": true, "on": true, "0": false, "no": false, "nope": false}
	for v, want := range cases {
		t.Setenv("RAWB_CALLER", v)
		if got := c.GetBool("CALLER", !want); got != want {
			t.Errorf("%q: got %v", v, got)
		}
	}
	if !c.GetBool("UNSET", true) {
		t.Fatal("unset should keep default")
	}
}

func TestGetInt(t *testing.T) {
	c := New().Prefix("RAWI_")
	t.Setenv("RAWI_FILE_MAX_MB", "250")
	t.Setenv("RAWI_BAD", "12mb")
	t.Setenv("RAWI_NEG", "-4")
	if got := c.GetInt("FILE_MAX_MB", 100); got != 250 {
		t.Fatalf("GetInt = %d", got)
	}
	for _, k := range []string{"BAD", "NEG", "UNSET"} {
		if got := c.GetInt(k, 7); got != 7 {
			t.Errorf("%s: got %d", k, got)
		}
	}
}
