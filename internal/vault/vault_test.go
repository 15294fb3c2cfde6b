package vault

import "testing"

func TestSplitRef(t *testing.T) {
	cases := []struct {
		in        string
		path, key string
		ok        bool
	}{
		{"secret/gtm#db_password", "secret/gtm", "db_password", true},
		{"kv/app/hubspot#client_secret", "kv/app/hubspot", "client_secret", true},
		{"secret/gtm", "", "", false},
		{"#key", "", "", false},
		{"secret/gtm#", "", "", false},
	}
	for _, c := range cases {
		p, k, ok := splitRef(c.in)
		if p != c.path || k != c.key || ok != c.ok {
			t.Errorf("splitRef(%q) = %q, %q, %v", c.in, p, k, ok)
		}
	}
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("secret/gtm/app")
	if m != "secret" || r != "gtm/app" {
		t.Fatalf("splitMount = %q, %q", m, r)
	}
}
