package verify

import "testing"

func TestValidSyntax(t *testing.T) {
	testCases := []struct {
		email string
		valid bool
	}{
		{"alice@proton.me", true},
		{"user.name@example.co.uk", true},
		{"user+tag@sub.example.com", true},
		{"user_%name@example.com", true},
		{"a@b.co", true},
		{"", false},
		{"notanemail", false},
		{"@example.com", false},
		{"user@", false},
		{"user@localhost", false},
		{"user@.com", false},
		{"user@@example.com", false},
		{"user @example.com", false},
		{"user@example.c", false},
		{"user@example.123", false},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			if got := ValidSyntax(tc.email); got != tc.valid {
				t.Errorf("ValidSyntax(%q) = %v, want %v", tc.email, got, tc.valid)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"  Test@Example.COM ", "test@example.com"},
		{"alice@proton.me", "alice@proton.me"},
		{"\tBOB@PROTON.ME\n", "bob@proton.me"},
	}

	for _, tc := range testCases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	if got := ExtractDomain("alice@proton.me"); got != "proton.me" {
		t.Errorf("ExtractDomain = %q, want proton.me", got)
	}
	if got := ExtractDomain("noatsign"); got != "" {
		t.Errorf("ExtractDomain on input without @ = %q, want empty", got)
	}
}

func TestEmailHashStableAndShort(t *testing.T) {
	a := EmailHash("test@example.com")
	b := EmailHash("test@example.com")
	if a != b {
		t.Errorf("hash not stable: %q vs %q", a, b)
	}
	if len(a) != 8 {
		t.Errorf("hash length = %d, want 8", len(a))
	}
	if EmailHash("other@example.com") == a {
		t.Error("different addresses produced the same hash prefix")
	}
}

func TestBlocklist(t *testing.T) {
	if !IsBlockedDomain("mailinator.com") {
		t.Error("mailinator.com should be blocked")
	}
	if !IsBlockedDomain("example.com") {
		t.Error("example.com is reserved and should be blocked")
	}
	if IsBlockedDomain("proton.me") {
		t.Error("proton.me should not be blocked")
	}
}

func TestRoleAccounts(t *testing.T) {
	for _, role := range []string{"admin", "support", "info", "sales", "marketing", "webmaster", "contact"} {
		if !IsRoleAccount(role) {
			t.Errorf("%q should be a role account", role)
		}
	}
	if IsRoleAccount("alice") {
		t.Error("alice should not be a role account")
	}
}
