package utils

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"author@university.edu",
		"first.last+tag@journal-press.org",
	}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}

	invalid := []string{
		"",
		"no-at-sign.example.com",
		"trailing@dot.",
		"spaces in@name.com",
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if ok, _ := ValidatePassword("short"); ok {
		t.Errorf("short password must be rejected")
	}
	if ok, msg := ValidatePassword("longenough"); !ok {
		t.Errorf("unexpected rejection: %s", msg)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  hello\x00world  "); got != "helloworld" {
		t.Errorf("unexpected output %q", got)
	}
}
