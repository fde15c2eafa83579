package webapp

import (
	"errors"
	"testing"
)

const (
	testToken = "12345:TEST_TOKEN"
	testQuery = "auth_date=1735689600&query_id=AAH4mC0tAAAAAPiYLS1abcdef&user=%7B%22id%22%3A777000%2C%22first_name%22%3A%22Wormz%22%2C%22username%22%3A%22wormz_tester%22%2C%22language_code%22%3A%22en%22%7D&hash=ab9eb5a1bbddbb00143ccfe59ef7081629173385b594b6fa18b94164cf13d73c"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	data, err := Validate(testQuery, testToken)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if data.User.ID != 777000 {
		t.Errorf("user id = %d, want 777000", data.User.ID)
	}
	if data.User.Username != "wormz_tester" {
		t.Errorf("username = %q, want wormz_tester", data.User.Username)
	}
	if data.AuthDate != "1735689600" {
		t.Errorf("auth_date = %q", data.AuthDate)
	}
}

func TestValidateWrongToken(t *testing.T) {
	t.Parallel()

	if _, err := Validate(testQuery, "12345:OTHER_TOKEN"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestValidateTamperedPayload(t *testing.T) {
	t.Parallel()

	tampered := "auth_date=1735689601&query_id=AAH4mC0tAAAAAPiYLS1abcdef&user=%7B%22id%22%3A777000%7D&hash=ab9eb5a1bbddbb00143ccfe59ef7081629173385b594b6fa18b94164cf13d73c"
	if _, err := Validate(tampered, testToken); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestValidateMissingHash(t *testing.T) {
	t.Parallel()

	if _, err := Validate("auth_date=1&user=%7B%22id%22%3A1%7D", testToken); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("err = %v, want ErrInvalidInitData", err)
	}
}
