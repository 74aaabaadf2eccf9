package sterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewNil(t *testing.T) {
	if New(CodeNetwork, nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("login: %w", New(CodeNetwork, base))

	if !IsCode(err, CodeNetwork) {
		t.Fatal("expected wrapped network code")
	}
	if IsCode(err, CodeTimeout) {
		t.Fatal("did not expect timeout code")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected underlying error to be reachable")
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Fatal("expected unknown code for plain errors")
	}
}

func TestWithFields(t *testing.T) {
	fields := map[string][]string{"email": {"Enter a valid email address."}}
	err := WithFields(CodeValidation, errors.New("invalid registration"), fields)

	if got := FieldsOf(err)["email"]; len(got) != 1 {
		t.Fatalf("expected one email message, got %v", got)
	}
	if err.Error() != "validation: invalid registration" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
