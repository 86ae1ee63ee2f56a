package errs

import (
	"errors"
	"testing"
)

func TestNewWrapsAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := New(Decode, "parsing packet", cause)
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	e, ok := As(err)
	if !ok {
		t.Fatal("expected *Error")
	}
	if e.Kind != Decode {
		t.Fatalf("got kind %v, want Decode", e.Kind)
	}
	if !errors.Is(err, cause) && errors.Unwrap(err) == nil {
		t.Fatal("expected wrapped cause to unwrap")
	}
}

func TestNewNilPassthrough(t *testing.T) {
	if New(Protocol, "op", nil) != nil {
		t.Fatal("New(..., nil) must return nil")
	}
}

func TestKindOfDefaultsToProtocol(t *testing.T) {
	plain := errors.New("unclassified")
	if KindOf(plain) != Protocol {
		t.Fatalf("expected default Protocol kind for unclassified error")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Protocol:   "Protocol",
		Connection: "Connection",
		Decode:     "Decode",
		FileSystem: "FileSystem",
		Subprocess: "Subprocess",
		User:       "User",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestSentinelsAreCategorized(t *testing.T) {
	if KindOf(ErrBlame) != Protocol {
		t.Error("ErrBlame should be Protocol kind")
	}
	if KindOf(ErrTimeout) != Connection {
		t.Error("ErrTimeout should be Connection kind")
	}
}
