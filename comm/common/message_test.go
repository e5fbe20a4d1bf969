package common

import (
	"testing"
)

func expectPanic(t *testing.T, addr string) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for address %q", addr)
		}
	}()
	ParseAddress(addr)
}

// TestParseAddress verifies the accepted format and the resulting fields
func TestParseAddress(t *testing.T) {
	a := ParseAddress("socket://127.0.0.1:50051")
	if a.Host != "127.0.0.1" || a.Port != 50051 {
		t.Errorf("Expected 127.0.0.1:50051, got %s:%d", a.Host, a.Port)
	}
	if a.String() != "127.0.0.1:50051" {
		t.Errorf("Expected 127.0.0.1:50051, got %s", a.String())
	}

	a = ParseAddress("socket://localhost:9000")
	if a.Host != "localhost" || a.Port != 9000 {
		t.Errorf("Expected localhost:9000, got %s:%d", a.Host, a.Port)
	}
}

// TestParseAddressRejectsMalformed verifies every deviation from the
// expected format is fatal
func TestParseAddressRejectsMalformed(t *testing.T) {
	for _, addr := range []string{
		"127.0.0.1:50051",          // missing scheme
		"tcp://127.0.0.1:50051",    // wrong scheme
		"socket://127.0.0.1",       // missing port
		"socket://127.0.0.1:abc",   // non-numeric port
		"socket://a//b:1",          // extra separator
		"socket://host:1:2",        // extra colon
		"",                         // empty
	} {
		expectPanic(t, addr)
	}
}
