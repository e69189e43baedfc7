package app

import "testing"

func TestHasExecveArgvMode(t *testing.T) {
	modes := []string{"array", "string"}
	if !hasExecveArgvMode(modes, "array") {
		t.Fatal("expected array mode to be present")
	}
	if !hasExecveArgvMode(modes, "string") {
		t.Fatal("expected string mode to be present")
	}
	if hasExecveArgvMode(modes, "json") {
		t.Fatal("did not expect json mode to be present")
	}
	if hasExecveArgvMode(nil, "array") {
		t.Fatal("nil modes should never match")
	}
}
