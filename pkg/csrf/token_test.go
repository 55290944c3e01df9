package csrf

import (
	"encoding/hex"
	"testing"
)

func TestGenerateToken_Format(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if len(token) != TokenBytes*2 {
		t.Errorf("token length = %d, want %d", len(token), TokenBytes*2)
	}

	if _, err := hex.DecodeString(token); err != nil {
		t.Errorf("token is not valid hex: %v", err)
	}
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken returned error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestTokensEqual(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if !TokensEqual(token, token) {
		t.Error("identical tokens should compare equal")
	}

	if TokensEqual(token, token[:len(token)-1]) {
		t.Error("tokens of different length should not compare equal")
	}

	if TokensEqual(token, "") {
		t.Error("empty token should not match")
	}

	// Any single-character mutation must fail the comparison
	for i := 0; i < len(token); i++ {
		mutated := []byte(token)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if TokensEqual(token, string(mutated)) {
			t.Fatalf("mutation at position %d still compared equal", i)
		}
	}
}
