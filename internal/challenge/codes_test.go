package challenge

import (
	"strings"
	"testing"
)

func TestGenerateCode_Length(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode() error: %v", err)
	}
	if len(code) != codeLength {
		t.Errorf("code length = %d, want %d", len(code), codeLength)
	}
}

func TestGenerateCode_Alphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error: %v", err)
		}
		for _, ch := range code {
			if !strings.ContainsRune(alphabet, ch) {
				t.Errorf("code %q contains %q outside the alphabet", code, ch)
			}
		}
	}
}

func TestGenerateCode_NoAmbiguousCharacters(t *testing.T) {
	for _, ch := range "0O1IL" {
		if strings.ContainsRune(alphabet, ch) {
			t.Errorf("alphabet contains ambiguous character %q", ch)
		}
	}
}
