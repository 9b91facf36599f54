package crypto

import "testing"

func TestHashAndComparePin(t *testing.T) {
	hash, err := HashPin("4821")
	if err != nil {
		t.Fatalf("HashPin returned error: %v", err)
	}
	if string(hash) == "4821" {
		t.Fatalf("hash stores the plaintext PIN")
	}
	if err := ComparePin(hash, "4821"); err != nil {
		t.Fatalf("ComparePin rejected the correct PIN: %v", err)
	}
	if err := ComparePin(hash, "4822"); err == nil {
		t.Fatalf("ComparePin accepted a wrong PIN")
	}
}

func TestHashPinIsSalted(t *testing.T) {
	first, err := HashPin("4821")
	if err != nil {
		t.Fatalf("HashPin returned error: %v", err)
	}
	second, err := HashPin("4821")
	if err != nil {
		t.Fatalf("HashPin returned error: %v", err)
	}
	if string(first) == string(second) {
		t.Fatalf("two hashes of the same PIN are identical")
	}
}
