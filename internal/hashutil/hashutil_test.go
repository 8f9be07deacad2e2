package hashutil

import "testing"

func TestByNameDefaultsToBlake3(t *testing.T) {
	if ByName("").Name() != "blake3" {
		t.Fatalf("expected blake3 default")
	}
	if ByName("nonsense").Name() != "blake3" {
		t.Fatalf("expected blake3 fallback")
	}
	if ByName("sha256").Name() != "sha256" {
		t.Fatalf("expected sha256")
	}
}

func TestProvidersAreDeterministic(t *testing.T) {
	for _, p := range []Provider{Blake3Provider{}, Sha256Provider{}} {
		a := p.Sum([]byte("hello"))
		b := p.Sum([]byte("hello"))
		if a != b {
			t.Fatalf("%s: not deterministic", p.Name())
		}
		c := p.Sum([]byte("hello!"))
		if a == c {
			t.Fatalf("%s: collision on distinct input", p.Name())
		}
	}
}
