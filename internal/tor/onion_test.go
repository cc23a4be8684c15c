package tor

import (
	"testing"
)

// Addresses derived from fixed public keys. They do not belong to any service.
const (
	// testOnionV3Addr1 is derived from an all-zero public key.
	testOnionV3Addr1 = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion"
	// testOnionV3Addr2 is derived from the public key 0, 1, ..., 31.
	testOnionV3Addr2 = "aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion"
)

// TestIsValidV3Address tests v3 checksum validation.
func TestIsValidV3Address(t *testing.T) {
	t.Parallel()

	corrupted := []byte(testOnionV3Addr1)
	corrupted[10] = 'b'

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"zero key", testOnionV3Addr1, true},
		{"sequential key", testOnionV3Addr2, true},
		{"upper case", "AAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYP3KEAD.ONION", true},
		{"corrupted checksum", string(corrupted), false},
		{"v2 address", "abcdefghijklmnop.onion", false},
		{"missing suffix", "aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead", false},
		{"invalid base32 digit", "0aaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsValidV3Address(tc.address); got != tc.expected {
				t.Errorf("IsValidV3Address(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}

// TestV3AddressFromPublicKey tests address derivation.
func TestV3AddressFromPublicKey(t *testing.T) {
	t.Parallel()

	sequential := make([]byte, 32)
	for i := range sequential {
		sequential[i] = byte(i)
	}

	if got := V3AddressFromPublicKey(make([]byte, 32)); got != testOnionV3Addr1 {
		t.Errorf("zero key: got %q, expected %q", got, testOnionV3Addr1)
	}
	if got := V3AddressFromPublicKey(sequential); got != testOnionV3Addr2 {
		t.Errorf("sequential key: got %q, expected %q", got, testOnionV3Addr2)
	}
	if got := V3AddressFromPublicKey([]byte{1, 2, 3}); got != "" {
		t.Errorf("short key: expected empty address, got %q", got)
	}
}

// TestHostOf tests host extraction from locations.
func TestHostOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		location string
		expected string
	}{
		{"http://abc.onion", "abc.onion"},
		{"https://ABC.onion/path?q=1", "abc.onion"},
		{"http://abc.onion:8080/", "abc.onion"},
		{"abc.onion#frag", "abc.onion"},
		{"  http://abc.onion  ", "abc.onion"},
		{"https://ahmia.fi/search/?q=bitcoin", "ahmia.fi"},
	}

	for _, tc := range testCases {
		t.Run(tc.location, func(t *testing.T) {
			t.Parallel()
			if got := HostOf(tc.location); got != tc.expected {
				t.Errorf("HostOf(%q) = %q, expected %q", tc.location, got, tc.expected)
			}
		})
	}
}

// TestClassify tests onion generation detection.
func TestClassify(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		location string
		expected Generation
	}{
		{"v3", "http://" + testOnionV3Addr2, GenerationV3},
		{"v3 with path", "https://" + testOnionV3Addr1 + "/index", GenerationV3},
		{"v2", "http://abcdefghijklmnop.onion", GenerationV2},
		{"malformed onion", "http://shortname.onion", GenerationMalformed},
		{"clearnet", "https://ahmia.fi/search/?q=x", GenerationNotOnion},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tc.location)
			if got != tc.expected {
				t.Errorf("Classify(%q) = %v, expected %v", tc.location, got, tc.expected)
			}
		})
	}
}

// TestGenerationString tests generation names.
func TestGenerationString(t *testing.T) {
	t.Parallel()

	names := map[Generation]string{
		GenerationNotOnion:  "not onion",
		GenerationV2:        "v2",
		GenerationV3:        "v3",
		GenerationMalformed: "malformed",
		Generation(42):      "unknown",
	}
	for g, expected := range names {
		if got := g.String(); got != expected {
			t.Errorf("Generation(%d).String() = %q, expected %q", int(g), got, expected)
		}
	}
}
