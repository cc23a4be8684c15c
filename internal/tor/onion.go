package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the top-level domain of onion services.
	OnionSuffix = ".onion"

	// onionV3Version is the trailing version byte of a v3 address.
	onionV3Version = 0x03

	// onionV3DecodedLength is pubkey (32) + checksum (2) + version (1).
	onionV3DecodedLength = 35
)

// Generation classifies an onion location by its address format.
type Generation int

const (
	// GenerationNotOnion is a location outside the onion TLD.
	GenerationNotOnion Generation = iota

	// GenerationV2 is a 16 character address. Tor dropped v2 in 2021.
	GenerationV2

	// GenerationV3 is a 56 character address with a valid checksum.
	GenerationV3

	// GenerationMalformed is an onion host that is neither.
	GenerationMalformed
)

// String returns the generation name used in log output.
func (g Generation) String() string {
	switch g {
	case GenerationNotOnion:
		return "not onion"
	case GenerationV2:
		return "v2"
	case GenerationV3:
		return "v3"
	case GenerationMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)
)

// checksumPrefix is the domain separator of the v3 checksum.
var checksumPrefix = []byte(".onion checksum")

// HostOf returns the lower-cased host of a location such as
// "http://abc.onion/path". Scheme, port, path, query and fragment are dropped.
func HostOf(location string) string {
	host := strings.ToLower(strings.TrimSpace(location))
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	if i := strings.IndexAny(host, "/?#"); i != -1 {
		host = host[:i]
	}
	if i := strings.LastIndexByte(host, ':'); i != -1 {
		host = host[:i]
	}
	return host
}

// Classify reports the address generation of location's host.
func Classify(location string) Generation {
	host := HostOf(location)
	switch {
	case !strings.HasSuffix(host, OnionSuffix):
		return GenerationNotOnion
	case onionV2Pattern.MatchString(host):
		return GenerationV2
	case IsValidV3Address(host):
		return GenerationV3
	default:
		return GenerationMalformed
	}
}

// IsValidV3Address reports whether address is a v3 onion host with a valid
// checksum and version byte.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != onionV3DecodedLength {
		return false
	}

	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	expected := v3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// V3AddressFromPublicKey derives the onion host of an ed25519 public key.
// It returns "" unless pubkey is 32 bytes.
func V3AddressFromPublicKey(pubkey []byte) string {
	if len(pubkey) != 32 {
		return ""
	}

	data := make([]byte, 0, onionV3DecodedLength)
	data = append(data, pubkey...)
	data = append(data, v3Checksum(pubkey, onionV3Version)...)
	data = append(data, onionV3Version)

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix
}

// v3Checksum is the first two bytes of SHA3-256(".onion checksum" || pubkey || version).
func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	sum := sha3.Sum256(data)
	return sum[:2]
}
