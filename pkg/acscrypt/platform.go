package acscrypt

// Platform identifies the device SDK variant on the other side of the mobile
// challenge channel. The two platforms derive their symmetric keys with distinct
// SDK reference numbers and use distinct JWE encryption algorithms, so guessing a
// default platform produces a wrong but well formed key. Platform values are
// therefore always derived from the enc header of an inbound envelope, never
// assumed.
type Platform string

const (
	PlatformAndroid = Platform("android")
	PlatformIOS     = Platform("ios")
)

// JWE enc header values used by the device SDKs.
const (
	EncA128CBCHS256 = "A128CBC-HS256"
	EncA128GCM      = "A128GCM"
)

// SDK reference numbers, used as ConcatKDF partyVInfo. These are compiled-in:
// they must match the device SDK key derivation bit for bit.
const (
	sdkRefNumberAndroid = "3DS_LOA_SDK_JTPL_020200_00788"
	sdkRefNumberIOS     = "3DS_LOA_SDK_JTPL_020200_00805"
)

// Direction selects the role of a JWE operation relative to the ACS.
type Direction int

const (
	// DecryptRequest processes an inbound CReq envelope.
	DecryptRequest = Direction(iota)

	// EncryptResponse produces an outbound CRes envelope.
	EncryptResponse
)

// DetectPlatform maps the enc header value of an inbound envelope to the
// originating Platform. Unknown values error with ErrUnsupportedPlatform.
func DetectPlatform(enc string) (Platform, error) {
	switch enc {
	case EncA128CBCHS256:
		return PlatformAndroid, nil
	case EncA128GCM:
		return PlatformIOS, nil
	default:
		return Platform(""), flagError(ErrUnsupportedPlatform, "unsupported encryption algorithm %q", enc)
	}
}

// Enc returns the JWE encryption algorithm used for the Platform traffic.
func (self Platform) Enc() (string, error) {
	switch self {
	case PlatformAndroid:
		return EncA128CBCHS256, nil
	case PlatformIOS:
		return EncA128GCM, nil
	default:
		return "", flagError(ErrUnsupportedPlatform, "unsupported platform %q", string(self))
	}
}

// refNumber returns the SDK reference number seeding the Platform key derivation.
func (self Platform) refNumber() (string, error) {
	switch self {
	case PlatformAndroid:
		return sdkRefNumberAndroid, nil
	case PlatformIOS:
		return sdkRefNumberIOS, nil
	default:
		return "", flagError(ErrUnsupportedPlatform, "unsupported platform %q", string(self))
	}
}

// gcmKeyRange returns the half of the derived key used by the A128GCM codec for
// direction. The iOS SDK decrypts ACS responses with the second half of the
// derived key but encrypts its requests with the first half; the ACS mirrors
// that asymmetry. Interop requirement observed against the device SDK, kept as
// one named branch.
func gcmKeyRange(direction Direction) (lo, hi int) {
	switch direction {
	case EncryptResponse:
		return 16, 32
	default:
		return 0, 16
	}
}
