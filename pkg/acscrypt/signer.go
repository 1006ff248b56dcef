package acscrypt

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContentSource tags how an acsSignedContent value was produced.
type ContentSource string

const (
	// SourceSigned marks content signed with the loaded RSA key.
	SourceSigned ContentSource = "signed"

	// SourceFallback marks the static placeholder emitted when no key material
	// is available. Such content never verifies, it only keeps the message
	// shape intact for SDKs that require the field to be present.
	SourceFallback ContentSource = "fallback"
)

// SignedContent is the result of producing an acsSignedContent value.
type SignedContent struct {
	JWT    string
	Source ContentSource

	// Reason explains why the fallback was used, empty when Source is
	// SourceSigned.
	Reason string
}

// SignedContentClaims is the payload of an acsSignedContent JWT, carrying the
// ACS identity and the ephemeral public key the SDK needs for key agreement.
type SignedContentClaims struct {
	ACSTransID     string `json:"acsTransID"`
	ACSRefNumber   string `json:"acsRefNumber"`
	ACSURL         string `json:"acsURL"`
	ACSEphemPubKey JWK    `json:"acsEphemPubKey"`
}

func (self SignedContentClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (self SignedContentClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (self SignedContentClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (self SignedContentClaims) GetIssuer() (string, error)                   { return "", nil }
func (self SignedContentClaims) GetSubject() (string, error)                  { return "", nil }
func (self SignedContentClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Signer produces acsSignedContent JWTs. A Signer with no key material stays
// operational and emits fallback content, see NewSigner.
type Signer struct {
	km *KeyMaterial
}

// NewSigner returns a Signer over km. km may be nil, in which case every Sign
// call returns fallback content with the given reason.
func NewSigner(km *KeyMaterial) *Signer {
	return &Signer{km: km}
}

// Signed reports whether the signer holds key material.
func (self *Signer) Signed() bool {
	return nil != self.km
}

// Sign produces the acsSignedContent JWT for one challenge transaction: a
// PS256 signed token whose x5c header carries the signing certificate. Without
// key material a static fallback token is returned instead of an error, the
// challenge flow continues unsigned.
func (self *Signer) Sign(claims SignedContentClaims) SignedContent {
	if nil == self.km {
		return SignedContent{
			JWT:    fallbackSignedContent,
			Source: SourceFallback,
			Reason: "no signing key material loaded",
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodPS256, claims)
	token.Header["x5c"] = []string{base64.StdEncoding.EncodeToString(self.km.CertDER)}

	signed, err := token.SignedString(self.km.PrivateKey)
	if nil != err {
		return SignedContent{
			JWT:    fallbackSignedContent,
			Source: SourceFallback,
			Reason: "signing failed: " + err.Error(),
		}
	}
	return SignedContent{JWT: signed, Source: SourceSigned}
}

// fallbackSignedContent is a structurally valid but unverifiable JWT used when
// no signing key is configured. Its fixed signature bytes cannot validate
// against any key.
var fallbackSignedContent = buildFallbackSignedContent()

func buildFallbackSignedContent() string {
	header, _ := json.Marshal(map[string]any{"alg": "PS256", "x5c": []string{}})
	payload, _ := json.Marshal(map[string]string{
		"acsTransID":   "00000000-0000-0000-0000-000000000000",
		"acsRefNumber": "MOCK_ACS",
		"acsURL":       "",
	})
	sig := make([]byte, 256)
	return strings.Join([]string{
		base64.RawURLEncoding.EncodeToString(header),
		base64.RawURLEncoding.EncodeToString(payload),
		base64.RawURLEncoding.EncodeToString(sig),
	}, ".")
}
