package acscrypt

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
)

const (
	// P-256 coordinate and scalar byte length.
	coordinateSize = 32
)

// JWK is the JSON Web Key form of a P-256 public point, as exchanged with the
// device SDK and embedded in the ACS signed content.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// Check validates that the JWK describes a P-256 public point.
func (self JWK) Check() error {
	if "EC" != self.Kty {
		return newError("unexpected kty %q", self.Kty)
	}
	if "P-256" != self.Crv {
		return newError("unexpected crv %q", self.Crv)
	}
	for _, coord := range []string{self.X, self.Y} {
		b, err := base64.RawURLEncoding.DecodeString(coord)
		if nil != err {
			return wrapError(err, "invalid coordinate encoding")
		}
		if coordinateSize != len(b) {
			return newError("invalid coordinate length %d", len(b))
		}
	}
	return nil
}

// publicKey rebuilds the ecdh.PublicKey from the JWK coordinates.
// It errors if the coordinates do not form a point on the curve.
func (self JWK) publicKey() (*ecdh.PublicKey, error) {
	err := self.Check()
	if nil != err {
		return nil, wrapError(err, "invalid JWK")
	}

	x, _ := base64.RawURLEncoding.DecodeString(self.X)
	y, _ := base64.RawURLEncoding.DecodeString(self.Y)

	// uncompressed SEC1 point, 0x04 || x || y
	point := make([]byte, 0, 1+2*coordinateSize)
	point = append(point, 0x04)
	point = append(point, x...)
	point = append(point, y...)

	pub, err := ecdh.P256().NewPublicKey(point)
	if nil != err {
		return nil, wrapError(err, "point is not on P-256")
	}
	return pub, nil
}

// EphemeralKey is a fresh P-256 key pair generated for a single transaction.
// The private scalar stays inside the process; only the public JWK coordinates
// are ever exported.
type EphemeralKey struct {
	priv *ecdh.PrivateKey
}

// GenerateEphemeralKey produces a fresh key pair from the system entropy source.
// A failure wraps ErrKeyGeneration and means the process can not proceed safely.
func GenerateEphemeralKey() (*EphemeralKey, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if nil != err {
		return nil, flagError(ErrKeyGeneration, "entropy source failure: %v", err)
	}
	return &EphemeralKey{priv: priv}, nil
}

// PublicJWK exports the public point as JWK coordinates.
func (self *EphemeralKey) PublicJWK() JWK {
	// Bytes() returns the uncompressed SEC1 form, 0x04 || x || y
	raw := self.priv.PublicKey().Bytes()
	return JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(raw[1 : 1+coordinateSize]),
		Y:   base64.RawURLEncoding.EncodeToString(raw[1+coordinateSize:]),
	}
}

// ephemeralKeyWire is the persisted form of an EphemeralKey, field names match
// the original server keyspace.
type ephemeralKeyWire struct {
	PrivateKey string `json:"private_key"`
	PublicKey  JWK    `json:"public_key"`
}

// MarshalJSON exports the key pair for transaction persistence.
func (self EphemeralKey) MarshalJSON() ([]byte, error) {
	if nil == self.priv {
		return nil, newError("can not marshal zero EphemeralKey")
	}
	wire := ephemeralKeyWire{
		PrivateKey: base64.RawURLEncoding.EncodeToString(self.priv.Bytes()),
		PublicKey:  self.PublicJWK(),
	}
	return json.Marshal(wire)
}

// UnmarshalJSON rebuilds the key pair from its persisted form. The public part
// is recomputed from the private scalar rather than trusted.
func (self *EphemeralKey) UnmarshalJSON(data []byte) error {
	var wire ephemeralKeyWire
	err := json.Unmarshal(data, &wire)
	if nil != err {
		return wrapError(err, "failed decoding EphemeralKey")
	}
	d, err := base64.RawURLEncoding.DecodeString(wire.PrivateKey)
	if nil != err {
		return wrapError(err, "invalid private scalar encoding")
	}
	priv, err := ecdh.P256().NewPrivateKey(d)
	if nil != err {
		return wrapError(err, "invalid private scalar")
	}
	self.priv = priv
	return nil
}

// MarshalBinary exports the private scalar, used by CBOR based stores.
func (self EphemeralKey) MarshalBinary() ([]byte, error) {
	if nil == self.priv {
		return nil, nil
	}
	return self.priv.Bytes(), nil
}

// UnmarshalBinary rebuilds the key pair from the private scalar.
func (self *EphemeralKey) UnmarshalBinary(data []byte) error {
	if 0 == len(data) {
		return newError("no data")
	}
	priv, err := ecdh.P256().NewPrivateKey(data)
	if nil != err {
		return wrapError(err, "invalid private scalar")
	}
	self.priv = priv
	return nil
}
