package acscrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"strings"
)

const (
	cbcIVSize = 16
	gcmIVSize = 12
	tagSize   = 16
)

// Header is the protected JWE header of a mobile challenge envelope. alg is
// always "dir": the symmetric key comes from the ECDH agreement, the key
// encryption segment stays empty.
type Header struct {
	Alg string `json:"alg"`
	Enc string `json:"enc"`
	Kid string `json:"kid"`
}

// Envelope is a parsed compact JWE. rawHeader keeps the exact base64url header
// segment received on the wire: it is the AAD of both codecs and re-encoding
// the header would not round trip key order.
type Envelope struct {
	Header     Header
	IV         []byte
	Ciphertext []byte
	Tag        []byte

	rawHeader string
}

// ParseEnvelope splits and decodes a compact serialized JWE.
// Structural problems error with ErrMalformedEnvelope.
func ParseEnvelope(compact string) (*Envelope, error) {
	parts := strings.Split(compact, ".")
	if 5 != len(parts) {
		return nil, flagError(ErrMalformedEnvelope, "expected 5 segments, got %d", len(parts))
	}

	headerData, err := base64.RawURLEncoding.DecodeString(parts[0])
	if nil != err {
		return nil, flagError(ErrMalformedEnvelope, "invalid header encoding: %v", err)
	}

	env := Envelope{rawHeader: parts[0]}
	err = json.Unmarshal(headerData, &env.Header)
	if nil != err {
		return nil, flagError(ErrMalformedEnvelope, "invalid header JSON: %v", err)
	}
	if "" == env.Header.Enc {
		return nil, flagError(ErrMalformedEnvelope, "missing enc header")
	}

	// parts[1] is the encrypted key segment, empty under direct key agreement.
	// Its content is ignored, matching the reference JOSE behavior for alg dir.

	env.IV, err = base64.RawURLEncoding.DecodeString(parts[2])
	if nil != err {
		return nil, flagError(ErrMalformedEnvelope, "invalid iv encoding: %v", err)
	}
	env.Ciphertext, err = base64.RawURLEncoding.DecodeString(parts[3])
	if nil != err {
		return nil, flagError(ErrMalformedEnvelope, "invalid ciphertext encoding: %v", err)
	}
	env.Tag, err = base64.RawURLEncoding.DecodeString(parts[4])
	if nil != err {
		return nil, flagError(ErrMalformedEnvelope, "invalid tag encoding: %v", err)
	}

	return &env, nil
}

// Platform returns the Platform inferred from the envelope enc header.
func (self *Envelope) Platform() (Platform, error) {
	return DetectPlatform(self.Header.Enc)
}

// Compact serializes the envelope to its five segment compact form.
func (self *Envelope) Compact() string {
	segments := []string{
		self.rawHeader,
		"", // encrypted key, empty under direct key agreement
		base64.RawURLEncoding.EncodeToString(self.IV),
		base64.RawURLEncoding.EncodeToString(self.Ciphertext),
		base64.RawURLEncoding.EncodeToString(self.Tag),
	}
	return strings.Join(segments, ".")
}

// Encrypt encrypts plaintext for platform under the derived key and returns the
// compact serialized envelope. kid correlates the envelope to the transaction
// (the acsTransID). The codec and the key half usage are selected by the
// platform branch.
func Encrypt(plaintext []byte, kid string, derived []byte, platform Platform) (string, error) {
	enc, err := platform.Enc()
	if nil != err {
		return "", err
	}

	header := Header{Alg: "dir", Enc: enc, Kid: kid}
	headerJSON, err := json.Marshal(header)
	if nil != err {
		return "", wrapError(err, "failed header encoding")
	}

	env := Envelope{
		Header:    header,
		rawHeader: base64.RawURLEncoding.EncodeToString(headerJSON),
	}
	aad := []byte(env.rawHeader)

	codec, err := codecFor(enc)
	if nil != err {
		return "", err
	}
	err = codec.seal(&env, derived, aad, plaintext)
	if nil != err {
		return "", wrapError(err, "failed %s encryption", enc)
	}

	return env.Compact(), nil
}

// Decrypt parses a compact JWE and decrypts it under the derived key. The codec
// is selected by the envelope enc header. The authentication tag is verified
// before any plaintext is produced; a mismatch errors with ErrAuthentication.
func Decrypt(compact string, derived []byte) ([]byte, error) {
	env, err := ParseEnvelope(compact)
	if nil != err {
		return nil, err
	}
	return DecryptEnvelope(env, derived)
}

// DecryptEnvelope decrypts an already parsed envelope, see Decrypt.
func DecryptEnvelope(env *Envelope, derived []byte) ([]byte, error) {
	codec, err := codecFor(env.Header.Enc)
	if nil != err {
		return nil, err
	}
	return codec.open(env, derived)
}

// codec is implemented by the two authenticated encryption constructions used by
// the mobile channel. Selection happens in codecFor, the single dispatch point.
type codec interface {
	seal(env *Envelope, derived, aad, plaintext []byte) error
	open(env *Envelope, derived []byte) ([]byte, error)
}

func codecFor(enc string) (codec, error) {
	switch enc {
	case EncA128CBCHS256:
		return cbcHmacCodec{}, nil
	case EncA128GCM:
		return gcmCodec{}, nil
	default:
		return nil, flagError(ErrUnsupportedPlatform, "unsupported encryption algorithm %q", enc)
	}
}

// cbcHmacCodec is the A128CBC-HS256 construction of RFC 7516 5.1, built by hand:
// AES-128-CBC with PKCS#7 padding, authenticated by a truncated HMAC-SHA-256
// over AAD || IV || Ciphertext || bitlen64(AAD). The 32 byte derived key splits
// into the HMAC key (first half) and the AES key (second half), both directions.
type cbcHmacCodec struct{}

func (self cbcHmacCodec) seal(env *Envelope, derived, aad, plaintext []byte) error {
	hmacKey, aesKey, err := self.splitKey(derived)
	if nil != err {
		return err
	}

	iv := make([]byte, cbcIVSize)
	_, err = rand.Read(iv)
	if nil != err {
		return flagError(ErrKeyGeneration, "entropy source failure: %v", err)
	}

	block, err := aes.NewCipher(aesKey)
	if nil != err {
		return wrapError(err, "failed cipher init")
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	env.IV = iv
	env.Ciphertext = ciphertext
	env.Tag = self.computeTag(hmacKey, aad, iv, ciphertext)
	return nil
}

func (self cbcHmacCodec) open(env *Envelope, derived []byte) ([]byte, error) {
	hmacKey, aesKey, err := self.splitKey(derived)
	if nil != err {
		return nil, err
	}
	if cbcIVSize != len(env.IV) {
		return nil, flagError(ErrMalformedEnvelope, "invalid iv length %d", len(env.IV))
	}
	if 0 == len(env.Ciphertext) || 0 != len(env.Ciphertext)%aes.BlockSize {
		return nil, flagError(ErrMalformedEnvelope, "invalid ciphertext length %d", len(env.Ciphertext))
	}

	// verify the tag before touching the ciphertext
	expect := self.computeTag(hmacKey, []byte(env.rawHeader), env.IV, env.Ciphertext)
	if 1 != subtle.ConstantTimeCompare(expect, env.Tag) {
		return nil, flagError(ErrAuthentication, "authentication tag mismatch")
	}

	block, err := aes.NewCipher(aesKey)
	if nil != err {
		return nil, wrapError(err, "failed cipher init")
	}
	plaintext := make([]byte, len(env.Ciphertext))
	cipher.NewCBCDecrypter(block, env.IV).CryptBlocks(plaintext, env.Ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, block.BlockSize())
	if nil != err {
		// the tag verified, but keys producing valid tags over invalid padding do
		// not exist under honest derivation; treat as an authentication failure
		return nil, flagError(ErrAuthentication, "invalid padding")
	}
	return plaintext, nil
}

// computeTag is the RFC 7516 5.1 tag: HMAC-SHA-256 over
// AAD || IV || Ciphertext || AAD bit length as 64 bit big endian, truncated to
// 16 bytes. The operand ordering is the interop contract; deviating from it
// breaks verification against reference JOSE implementations.
func (self cbcHmacCodec) computeTag(hmacKey, aad, iv, ciphertext []byte) []byte {
	var al [8]byte
	binary.BigEndian.PutUint64(al[:], uint64(len(aad))*8)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(aad)
	mac.Write(iv)
	mac.Write(ciphertext)
	mac.Write(al[:])
	return mac.Sum(nil)[:tagSize]
}

func (self cbcHmacCodec) splitKey(derived []byte) (hmacKey, aesKey []byte, err error) {
	if DerivedKeySize != len(derived) {
		return nil, nil, newError("invalid derived key length %d, expected %d", len(derived), DerivedKeySize)
	}
	return derived[0:16], derived[16:32], nil
}

// gcmCodec is the A128GCM construction: a native AEAD with a 12 byte IV and the
// base64url header as AAD. Unlike the CBC branch the key half is direction
// dependent, see gcmKeyRange.
type gcmCodec struct{}

func (self gcmCodec) seal(env *Envelope, derived, aad, plaintext []byte) error {
	key, err := self.keySlice(derived, EncryptResponse)
	if nil != err {
		return err
	}

	iv := make([]byte, gcmIVSize)
	_, err = rand.Read(iv)
	if nil != err {
		return flagError(ErrKeyGeneration, "entropy source failure: %v", err)
	}

	aead, err := self.newAEAD(key)
	if nil != err {
		return err
	}

	sealed := aead.Seal(nil, iv, plaintext, aad)
	env.IV = iv
	env.Ciphertext = sealed[:len(sealed)-tagSize]
	env.Tag = sealed[len(sealed)-tagSize:]
	return nil
}

func (self gcmCodec) open(env *Envelope, derived []byte) ([]byte, error) {
	key, err := self.keySlice(derived, DecryptRequest)
	if nil != err {
		return nil, err
	}
	if len(env.IV) < gcmIVSize {
		return nil, flagError(ErrMalformedEnvelope, "iv too short for GCM, %d bytes", len(env.IV))
	}
	if tagSize != len(env.Tag) {
		return nil, flagError(ErrAuthentication, "invalid tag length %d", len(env.Tag))
	}

	aead, err := self.newAEAD(key)
	if nil != err {
		return nil, err
	}

	// some SDK builds send oversized IVs, only the first 12 bytes count
	nonce := env.IV[:gcmIVSize]
	sealed := make([]byte, 0, len(env.Ciphertext)+tagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, []byte(env.rawHeader))
	if nil != err {
		return nil, flagError(ErrAuthentication, "authentication tag mismatch")
	}
	return plaintext, nil
}

func (self gcmCodec) newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if nil != err {
		return nil, wrapError(err, "failed cipher init")
	}
	aead, err := cipher.NewGCM(block)
	if nil != err {
		return nil, wrapError(err, "failed GCM init")
	}
	return aead, nil
}

func (self gcmCodec) keySlice(derived []byte, direction Direction) ([]byte, error) {
	if DerivedKeySize != len(derived) {
		return nil, newError("invalid derived key length %d, expected %d", len(derived), DerivedKeySize)
	}
	lo, hi := gcmKeyRange(direction)
	return derived[lo:hi], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padlen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padlen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padlen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if 0 == len(data) || 0 != len(data)%blockSize {
		return nil, newError("invalid padded length %d", len(data))
	}
	padlen := int(data[len(data)-1])
	if 0 == padlen || padlen > blockSize {
		return nil, newError("invalid padding byte %d", padlen)
	}
	for _, b := range data[len(data)-padlen:] {
		if byte(padlen) != b {
			return nil, newError("inconsistent padding")
		}
	}
	return data[:len(data)-padlen], nil
}
