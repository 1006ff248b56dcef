package acscrypt

import (
	"crypto/sha256"
	"encoding/binary"
)

// DerivedKeySize is the ConcatKDF output length. The codec slices 16 byte halves
// out of the derived key according to the platform/direction branch.
const DerivedKeySize = 32

// DeriveKey runs the ECDH agreement between key and the SDK public point peer,
// then derives the 32 byte symmetric key with the EMVCo ConcatKDF, seeded with
// the platform SDK reference number. Deriving with the wrong platform yields a
// different but well formed key, so the mapping is exact and tested per
// platform.
func DeriveKey(key *EphemeralKey, peer JWK, platform Platform) ([]byte, error) {
	refnum, err := platform.refNumber()
	if nil != err {
		return nil, err
	}
	if nil == key || nil == key.priv {
		return nil, newError("nil ephemeral key")
	}

	pub, err := peer.publicKey()
	if nil != err {
		return nil, wrapError(err, "invalid SDK public key")
	}

	// Z is the x coordinate of the shared point. It lives only for the duration
	// of this call.
	z, err := key.priv.ECDH(pub)
	if nil != err {
		return nil, wrapError(err, "failed ECDH agreement")
	}

	return concatKDF(z, refnum), nil
}

// concatKDF is the single block NIST SP 800-56A concatenation KDF as profiled by
// EMVCo 3DS: SHA-256(counter || Z || OtherInfo) with
//
//	OtherInfo = algorithmID || partyUInfo || partyVInfo || suppPubInfo
//
// where algorithmID and partyUInfo are four zero bytes, partyVInfo is the
// length prefixed SDK reference number and suppPubInfo is the key bit length
// (256). One SHA-256 block suffices for a 32 byte output.
func concatKDF(z []byte, refnum string) []byte {
	var be4 [4]byte

	h := sha256.New()

	// counter, fixed at 1
	binary.BigEndian.PutUint32(be4[:], 1)
	h.Write(be4[:])

	h.Write(z)

	// algorithmID and partyUInfo, four zero bytes each
	binary.BigEndian.PutUint32(be4[:], 0)
	h.Write(be4[:])
	h.Write(be4[:])

	// partyVInfo, length prefixed reference number
	binary.BigEndian.PutUint32(be4[:], uint32(len(refnum)))
	h.Write(be4[:])
	h.Write([]byte(refnum))

	// suppPubInfo, derived key length in bits
	binary.BigEndian.PutUint32(be4[:], DerivedKeySize*8)
	h.Write(be4[:])

	return h.Sum(nil)
}
