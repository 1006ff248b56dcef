package acscrypt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
)

// KeyMaterial is the RSA signing identity of the server: one DER certificate
// propagated in x5c headers and its private key. Instances come from
// LoadKeyMaterial and are immutable afterwards.
type KeyMaterial struct {
	CertDER    []byte
	PrivateKey *rsa.PrivateKey
}

// LoadKeyMaterial reads a PEM certificate and a PEM RSA private key from disk.
// The key may be PKCS#8 or PKCS#1 encoded. All failures carry ErrKeyMaterial so
// callers can fall back to an unsigned operating mode.
func LoadKeyMaterial(certPath, keyPath string) (*KeyMaterial, error) {
	certDER, err := loadPEMBlock(certPath, "CERTIFICATE")
	if nil != err {
		return nil, err
	}
	_, err = x509.ParseCertificate(certDER)
	if nil != err {
		return nil, flagError(ErrKeyMaterial, "invalid certificate in %s: %v", certPath, err)
	}

	keyDER, err := loadPEMBlock(keyPath, "")
	if nil != err {
		return nil, err
	}
	key, err := parseRSAPrivateKey(keyDER)
	if nil != err {
		return nil, flagError(ErrKeyMaterial, "invalid private key in %s: %v", keyPath, err)
	}

	return &KeyMaterial{CertDER: certDER, PrivateKey: key}, nil
}

// loadPEMBlock returns the DER bytes of the first PEM block in path. If
// blockType is not empty the block type has to match.
func loadPEMBlock(path, blockType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if nil != err {
		return nil, flagError(ErrKeyMaterial, "failed reading %s: %v", path, err)
	}
	block, _ := pem.Decode(data)
	if nil == block {
		return nil, flagError(ErrKeyMaterial, "no PEM block in %s", path)
	}
	if "" != blockType && blockType != block.Type {
		return nil, flagError(ErrKeyMaterial, "unexpected PEM block %q in %s", block.Type, path)
	}
	return block.Bytes, nil
}

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if nil == err {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, newError("not an RSA private key")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(der)
}
