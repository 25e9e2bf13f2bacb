package tool

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"
)

const certValidity = 10 * 365 * 24 * time.Hour

// EnsureTlsCertificate generates a self-signed key and certificate for hostnames unless both files already exist.
func EnsureTlsCertificate(organization string, commonName string, keyFilename, certFilename string, hostnames ...string) (generated bool, err error) {
	for _, filename := range []string{keyFilename, certFilename} {
		exists, err := IsFileExists(filename)
		if err != nil {
			return false, err
		}
		if !exists {
			return true, GenerateTlsCertificate(organization, commonName, keyFilename, certFilename, hostnames)
		}
	}
	return false, nil
}

// GenerateTlsCertificate writes a P-256 key and a server certificate signed by it. IP hostnames become IP SANs.
func GenerateTlsCertificate(organization string, commonName string, keyFilename, certFilename string, hostnames []string) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   commonName,
		},
		NotBefore:             now,
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hostnames {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return err
	}
	rawKey, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}
	if err := writePem(keyFilename, 0600, "EC PRIVATE KEY", rawKey); err != nil {
		return err
	}
	return writePem(certFilename, 0644, "CERTIFICATE", der)
}

func writePem(filename string, perm os.FileMode, blockType string, bytes []byte) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := pem.Encode(file, &pem.Block{Type: blockType, Bytes: bytes}); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
