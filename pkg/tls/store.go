package tls

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ReadKeyPair reads the raw key and certificate files. The contents are
// returned as-is; nothing is parsed or validated here, the listener that
// consumes them reports malformed material when it starts.
func ReadKeyPair(keyFile, certFile string) (key, cert []byte, err error) {
	key, err = os.ReadFile(keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read key file: %w", err)
	}
	cert, err = os.ReadFile(certFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read certificate file: %w", err)
	}
	return key, cert, nil
}

// SaveCertToFiles saves a certificate and private key to PEM files.
func SaveCertToFiles(cert *GeneratedCertificate, certPath, keyPath string) error {
	if cert == nil {
		return errors.New("certificate cannot be nil")
	}

	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		return fmt.Errorf("failed to create certificate directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	if err := os.WriteFile(certPath, cert.CertPEM, 0644); err != nil {
		return fmt.Errorf("failed to write certificate file: %w", err)
	}

	// Private key with restricted permissions
	if err := os.WriteFile(keyPath, cert.KeyPEM, 0600); err != nil {
		_ = os.Remove(certPath)
		return fmt.Errorf("failed to write key file: %w", err)
	}

	return nil
}

// GenerateAndSave generates a new self-signed certificate and saves it to files.
func GenerateAndSave(cfg *CertificateConfig, certPath, keyPath string) (*GeneratedCertificate, error) {
	cert, err := GenerateSelfSignedCert(cfg)
	if err != nil {
		return nil, err
	}

	if err := SaveCertToFiles(cert, certPath, keyPath); err != nil {
		return nil, err
	}

	return cert, nil
}
