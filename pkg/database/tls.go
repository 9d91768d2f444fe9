package database

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/pkg/errors"
)

// GetTLSConfig creates a TLS config for connecting to the database over mTLS.
// It returns nil when no certificate files are configured.
//
//	tlsConfig, err := GetTLSConfig(cfg.Database.TLS)
//	if err != nil {
//		return err
//	}
func GetTLSConfig(opts config.TLS) (*tls.Config, error) {
	if opts.CAFile == "" && opts.CertFile == "" && opts.KeyFile == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if opts.CertFile != "" || opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load certfile/keyfile")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if opts.CAFile != "" {
		caCert, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load CA file")
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.Errorf("no certificates found in CA file: %s", opts.CAFile)
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
