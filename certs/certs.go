// Package certs makes outbound HTTPS calls trust the bundled Mozilla CA list, for containers that don't ship a usable
// system trust store.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"

	"github.com/certifi/gocertifi"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
)

// CertPoolLoader loads the CA certificates to trust.
type CertPoolLoader func() (*x509.CertPool, error)

// Bundled certifi CA list.
func CertifiPool() (*x509.CertPool, error) {
	return gocertifi.CACerts()
}

// Setup loads the CA certificates and installs them in http.DefaultTransport.
//
// It mutates process-wide state and should be called once at startup before any client is created. It never fails, on
// error a warning is logged and http.DefaultClient, with the system trust store, is returned.
func Setup(rail flow.Rail, loader CertPoolLoader) *http.Client {
	if loader == nil {
		loader = CertifiPool
	}
	client, err := install(loader)
	if err != nil {
		rail.Warnf("Could not setup TLS trust store, using system defaults, %v", err)
		return http.DefaultClient
	}
	rail.Infof("TLS trust store set to bundled CA certificates")
	return client
}

func install(loader CertPoolLoader) (c *http.Client, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errs.NewErrf("panic while loading CA certificates: %v", v)
		}
	}()

	pool, err := loader()
	if err != nil {
		return nil, errs.Wrap(err)
	}
	if pool == nil {
		return nil, errs.NewErrf("empty CA certificate pool")
	}

	t, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errs.NewErrf("http.DefaultTransport is %T, not *http.Transport", http.DefaultTransport)
	}
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	}
	t.TLSClientConfig.RootCAs = pool
	return &http.Client{Transport: t}, nil
}
