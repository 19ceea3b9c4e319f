package tlsconfig

import (
    "crypto/ecdsa"
    "crypto/elliptic"
    "crypto/rand"
    "crypto/tls"
    "crypto/x509"
    "crypto/x509/pkix"
    "encoding/pem"
    "math/big"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
    t.Helper()
    key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
    if err != nil { t.Fatalf("key: %v", err) }
    tmpl := &x509.Certificate{
        SerialNumber:          big.NewInt(1),
        Subject:               pkix.Name{CommonName: "es.test"},
        NotBefore:             time.Now().Add(-time.Hour),
        NotAfter:              time.Now().Add(time.Hour),
        IsCA:                  true,
        BasicConstraintsValid: true,
        KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
    }
    der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
    if err != nil { t.Fatalf("cert: %v", err) }
    keyDER, err := x509.MarshalECPrivateKey(key)
    if err != nil { t.Fatalf("marshal key: %v", err) }

    certFile = filepath.Join(dir, "cert.pem")
    keyFile = filepath.Join(dir, "key.pem")
    if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
        t.Fatalf("write cert: %v", err)
    }
    if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
        t.Fatalf("write key: %v", err)
    }
    return certFile, keyFile
}

func TestClient_Disabled(t *testing.T) {
    cfg, err := Options{}.Client()
    if err != nil || cfg != nil { t.Fatalf("got %v, %v; want nil, nil", cfg, err) }
}

func TestClient_CAAndKeyPair(t *testing.T) {
    certFile, keyFile := writeSelfSigned(t, t.TempDir())

    cfg, err := Options{CAFile: certFile, ServerName: "es.test"}.Client()
    if err != nil { t.Fatalf("client: %v", err) }
    if cfg.RootCAs == nil { t.Fatalf("RootCAs not set") }
    if cfg.ServerName != "es.test" { t.Fatalf("ServerName = %q", cfg.ServerName) }

    cfg, err = Options{Enable: true, CertFile: certFile, KeyFile: keyFile}.Client()
    if err != nil { t.Fatalf("client with key pair: %v", err) }
    if len(cfg.Certificates) != 1 { t.Fatalf("certificates = %d, want 1", len(cfg.Certificates)) }
}

func TestClient_Errors(t *testing.T) {
    dir := t.TempDir()
    bad := filepath.Join(dir, "bad.pem")
    if err := os.WriteFile(bad, []byte("not a cert"), 0o600); err != nil { t.Fatalf("write: %v", err) }

    if _, err := (Options{CAFile: bad}).Client(); err == nil { t.Fatalf("expected error for CA without certificates") }
    if _, err := (Options{CAFile: filepath.Join(dir, "missing.pem")}).Client(); err == nil { t.Fatalf("expected error for missing CA") }
    if _, err := (Options{CertFile: bad}).Client(); err == nil { t.Fatalf("expected error for cert without key") }
}

func TestServer(t *testing.T) {
    certFile, keyFile := writeSelfSigned(t, t.TempDir())

    if cfg, err := (Options{}).Server(); err != nil || cfg != nil { t.Fatalf("disabled: got %v, %v", cfg, err) }
    if _, err := (Options{Enable: true, CertFile: certFile}).Server(); err == nil { t.Fatalf("expected error without key") }

    cfg, err := Options{CertFile: certFile, KeyFile: keyFile}.Server()
    if err != nil { t.Fatalf("server: %v", err) }
    if cfg.ClientAuth != tls.NoClientCert { t.Fatalf("client auth without CA: %v", cfg.ClientAuth) }

    cfg, err = Options{CertFile: certFile, KeyFile: keyFile, CAFile: certFile}.Server()
    if err != nil { t.Fatalf("server with CA: %v", err) }
    if cfg.ClientAuth != tls.RequireAndVerifyClientCert || cfg.ClientCAs == nil { t.Fatalf("mutual TLS not configured") }
}
