package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestFileManager_GetOrCreateCertificate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	m := NewFileManager(dir, nil, "esparrago.local", "192.168.1.20")

	exists, err := m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists)

	cert, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	first := leaf(t, cert)

	assert.Equal(t, Organization, first.Subject.Organization[0])
	for _, h := range []string{"localhost", "esparrago.local", "127.0.0.1", "192.168.1.20"} {
		assert.NoError(t, first.VerifyHostname(h), h)
	}

	info, err := os.Stat(filepath.Join(dir, "server.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A valid stored certificate is reused.
	again, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.Equal(t, first.SerialNumber, leaf(t, again).SerialNumber)
}

func TestFileManager_Regenerates(t *testing.T) {
	tests := []struct {
		change func(t *testing.T, dir string, m *FileManager)
		name   string
	}{
		{
			name: "corrupt files",
			change: func(t *testing.T, dir string, _ *FileManager) {
				t.Helper()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "server.crt"), []byte("basura"), 0o600))
			},
		},
		{
			name: "close to expiry",
			change: func(_ *testing.T, _ string, m *FileManager) {
				m.now = func() time.Time { return time.Now().Add(Validity - 24*time.Hour) }
			},
		},
		{
			name: "new host",
			change: func(_ *testing.T, _ string, m *FileManager) {
				m.hosts = append(m.hosts, "otra.local")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			m := NewFileManager(dir, nil)
			original, err := m.GetOrCreateCertificate()
			require.NoError(t, err)

			tt.change(t, dir, m)
			renewed, err := m.GetOrCreateCertificate()
			require.NoError(t, err)
			assert.NotEqual(t, original.Certificate[0], renewed.Certificate[0])
		})
	}
}
