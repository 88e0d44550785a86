package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validS3Config = `
source:
  protocol: imap
  host: mail.example.com
  port: 993
  username: user
  password: secret
  use_tls: true
storage:
  provider: s3
  s3:
    bucket: project-email-ingestion
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validS3Config))
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 15*time.Minute, cfg.Interval())
	require.Equal(t, cfg.Interval(), cfg.Lookback())
	require.Equal(t, "metadata.db", cfg.GetDBPath())
	require.Equal(t, "INBOX", cfg.Source.GetIMAPFolder())
	require.Equal(t, "us-east-1", cfg.Storage.S3.GetRegion())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log_level: debug
interval_minutes: 5
db_path: /var/lib/mailarchive/metadata.db
source:
  protocol: pop3
  host: pop.example.com
  port: 995
storage:
  provider: azure
  azure:
    container: emails
    connection_string: "DefaultEndpointsProtocol=https;AccountName=x;AccountKey=y"
`))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5*time.Minute, cfg.Interval())
	require.Equal(t, "/var/lib/mailarchive/metadata.db", cfg.GetDBPath())
	require.Equal(t, "azure", cfg.Storage.Provider)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "negative interval",
			content: `
interval_minutes: -1
source: {protocol: imap, host: h, port: 993}
storage: {provider: s3, s3: {bucket: b}}
`,
			wantErr: "interval_minutes",
		},
		{
			name: "bad protocol",
			content: `
source: {protocol: smtp, host: h, port: 25}
storage: {provider: s3, s3: {bucket: b}}
`,
			wantErr: "protocol",
		},
		{
			name: "missing host",
			content: `
source: {protocol: imap, port: 993}
storage: {provider: s3, s3: {bucket: b}}
`,
			wantErr: "host",
		},
		{
			name: "unknown provider",
			content: `
source: {protocol: imap, host: h, port: 993}
storage: {provider: ftp}
`,
			wantErr: "provider",
		},
		{
			name: "s3 without bucket",
			content: `
source: {protocol: imap, host: h, port: 993}
storage: {provider: s3}
`,
			wantErr: "bucket",
		},
		{
			name: "azure without connection string",
			content: `
source: {protocol: imap, host: h, port: 993}
storage: {provider: azure, azure: {container: c}}
`,
			wantErr: "connection_string",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
