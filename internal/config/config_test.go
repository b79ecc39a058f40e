package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: commdesk
  env: production
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: commdesk
  password: secret
  name: commdesk
  ssl_mode: require
mailbox:
  enabled: true
  type: imaps
  host: mail.internal
  port: 993
  poll_interval: 2m
comm:
  reply_domain: comm.example.com
`)
	require.NoError(t, LoadFromFile(path))
	cfg := Get()

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "imaps", cfg.Mailbox.Type)
	assert.Equal(t, 2*time.Minute, cfg.Mailbox.PollInterval)
	assert.Equal(t, "comm.example.com", cfg.Comm.ReplyDomain)
}

func TestGetDSN(t *testing.T) {
	t.Run("postgres keyword form", func(t *testing.T) {
		c := &DatabaseConfig{
			Driver: "postgres", Host: "db", Port: 5432,
			User: "u", Password: "p", Name: "commdesk", SSLMode: "disable",
		}
		assert.Equal(t,
			"host=db port=5432 user=u password=p dbname=commdesk sslmode=disable",
			c.GetDSN())
	})

	t.Run("mysql tcp form", func(t *testing.T) {
		c := &DatabaseConfig{
			Driver: "mysql", Host: "db", Port: 3306,
			User: "u", Password: "p", Name: "commdesk",
		}
		assert.Equal(t, "u:p@tcp(db:3306)/commdesk?parseTime=true", c.GetDSN())
	})

	t.Run("sqlite path with fallback", func(t *testing.T) {
		assert.Equal(t, "/tmp/x.db", (&DatabaseConfig{Driver: "sqlite3", Path: "/tmp/x.db"}).GetDSN())
		assert.Equal(t, "commdesk.db", (&DatabaseConfig{Driver: "sqlite3"}).GetDSN())
	})
}

func TestEffectiveTLSMode(t *testing.T) {
	var c EmailConfig
	assert.Equal(t, "plain", c.EffectiveTLSMode())

	c.SMTP.StartTLS = true
	assert.Equal(t, "starttls", c.EffectiveTLSMode())

	c.SMTP.TLS = true
	assert.Equal(t, "smtps", c.EffectiveTLSMode())
}
