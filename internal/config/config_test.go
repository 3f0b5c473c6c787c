package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: s3cret
workflow:
  separate_coordinator_gate: true
  default_duration: 90m
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Driver != "memory" || cfg.JWT.Secret != "s3cret" {
		t.Fatalf("file values not applied: %+v", cfg.Database)
	}
	if !cfg.Workflow.SeparateCoordinatorGate {
		t.Fatalf("expected coordinator gate enabled")
	}
	if cfg.DefaultDuration() != 90*time.Minute {
		t.Fatalf("DefaultDuration = %v", cfg.DefaultDuration())
	}
	if cfg.Server.Port != "8080" || cfg.Scheduler.SweepCron == "" {
		t.Fatalf("defaults missing: port=%q sweep=%q", cfg.Server.Port, cfg.Scheduler.SweepCron)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: memory\njwt:\n  secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("DB_TX_RETRIES", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Fatalf("JWT secret = %q, want env value", cfg.JWT.Secret)
	}
	if cfg.Scheduler.Enabled {
		t.Fatalf("scheduler should be disabled by env")
	}
	if cfg.Database.TxRetries != 7 {
		t.Fatalf("tx retries = %d", cfg.Database.TxRetries)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"missing secret": "database:\n  driver: memory\n",
		"bad driver":     "database:\n  driver: sqlite\njwt:\n  secret: x\n",
		"bad duration":   "database:\n  driver: memory\njwt:\n  secret: x\nworkflow:\n  default_duration: soon\n",
		"bad timezone":   "database:\n  driver: memory\njwt:\n  secret: x\nworkflow:\n  timezone: Mars/Olympus\n",
		"smtp no host":   "database:\n  driver: memory\njwt:\n  secret: x\nsmtp:\n  enabled: true\n",
	}
	for name, body := range cases {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSMTPRecipients(t *testing.T) {
	cfg := &Config{}
	cfg.SMTP.Recipients = " registrar@example.edu, ,dean@example.edu "
	got := cfg.SMTPRecipients()
	if len(got) != 2 || got[0] != "registrar@example.edu" || got[1] != "dean@example.edu" {
		t.Fatalf("recipients = %v", got)
	}
}
