package config

import (
	"testing"
	"time"
)

type envTarget struct {
	Name    string        `env:"T_NAME"`
	Tags    []string      `env:"T_TAGS"`
	Ports   []int         `env:"T_PORTS"`
	Timeout time.Duration `env:"T_TIMEOUT"`
	Ratio   float64       `env:"T_RATIO"`
	Nested  struct {
		Count uint `env:"T_COUNT"`
	}
	untagged string
}

func TestApplyEnvParsesKinds(t *testing.T) {
	t.Setenv("T_NAME", "thesis")
	t.Setenv("T_TAGS", "a, b,,c")
	t.Setenv("T_PORTS", "80,443")
	t.Setenv("T_TIMEOUT", "90s")
	t.Setenv("T_RATIO", "0.25")
	t.Setenv("T_COUNT", "3")

	var target envTarget
	applied, err := applyEnv(&target)
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if len(applied) != 6 {
		t.Fatalf("applied = %v", applied)
	}
	if target.Name != "thesis" || target.Timeout != 90*time.Second || target.Ratio != 0.25 || target.Nested.Count != 3 {
		t.Fatalf("target = %+v", target)
	}
	if len(target.Tags) != 3 || target.Tags[2] != "c" {
		t.Fatalf("tags = %v", target.Tags)
	}
	if len(target.Ports) != 2 || target.Ports[1] != 443 {
		t.Fatalf("ports = %v", target.Ports)
	}
}

func TestApplyEnvReportsTheVariable(t *testing.T) {
	t.Setenv("T_PORTS", "80,https")
	var target envTarget
	_, err := applyEnv(&target)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); len(got) < 7 || got[:7] != "T_PORTS" {
		t.Fatalf("error = %q, want it to name T_PORTS", got)
	}
	if _, err := applyEnv(target); err == nil {
		t.Fatal("non-pointer target accepted")
	}
}
