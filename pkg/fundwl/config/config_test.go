package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Timeout != 10*time.Second || c.Concurrency != 4 || c.Funds != "funds.yaml" || c.Format != "table" {
		t.Errorf("defaults = %+v", c)
	}
	if c.Endpoints.Fundgz != "https://fundgz.1234567.com.cn" {
		t.Errorf("fundgz = %q", c.Endpoints.Fundgz)
	}
	if c.Level() != zerolog.WarnLevel {
		t.Errorf("level = %v", c.Level())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FUNDWL_TIMEOUT", "3s")
	t.Setenv("FUNDWL_ENDPOINTS_PUSH2", "http://127.0.0.1:9000")
	t.Setenv("FUNDWL_LOG_LEVEL", "debug")

	c, err := Load(New())
	if err != nil {
		t.Fatal(err)
	}
	if c.Timeout != 3*time.Second || c.Endpoints.Push2 != "http://127.0.0.1:9000" || c.Level() != zerolog.DebugLevel {
		t.Errorf("config = %+v", c)
	}
	if cc := c.Client(zerolog.Nop()); cc.Push2Base != "http://127.0.0.1:9000" || cc.Timeout != 3*time.Second {
		t.Errorf("client config = %+v", cc)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fundwl.yaml"), []byte("concurrency: 8\nendpoints:\n  fundmob: http://localhost:1/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := New()
	v.AddConfigPath(dir)
	if err := ReadFile(v); err != nil {
		t.Fatal(err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Concurrency != 8 {
		t.Errorf("concurrency = %d", c.Concurrency)
	}
	if got := c.Client(zerolog.Nop()).FundmobURL; got != "http://localhost:1" {
		t.Errorf("fundmob = %q", got)
	}

	missing := New()
	missing.SetConfigName("does-not-exist")
	if err := ReadFile(missing); err != nil {
		t.Errorf("missing config file: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(v *viper.Viper){
		"zero timeout":         func(v *viper.Viper) { v.Set(KeyTimeout, 0) },
		"negative concurrency": func(v *viper.Viper) { v.Set(KeyConcurrency, -1) },
		"fast refresh":         func(v *viper.Viper) { v.Set(KeyRefresh, "100ms") },
		"bad level":            func(v *viper.Viper) { v.Set(KeyLogLevel, "loud") },
		"bad endpoint":         func(v *viper.Viper) { v.Set(KeyFundgz, "fundgz.1234567.com.cn") },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			mutate(v)
			if _, err := Load(v); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}
