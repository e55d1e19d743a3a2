//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestXDGPaths(t *testing.T) {
	dataHome, configHome := t.TempDir(), t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("XDG_CONFIG_HOME", configHome)

	if got, want := defaultDataDir(), filepath.Join(dataHome, "visitlog"); got != want {
		t.Errorf("defaultDataDir = %q, want %q", got, want)
	}
	if got, want := configFilePath(), filepath.Join(configHome, "visitlog", "config.json"); got != want {
		t.Errorf("configFilePath = %q, want %q", got, want)
	}
	if got, want := secretsFilePath(), filepath.Join(dataHome, "visitlog", "secrets.json"); got != want {
		t.Errorf("secretsFilePath = %q, want %q", got, want)
	}
}

func TestFileBackend_Bools(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.SetBool("export.path_style", true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	// A fresh backend rereads the file written above.
	v, ok, err := newPlatformBackend().GetBool("export.path_style")
	if err != nil || !ok || !v {
		t.Errorf("GetBool = %v, %v, %v; want true, true, nil", v, ok, err)
	}

	// Hand-edited files may quote the value.
	if err := os.WriteFile(configFilePath(), []byte(`{"export.path_style":"false","log.level":"debug"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	v, ok, err = newPlatformBackend().GetBool("export.path_style")
	if err != nil || !ok || v {
		t.Errorf("quoted GetBool = %v, %v, %v; want false, true, nil", v, ok, err)
	}
	if _, _, err := newPlatformBackend().GetBool("log.level"); err == nil {
		t.Error("expected error for a non-boolean value")
	}
}

func TestSecretsFile_RoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := (keychainStore{}).Get(keychainService, tokenAccount); err == nil {
		t.Fatal("expected error before anything is stored")
	}
	if err := (keychainStore{}).Set(keychainService, tokenAccount, "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := (keychainStore{}).Get(keychainService, tokenAccount)
	if err != nil || got != "tok-1" {
		t.Errorf("Get = %q, %v; want tok-1", got, err)
	}

	info, err := os.Stat(secretsFilePath())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secrets file mode = %o, want 600", perm)
	}
}
