package web

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_InMemory(t *testing.T) {
	s, err := NewSettings("", DefaultProperties()...)
	require.NoError(t, err)

	assert.False(t, s.Effective(ServiceSetting), "default is off")
	_, ok := s.Override(ServiceSetting)
	assert.False(t, ok)

	require.NoError(t, s.Set(ServiceSetting, Override{Status: StatusDraft, Value: true}))
	assert.False(t, s.Effective(ServiceSetting), "draft override is not in force")

	require.NoError(t, s.Set(ServiceSetting, Override{Status: StatusActive, Value: true}))
	assert.True(t, s.Effective(ServiceSetting))

	require.NoError(t, s.Set(ServiceSetting, Override{Status: StatusActive, Value: false}))
	assert.False(t, s.Effective(ServiceSetting))

	// same value twice leaves the same state
	require.NoError(t, s.Set(ServiceSetting, Override{Status: StatusActive, Value: false}))
	assert.False(t, s.Effective(ServiceSetting))
}

func TestSettings_Errors(t *testing.T) {
	s, err := NewSettings("", DefaultProperties()...)
	require.NoError(t, err)

	err = s.Set("gcb_nope", Override{Status: StatusActive})
	require.ErrorIs(t, err, ErrUnknownSetting)

	err = s.Set(ServiceSetting, Override{Status: "inactive"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid status "inactive"`)

	assert.False(t, s.Effective("gcb_nope"))
}

func TestSettings_Properties(t *testing.T) {
	s, err := NewSettings("", Property{Name: "b"}, Property{Name: "a", Default: true})
	require.NoError(t, err)
	props := s.Properties()
	require.Len(t, props, 2)
	assert.Equal(t, "a", props[0].Name)
	assert.Equal(t, "b", props[1].Name)
	assert.True(t, s.Effective("a"))

	p, ok := s.Property("b")
	require.True(t, ok)
	assert.False(t, p.Default)
}

func TestSettings_Persisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.yml")

	s, err := NewSettings(path, DefaultProperties()...)
	require.NoError(t, err, "missing file is not an error")
	require.NoError(t, s.Set(ServiceSetting, Override{Status: StatusActive, Value: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gcb_gql_service_enabled:")
	assert.Contains(t, string(data), "status: active")
	assert.Contains(t, string(data), "value: true")

	reopened, err := NewSettings(path, DefaultProperties()...)
	require.NoError(t, err)
	assert.True(t, reopened.Effective(ServiceSetting))
}

func TestSettings_SetFailedSaveKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	s, err := NewSettings(path, DefaultProperties()...)
	require.NoError(t, err)
	require.NoError(t, s.Set(ServiceSetting, Override{Status: StatusActive, Value: false}))

	// a directory in place of the file makes the rename fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o750))

	err = s.Set(ServiceSetting, Override{Status: StatusActive, Value: true})
	require.Error(t, err)
	assert.False(t, s.Effective(ServiceSetting), "failed save must not change the value in force")
	o, ok := s.Override(ServiceSetting)
	require.True(t, ok)
	assert.Equal(t, Override{Status: StatusActive, Value: false}, o)
}

func TestSettings_ReloadSkipsUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	yml := "overrides:\n  gcb_gql_service_enabled:\n    status: active\n    value: true\n  gcb_removed:\n    status: active\n    value: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	s, err := NewSettings(path, DefaultProperties()...)
	require.NoError(t, err)
	assert.True(t, s.Effective(ServiceSetting))
	_, ok := s.Override("gcb_removed")
	assert.False(t, ok)
}

func TestSettings_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("overrides: [not, a, map"), 0o600))

	_, err := NewSettings(path, DefaultProperties()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse settings")
}

func TestSettings_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yml")
	s, err := NewSettings(path, DefaultProperties()...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// wait for the watcher to pick up writes, the first write may race with registration
	require.Eventually(t, func() bool {
		yml := "overrides:\n  gcb_gql_service_enabled:\n    status: active\n    value: true\n"
		_ = os.WriteFile(path, []byte(yml), 0o600)
		return s.Effective(ServiceSetting)
	}, 5*time.Second, 200*time.Millisecond)

	// an atomic replace is seen as well
	tmp := filepath.Join(dir, ".tmp-settings")
	require.NoError(t, os.WriteFile(tmp, []byte("overrides:\n  gcb_gql_service_enabled:\n    status: draft\n    value: true\n"), 0o600))
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool { return !s.Effective(ServiceSetting) }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSettings_WatchNoFile(t *testing.T) {
	s, err := NewSettings("", DefaultProperties()...)
	require.NoError(t, err)
	require.NoError(t, s.Watch(context.Background()))
}
