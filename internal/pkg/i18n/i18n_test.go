package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogs(t *testing.T) {
	require.NoError(t, LoadEmbedded())

	assert.Equal(t, "New Access Request", Translate("en", "ACCESS_REQUESTED_TITLE"))
	assert.Equal(t, "Permintaan Akses Baru", Translate("id", "ACCESS_REQUESTED_TITLE"))
	assert.True(t, HasLocale("id"))

	// Unknown locale falls back to English, unknown key returns the key.
	assert.Equal(t, "New Level Unlocked!", Translate("fr", "ACCESS_GRANTED_TITLE"))
	assert.Equal(t, "NON_EXISTENT_KEY", Translate("id", "NON_EXISTENT_KEY"))
}

func TestFormat(t *testing.T) {
	require.NoError(t, LoadEmbedded())

	msg := Format("en", "ACCESS_REQUESTED_MESSAGE", map[string]string{
		"student_name": "Ana",
		"level_title":  "Level 3",
	})
	assert.Equal(t, "Ana has requested access to Level 3", msg)

	assert.Equal(t, "Request access to Level 1",
		Format("en", "ACCESS_REQUEST_DEFAULT_MESSAGE", map[string]string{"level_title": "Level 1"}))
}

func TestLoadTranslationsRejectsBadYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"loc/xx/notifications.yaml": &fstest.MapFile{Data: []byte("NOTIFICATIONS: [unclosed")},
	}
	err := LoadTranslations(fsys, "loc")
	assert.Error(t, err)
}
