package localization_test

import (
	"complaintdesk/backend/internal/localization"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsShippedLocales(t *testing.T) {
	l, err := localization.Default()

	require.NoError(t, err)
	assert.Equal(t, []string{"en", "uk"}, l.Languages())
	assert.Equal(t, "less than a minute", l.GetString("en", "duration.less_than_minute"))
	assert.Equal(t, "менше хвилини", l.GetString("uk", "duration.less_than_minute"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"loc/en.json":    {Data: []byte(`{"greeting":"Hello","only_en":"English only"}`)},
		"loc/uk.json":    {Data: []byte(`{"greeting":"Привіт"}`)},
		"loc/readme.txt": {Data: []byte(`ignored`)},
	}
	l, err := localization.NewLocalizerFS(fsys, "loc")
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "English only", l.GetString("uk", "only_en"), "falls back to English")
	assert.Equal(t, "English only", l.GetString("de", "only_en"), "unknown language falls back to English")
	assert.Equal(t, "missing.key", l.GetString("en", "missing.key"), "unknown key returns the key")
}

func TestNewLocalizerFS_Errors(t *testing.T) {
	_, err := localization.NewLocalizerFS(fstest.MapFS{}, "nope")
	assert.Error(t, err)

	_, err = localization.NewLocalizerFS(fstest.MapFS{"loc/en.json": {Data: []byte(`{broken`)}}, "loc")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	l, err := localization.Default()
	require.NoError(t, err)

	assert.Equal(t, "uk", l.Match("uk-UA,uk;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", l.Match("en-GB"))
	assert.Equal(t, "en", l.Match(""))
	assert.Equal(t, "en", l.Match("fr-FR"))
}
