package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		locale string
		want   language.Tag
	}{
		{"", language.English},
		{"en", language.English},
		{"en-US", language.English},
		{"ru", language.Russian},
		{"ru_RU.UTF-8", language.Russian},
		{"de-DE", language.English},
		{"not a locale!", language.English},
	}
	for _, tc := range cases {
		t.Run(tc.locale, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(tc.locale))
		})
	}
}

func TestCatalog_Get(t *testing.T) {
	en := New("en")
	assert.Equal(t, "No flash", en.Get(NoFlashTitle))
	assert.Equal(t, "Exit", en.Get(Exit))

	ru := New("ru_RU")
	assert.Equal(t, "Нет вспышки", ru.Get(NoFlashTitle))
	assert.Equal(t, "Выход", ru.Get(Exit))
}

func TestCatalog_FormatArgs(t *testing.T) {
	en := New("en")
	assert.Equal(t, "The flash stopped responding: timeout", en.Get(ErrorMessage, "timeout"))
}

func TestCatalog_AllKeysTranslated(t *testing.T) {
	for key := range translations[language.English] {
		_, ok := translations[language.Russian][key]
		assert.True(t, ok, "missing ru translation for %s", key)
	}
}
