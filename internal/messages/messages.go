// Package messages holds the user-facing dialog strings in every
// supported language.
package messages

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	NoFlashTitle       = "no_flash_title"
	NoFlashMessage     = "no_flash_message"
	PermissionTitle    = "permission_title"
	PermissionMessage  = "permission_message"
	UnavailableTitle   = "unavailable_title"
	UnavailableMessage = "unavailable_message"
	ErrorTitle         = "error_title"
	ErrorMessage       = "error_message"
	Exit               = "exit"
	OK                 = "ok"
)

var supported = []language.Tag{language.English, language.Russian}

var translations = map[language.Tag]map[string]string{
	language.English: {
		NoFlashTitle:       "No flash",
		NoFlashMessage:     "This device has no controllable flash. The flashlight cannot work here.",
		PermissionTitle:    "Permission required",
		PermissionMessage:  "Access to the flash device was denied. Grant access and try again.",
		UnavailableTitle:   "Flash unavailable",
		UnavailableMessage: "The flash is in use by another application or could not be opened.",
		ErrorTitle:         "Flash error",
		ErrorMessage:       "The flash stopped responding: %s",
		Exit:               "Exit",
		OK:                 "OK",
	},
	language.Russian: {
		NoFlashTitle:       "Нет вспышки",
		NoFlashMessage:     "На этом устройстве нет управляемой вспышки. Фонарик здесь работать не может.",
		PermissionTitle:    "Нужно разрешение",
		PermissionMessage:  "Доступ к вспышке запрещён. Выдайте разрешение и попробуйте снова.",
		UnavailableTitle:   "Вспышка недоступна",
		UnavailableMessage: "Вспышка занята другим приложением или не открывается.",
		ErrorTitle:         "Ошибка вспышки",
		ErrorMessage:       "Вспышка перестала отвечать: %s",
		Exit:               "Выход",
		OK:                 "ОК",
	},
}

var matcher = language.NewMatcher(supported)

// Catalog renders messages for one locale.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a catalog for the best supported match of locale
// (a BCP 47 tag or POSIX locale like "ru_RU.UTF-8"). English is the fallback.
func New(locale string) *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			_ = b.SetString(tag, key, msg)
		}
	}
	tag := Match(locale)
	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}
}

// Match returns the supported language closest to locale.
func Match(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	for i, r := range locale {
		if r == '.' || r == '@' {
			locale = locale[:i]
			break
		}
	}
	t, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Tag returns the language in use.
func (c *Catalog) Tag() language.Tag { return c.tag }

// Get renders the message for key with optional arguments.
func (c *Catalog) Get(key string, args ...interface{}) string {
	return c.printer.Sprintf(key, args...)
}
