// Package i18n wraps the gettext catalog used for user-facing messages.
package i18n

import (
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// nolint:gochecknoinits
func init() {
	lang := os.Getenv("LANG")
	if i := strings.IndexAny(lang, ".@"); i != -1 {
		lang = lang[:i]
	}
	if lang == "" {
		lang = "en_US"
	}
	gotext.Configure("/usr/share/locale", lang, "stagefile")
}

// Tr returns msg translated into the configured locale. Messages without a
// translation fall back to fmt-style expansion of msg itself.
func Tr(msg string, vars ...interface{}) string {
	return gotext.Get(msg, vars...)
}
