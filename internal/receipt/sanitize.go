package receipt

import "strings"

// nameSanitizer removes characters that are unsafe to embed in the HTML/JS
// rendering layer downstream.
var nameSanitizer = strings.NewReplacer(
	"&", "",
	`"`, "",
	"'", "",
	"<", "",
	">", "",
	"`", "",
)

// SanitizeName strips unsafe characters from an item name.
// The operation is idempotent: sanitizing an already-sanitized name
// returns it unchanged.
func SanitizeName(name string) string {
	return strings.TrimSpace(nameSanitizer.Replace(name))
}
