package admin

import "errors"

var messages = map[string]map[error]string{
	"en": {
		ErrInvalidEmail:       "Invalid email format",
		ErrUnknownUser:        "Access is limited to the administrator",
		ErrInvalidCredentials: "Wrong email or password",
		ErrTooManyRequests:    "Too many attempts. Try again later",
	},
	"pl": {
		ErrInvalidEmail:       "Nieprawidłowy format adresu email",
		ErrUnknownUser:        "Dostęp tylko dla administratora",
		ErrInvalidCredentials: "Nieprawidłowy email lub hasło",
		ErrTooManyRequests:    "Zbyt wiele prób. Spróbuj później",
	},
}

var fallback = map[string]string{
	"en": "Sign-in failed. Check your details",
	"pl": "Błąd logowania. Sprawdź dane",
}

// Message turns a sign-in error into text for the user in lang ("en" when
// the language is not known).
func Message(err error, lang string) string {
	table, ok := messages[lang]
	if !ok {
		lang = "en"
		table = messages[lang]
	}
	for target, msg := range table {
		if errors.Is(err, target) {
			return msg
		}
	}
	return fallback[lang]
}
