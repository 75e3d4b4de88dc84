package bot

import (
	"net/url"
	"strings"
)

const deeplinkPrefix = "hiddify://import/"

// deeplink собирает ссылку импорта подписки для приложения Hiddify.
func deeplink(subURL, displayName string) string {
	if displayName != "" {
		return deeplinkPrefix + subURL + "#" + url.PathEscape(displayName)
	}
	return deeplinkPrefix + subURL
}

// extractSubLink достает ссылку подписки из присланного пользователем
// текста. Принимаются deeplink hiddify://import/<url> и первая
// https-ссылка в тексте. Fragment (имя профиля) отбрасывается, query
// сохраняется.
func extractSubLink(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, deeplinkPrefix); ok {
		text = rest
	} else if idx := strings.Index(text, "https://"); idx >= 0 {
		text = text[idx:]
		if end := strings.IndexAny(text, " \t\n"); end >= 0 {
			text = text[:end]
		}
	} else {
		return "", false
	}

	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	parsed.Fragment = ""
	return parsed.String(), true
}
