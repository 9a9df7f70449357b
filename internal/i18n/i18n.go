package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"
)

// DefaultLocale 无法识别时使用的语言
const DefaultLocale = LocaleEN

const (
	localeQueryKey  = "lang"
	localeHeaderKey = "X-Locale"
	localeCtxKey    = "locale"
)

var (
	supportedTags = []language.Tag{
		language.AmericanEnglish,
		language.SimplifiedChinese,
		language.TraditionalChinese,
	}
	tagLocales = map[language.Tag]string{
		language.AmericanEnglish:    LocaleEN,
		language.SimplifiedChinese:  LocaleZH,
		language.TraditionalChinese: LocaleTW,
	}
	matcher = language.NewMatcher(supportedTags)
)

// ResolveLocale 解析请求语言：query lang > X-Locale > Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if cached, ok := c.Get(localeCtxKey); ok {
		if locale, ok := cached.(string); ok && locale != "" {
			return locale
		}
	}
	locale := ""
	for _, raw := range []string{c.Query(localeQueryKey), c.GetHeader(localeHeaderKey)} {
		if strings.TrimSpace(raw) != "" {
			locale = NormalizeLocale(raw)
			break
		}
	}
	if locale == "" {
		locale = NormalizeLocale(c.GetHeader("Accept-Language"))
	}
	c.Set(localeCtxKey, locale)
	return locale
}

// NormalizeLocale 将任意语言标签或 Accept-Language 值归一为支持的语言
func NormalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return tagLocales[supportedTags[index]]
}

// T 翻译消息键，缺失时回退默认语言，再回退为键本身
func T(locale, key string) string {
	if msg, ok := lookup(locale, key); ok {
		return msg
	}
	if msg, ok := lookup(DefaultLocale, key); ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化消息
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func lookup(locale, key string) (string, bool) {
	table, ok := messages[locale]
	if !ok {
		return "", false
	}
	msg, ok := table[key]
	return msg, ok
}
