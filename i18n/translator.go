package i18n

import "strings"

// Translator retrieves localized messages for rule codes. data provides
// optional metadata to embed in the message (for example, "min" or "field").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "required":
			msg = "必須項目です"
		case "too_short":
			msg = "{min}文字以上で入力してください"
		case "too_long":
			msg = "{max}文字以内で入力してください"
		case "too_small":
			msg = "{min}以上の値を入力してください"
		case "too_big":
			msg = "{max}以下の値を入力してください"
		case "pattern":
			msg = "形式が不正です"
		case "invalid_enum":
			msg = "許可されていない値です"
		case "must_match":
			msg = "{field}と一致しません"
		case "rule_failed":
			msg = "入力が不正です"
		}
	default: // "en"
		switch code {
		case "required":
			msg = "This field is required"
		case "too_short":
			msg = "Must be at least {min} characters"
		case "too_long":
			msg = "Must be at most {max} characters"
		case "too_small":
			msg = "Must be at least {min}"
		case "too_big":
			msg = "Must be at most {max}"
		case "pattern":
			msg = "Invalid format"
		case "invalid_enum":
			msg = "Must be one of the allowed values"
		case "must_match":
			msg = "Must match {field}"
		case "rule_failed":
			msg = "Invalid value"
		}
	}
	if msg == "" {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
