package markup

import (
	"fmt"
	"strings"
)

// Спецсимволы MarkdownV2. Обратный слеш первым, иначе экранируем собственные слеши
var replacer = strings.NewReplacer(escapePairs(
	`\`, "_", "*", "[", "]", "(", ")", "~", "`", ">",
	"#", "+", "-", "=", "|", "{", "}", ".", "!",
)...)

// Внутри (...) ссылки телеграм требует экранировать только ) и \
var linkReplacer = strings.NewReplacer(`\`, `\\`, ")", `\)`)

func escapePairs(chars ...string) []string {
	pairs := make([]string, 0, len(chars)*2)
	for _, c := range chars {
		pairs = append(pairs, c, `\`+c)
	}

	return pairs
}

// EscapeForMarkdown экранирует текст для parse_mode MarkdownV2
func EscapeForMarkdown(src string) string {
	return replacer.Replace(src)
}

func Bold(src string) string {
	return "*" + EscapeForMarkdown(src) + "*"
}

func Italic(src string) string {
	return "_" + EscapeForMarkdown(src) + "_"
}

// Code - моноширинный кусок, например id статьи
func Code(v any) string {
	return "`" + strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(fmt.Sprint(v)) + "`"
}

// Link - ссылка с текстом. Пустой текст заменяется самим адресом
func Link(text, url string) string {
	if text == "" {
		text = url
	}

	return "[" + EscapeForMarkdown(text) + "](" + linkReplacer.Replace(url) + ")"
}
