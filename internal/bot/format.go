package bot

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/linkshelf/internal/botkit/markup"
	"github.com/kovalyov-valentin/linkshelf/internal/model"
)

// Короткая карточка статьи для списков
func formatArticle(a model.Article) string {
	var b strings.Builder

	b.WriteString(markup.Code(a.ID) + " ")
	if a.Starred {
		b.WriteString("⭐ ")
	}
	if a.Status == model.StatusUnread {
		b.WriteString("🆕 ")
	}
	b.WriteString(markup.Bold(a.Title) + "\n")

	meta := []string{a.Source, string(a.Category), a.Date}
	if a.Rating > 0 {
		meta = append(meta, strings.Repeat("★", a.Rating))
	}
	b.WriteString(markup.EscapeForMarkdown(strings.Join(lo.Filter(meta, func(s string, _ int) bool { return s != "" }), " · ")))

	if len(a.Tags) > 0 {
		b.WriteString("\n" + markup.EscapeForMarkdown(formatTags(a.Tags)))
	}

	return b.String()
}

// Полная карточка для /open
func formatArticleFull(a model.Article, collections []model.Collection) string {
	lines := []string{formatArticle(a), markup.Link(model.Domain(a.URL), a.URL)}

	if a.Summary != "" {
		lines = append(lines, "", markup.EscapeForMarkdown(a.Summary))
	}
	if len(a.Keywords) > 0 {
		lines = append(lines, "", markup.Italic(strings.Join(a.Keywords, ", ")))
	}

	names := lo.FilterMap(collections, func(c model.Collection, _ int) (string, bool) {
		return c.Name, a.InCollection(c.ID)
	})
	if len(names) > 0 {
		lines = append(lines, "📁 "+markup.EscapeForMarkdown(strings.Join(names, ", ")))
	}
	if a.Memo != "" {
		lines = append(lines, "📝 "+markup.EscapeForMarkdown(a.Memo))
	}

	return strings.Join(lines, "\n")
}

func formatTags(tags []string) string {
	return strings.Join(lo.Map(tags, func(t string, _ int) string { return "#" + t }), " ")
}

func formatCollection(c model.Collection, count int) string {
	return fmt.Sprintf(
		"%s %s %s \\(%d\\)",
		markup.Code(c.ID),
		markup.Bold(c.Name),
		markup.EscapeForMarkdown(c.Color),
		count,
	)
}

func formatList(header string, items []string) string {
	if len(items) == 0 {
		return markup.EscapeForMarkdown(header) + "\n\n" + markup.EscapeForMarkdown("Nothing here yet.")
	}

	return markup.EscapeForMarkdown(header) + "\n\n" + strings.Join(items, "\n\n")
}
