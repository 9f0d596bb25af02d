package jira

import (
	"fmt"
	"regexp"
	"strings"
)

// Wiki markup is the rich text format Jira API v2 uses for descriptions
// and comments. The conversions below cover the block and inline forms
// that show up in ticket descriptions; anything unrecognized passes
// through unchanged.

var (
	mdCodeFenceRe  = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)\\n```")
	mdBoldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdStrikeRe     = regexp.MustCompile(`~~([^~]+)~~`)
	mdInlineCodeRe = regexp.MustCompile("`([^`]+)`")
	mdLinkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBulletRe     = regexp.MustCompile(`(?m)^- (.+)$`)
	mdOrderedRe    = regexp.MustCompile(`(?m)^\d+\. (.+)$`)
	mdRuleRe       = regexp.MustCompile(`(?m)^---+$`)

	wikiCodeBlockRe  = regexp.MustCompile(`(?s)\{code(?::(\w+))?\}(.*?)\{code\}`)
	wikiQuoteRe      = regexp.MustCompile(`(?s)\{quote\}(.*?)\{quote\}`)
	wikiInlineCodeRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	wikiBoldRe       = regexp.MustCompile(`\*([^*\n]+)\*`)
	wikiItalicRe     = regexp.MustCompile(`_([^_]+)_`)
	wikiStrikeRe     = regexp.MustCompile(`-([^-\s][^-]*[^-\s])-`)
	wikiLinkRe       = regexp.MustCompile(`\[([^|\]]+)\|([^\]]+)\]`)
	wikiBareLinkRe   = regexp.MustCompile(`\[([^\]|]+)\]`)
	wikiBulletRe     = regexp.MustCompile(`(?m)^\* (.+)$`)
	wikiRuleRe       = regexp.MustCompile(`(?m)^----+$`)
)

// MarkdownToWiki converts Markdown to Jira wiki markup.
func MarkdownToWiki(markdown string) string {
	out := markdown

	// Code fences first so nothing inside them gets rewritten.
	out = mdCodeFenceRe.ReplaceAllStringFunc(out, func(block string) string {
		m := mdCodeFenceRe.FindStringSubmatch(block)
		if m[1] != "" {
			return "{code:" + m[1] + "}\n" + m[2] + "\n{code}"
		}
		return "{code}\n" + m[2] + "\n{code}"
	})

	// Headings: ## Title -> h2. Title.
	for level := 6; level >= 1; level-- {
		re := regexp.MustCompile(`(?m)^` + strings.Repeat("#", level) + ` (.+)$`)
		out = re.ReplaceAllString(out, fmt.Sprintf("h%d. $1", level))
	}

	out = mdBoldRe.ReplaceAllString(out, `*$1*`)
	out = mdStrikeRe.ReplaceAllString(out, `-$1-`)
	out = mdInlineCodeRe.ReplaceAllString(out, `{{$1}}`)
	out = quoteBlocksToWiki(out)
	out = mdLinkRe.ReplaceAllString(out, `[$1|$2]`)
	out = mdBulletRe.ReplaceAllString(out, `* $1`)
	out = mdOrderedRe.ReplaceAllString(out, `# $1`)
	out = mdRuleRe.ReplaceAllString(out, `----`)

	return out
}

// quoteBlocksToWiki wraps runs of "> " lines in {quote} markers.
func quoteBlocksToWiki(text string) string {
	var out []string
	var quoted []string

	flush := func() {
		if len(quoted) > 0 {
			out = append(out, "{quote}", strings.Join(quoted, "\n"), "{quote}")
			quoted = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "> ") {
			quoted = append(quoted, strings.TrimPrefix(line, "> "))
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()

	return strings.Join(out, "\n")
}

// WikiToMarkdown converts Jira wiki markup to Markdown.
func WikiToMarkdown(wiki string) string {
	out := wiki

	// Code blocks first so nothing inside them gets rewritten.
	out = wikiCodeBlockRe.ReplaceAllStringFunc(out, func(block string) string {
		m := wikiCodeBlockRe.FindStringSubmatch(block)
		return "```" + m[1] + "\n" + strings.Trim(m[2], "\n") + "\n```"
	})

	// Quotes before headings, so quoted headings keep their prefix.
	out = wikiQuoteRe.ReplaceAllStringFunc(out, func(block string) string {
		m := wikiQuoteRe.FindStringSubmatch(block)
		lines := strings.Split(strings.Trim(m[1], "\n"), "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n")
	})

	// Numbered lists before headings: "# item" is a list item in wiki
	// markup, not a heading.
	out = wikiOrderedToMarkdown(out)

	for level := 1; level <= 6; level++ {
		re := regexp.MustCompile(fmt.Sprintf(`(?m)^h%d\. (.+)$`, level))
		out = re.ReplaceAllString(out, strings.Repeat("#", level)+` $1`)
	}

	// Inline code before bold: {{x}} must not be mistaken for emphasis.
	out = wikiInlineCodeRe.ReplaceAllString(out, "`$1`")
	out = wikiBoldOutsideLists(out)
	out = wikiItalicRe.ReplaceAllString(out, `*$1*`)
	out = wikiStrikeRe.ReplaceAllString(out, `~~$1~~`)
	out = wikiLinkRe.ReplaceAllString(out, `[$1]($2)`)
	out = wikiBareLinkRe.ReplaceAllStringFunc(out, func(s string) string {
		url := strings.Trim(s, "[]")
		if strings.HasPrefix(url, "http") {
			return "[" + url + "](" + url + ")"
		}
		return s
	})
	out = wikiBulletRe.ReplaceAllString(out, `- $1`)
	out = wikiRuleRe.ReplaceAllString(out, `---`)

	return out
}

// wikiOrderedToMarkdown renumbers "# item" list lines, resetting the
// counter at blank lines.
func wikiOrderedToMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	counter := 0
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "# "):
			counter++
			lines[i] = fmt.Sprintf("%d. %s", counter, strings.TrimPrefix(line, "# "))
		case strings.TrimSpace(line) == "":
			counter = 0
		}
	}
	return strings.Join(lines, "\n")
}

// wikiBoldOutsideLists rewrites *bold* to **bold**, skipping list lines
// where the leading star is a bullet marker.
func wikiBoldOutsideLists(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "- ") {
			continue
		}
		lines[i] = wikiBoldRe.ReplaceAllString(line, `**$1**`)
	}
	return strings.Join(lines, "\n")
}

// RichTextMarkdown renders a description value from either API version as
// Markdown: wiki strings from v2, ADF documents from v3.
func RichTextMarkdown(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case string:
		return WikiToMarkdown(d), nil
	case *ADFDocument:
		return ADFToMarkdown(d)
	default:
		doc, err := decodeADF(v)
		if err != nil {
			return "", err
		}
		return ADFToMarkdown(doc)
	}
}
