package webserver

import (
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/goatplatform/edge-chat/chat"
)

var codeBlockRegexp = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]+?)```")

// formatMessage renders fenced code blocks as <pre> blocks and escapes everything else,
// preserving line breaks.
func formatMessage(content string) template.HTML {
	var sb strings.Builder
	last := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		sb.WriteString(formatText(content[last:match[0]]))
		language := content[match[2]:match[3]]
		code := strings.TrimSpace(content[match[4]:match[5]])
		fmt.Fprintf(&sb, `<pre class="line-numbers"><code class="language-%s">%s</code></pre>`,
			html.EscapeString(language),
			html.EscapeString(code))
		last = match[1]
	}
	sb.WriteString(formatText(content[last:]))
	return template.HTML(sb.String())
}

func formatText(s string) string {
	s = template.HTMLEscapeString(s)
	return strings.ReplaceAll(s, "\n", "<br>")
}

// messageRole is the css class of a message.
func messageRole(message *chat.MessageView) string {
	if message.FromModel() {
		return "bot"
	}
	return "user"
}
