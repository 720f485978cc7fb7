package ecochat

import (
	"strings"
)

// DefaultPromptTemplate is the stock instruction the assistant ships with, an
// environment-expert persona answering in French. The template is
// configuration, not logic; any instruction with the same placeholders works.
const DefaultPromptTemplate = `Vous êtes un expert utile et informatif qui répond aux questions liés à l'environnement. Assurez-vous de répondre par une phrase complète et comprenant toutes les informations générales pertinentes. Cependant, vous vous adressez à un public non spécialisé, alors assurez-vous de décomposer les concepts compliqués et adoptez un ton amical et conversationnel.

QUESTION : '{query}'
PASSAGE : '{context}'

ANSWER:
`

// sanitizer strips the characters that would break the quoted regions of the
// prompt template. Quotes are removed, newlines become spaces.
var sanitizer = strings.NewReplacer("'", "", `"`, "", "\n", " ")

func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// JoinPassages concatenates retrieved passages in order, each followed by a
// newline, into a single context block.
func JoinPassages(passages []string) string {
	var context strings.Builder

	for _, passage := range passages {
		context.WriteString(passage)
		context.WriteString("\n")
	}

	return context.String()
}

// BuildPrompt interpolates the query and the sanitized context block into the
// template. Deterministic, never fails.
func BuildPrompt(template string, query string, passages []string) string {
	context := Sanitize(JoinPassages(passages))

	replacer := strings.NewReplacer(
		"{query}", query,
		"{context}", context,
	)

	return replacer.Replace(template)
}
