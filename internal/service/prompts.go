package service

import (
	"Extensible-Homework-Helper/internal/model"
	"strings"
)

const systemPrompt = "You are a professional English teacher."

const listeningPrompt = "\n" + `Complete the following questions.

Listening audio transcription:
` + "```" + `
{transcription}
` + "```" + `

Questions:
` + "```" + `
{questions}
` + "```" + `

Output format (index starts at 1):
` + "```" + `
[
    {
        "index": 1,
        "kind": "choice",
        "content": "A"
    },
    # other answers
]
` + "```" + `

Output requirements:
1. NO MARKDOWN, NO COMMENTS, ONLY PURE JSON
2. For the groups of questions that lets you fill words/sentences into the blanks inside a whole passage: (1) treat them as "fill-in-blanks" questions, but fill in the letters that represents the words instead of the words themselves. (2) you must not use words/sentences repeatedly. one word/sentence can be used only 0~1 times.
3. There are only two kinds: "choice" and "fill-in-blanks". Treat translations as "fill-in-blanks" questions.
`

const questionsPrompt = "\n" + `Complete the following questions.

Questions:
` + "```" + `
{questions}
` + "```" + `

Output format (index starts at 1):
` + "```" + `
[
    {
        "index": 1,
        "kind": "choice",
        "content": "A"
    },
    {
        "index": 2,
        "kind": "fill-in-blanks",
        "content": "answer to the question"
    },
    # other answers
]
` + "```" + `

Output requirements:
1. NO MARKDOWN, NO COMMENTS, ONLY PURE JSON
2. For the vocabulary part that lets you fill words into the blanks inside a whole passage, treat them as "fill-in-blanks" questions, but fill in the letters that represents the words instead of the words themselves.
3. There are only two kinds: "choice" and "fill-in-blanks". Treat translations as "fill-in-blanks" questions.
`

const translationPrompt = "\n" + `Translate the following sentences from Chinese to English.

SENTENCES:
` + "```" + `
{questions}
` + "```" + `

Output format (index starts at 1):
` + "```" + `
[
    {
        "index": 1,
        "kind": "translation",
        "content": "Hello world!"
    },
    {
        "index": 2,
        "kind": "translation",
        "content": "Another sentence translated."
    },
    # other answers
]
` + "```" + `

Output requirements:
1. NO MARKDOWN, NO COMMENTS, ONLY PURE JSON
2. There is only one kind: "translation".
`

// BuildPrompt selects the template for the homework kind and fills in the
// question text and, for listening homework, the transcription.
func BuildPrompt(kind model.HomeworkKind, text, transcription string, hasAudio bool) string {
	switch {
	case kind == model.KindTranslation:
		return strings.NewReplacer("{questions}", text).Replace(translationPrompt)
	case hasAudio:
		return strings.NewReplacer("{transcription}", transcription, "{questions}", text).Replace(listeningPrompt)
	default:
		return strings.NewReplacer("{questions}", text).Replace(questionsPrompt)
	}
}
