package llm

import "strings"

// SystemPrompt frames every request
const SystemPrompt = "You answer questions strictly from the numbered sources you are given and cite them inline."

// PromptTemplate is the answer instruction template. {question} and {sources}
// are replaced by BuildPrompt.
const PromptTemplate = `Answer the following question based ONLY on the provided sources:

QUESTION: {question}

SOURCES:
{sources}

INSTRUCTIONS:
1. Answer the question directly and concisely based only on the information in the sources.
2. Use numbered citations in square brackets [1], [2], etc. after every statement that uses information from the sources.
3. For YouTube sources, include the timestamp in the citation like [3][02:15] where 02:15 is the timestamp of the relevant information.
4. If the sources don't contain enough information to answer the question, state this clearly.
5. End your answer with a "SOURCES:" section that lists all the sources you cited.
6. For YouTube sources in the SOURCES section, include the title and URL with timestamp of the earliest reference.
7. For web sources, include the title and URL.
8. If you use multiple timestamps from the same video, list the earliest one in the SOURCES section.
`

// BuildPrompt fills the template with the question and the assembled evidence block
func BuildPrompt(question, evidence string) string {
	r := strings.NewReplacer("{question}", question, "{sources}", evidence)
	return r.Replace(PromptTemplate)
}
