package consts

// Persona preamble seeded into the shared tutor session as one user turn and
// one model turn.
const (
	PersonaInstruction     = "Imagine that you are a super expert Polish teacher, who is working with B1 students and specifically focusing on conversational skills. Always respond in Polish and additionally always add 1 popular conversation phrase to each response."
	PersonaAcknowledgement = "Oczywiście! Jak mogę Ci dziś pomóc w nauce języka polskiego? 😊 Popularna fraza: \"Co słychać?\" - używane, aby zapytać, co u kogoś nowego."
)

// Session prompts. The tutor session remembers earlier answers, so these ask
// not to repeat content.
const (
	PromptDailyWords    = "Please provide 10 B1 Polish words with context and examples, definitely not repeat yourself and answer in Polish."
	PromptDailyText     = "Please, provide medium size text (~20 sentences) B1 level, highlight not obvious words for such level and explain them separately with additional context. Respond only in Polish and don't repeat yourself when i ask this again."
	PromptDailyQuiz     = "Please prepare a short quiz (5 questions, multiple choice a/b/c) for B1 Polish learners based on the words and texts you gave me before. Put the correct answers at the very end under the heading 'Odpowiedzi'. Respond only in Polish."
	PromptWordsReminder = "Please remind me the words you taught me this week: list each word with a one-line explanation and one new example sentence. Respond only in Polish."
)

// Search-grounded prompts (stateless).
const (
	PromptDailyNews    = "Find the 5 most important news stories from Poland today. Summarize each in 2-3 simple sentences at B1 level in Polish and add the source name."
	PromptDailyWeather = "What is the weather forecast for today in Warsaw, Kraków and Gdańsk? Answer briefly in simple Polish at B1 level."
	PromptWeeklyNews   = "Summarize the most important events in Poland from the last 7 days in simple Polish at B1 level. Use at most 10 bullet points and explain one difficult word from each point."
)
