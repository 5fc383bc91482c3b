package translate

const detectSystemPrompt = "You are a language detection assistant. Respond with only the ISO 639-1 code for the detected language of the user's text (e.g., 'en', 'es', 'fr'). If unsure or if the text is too short/ambiguous, respond with 'und'."

const detectUserPrompt = `Detect the language of the following text: "%s"`

const repeatSystemPrompt = "You are an intent classification assistant. Analyze the user's message. " +
	"If the message clearly indicates the user wants the previous statement to be repeated " +
	"(e.g., they misunderstood, didn't hear well, or explicitly asked for a repeat like 'what did you say?', " +
	"'say that again', '¿puedes repetirlo?', 'no entendí', 'qué', 'what?'), respond with only the word YES. " +
	"Otherwise, respond with only the word NO."

const repeatUserPrompt = `User message in %s: "%s"`

const (
	englishToSpanishPrompt = "Translate the following English text to Spanish. Output only the translation."
	spanishToEnglishPrompt = "Translate the following Spanish text to English. Output only the translation."
)
