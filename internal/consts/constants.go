package consts

// Bot commands, matched after the "@<handle>" mention. Order matters: the
// router checks them top to bottom and the first hit wins.
const (
	CommandAsk    = "/ask"
	CommandRepeat = "/repeat"
	CommandText   = "/text"
	CommandQuiz   = "/quiz"
	CommandSearch = "/search"
)

// User-facing replies
const (
	HelpMessage           = "Hello, I can respond only for commands I know. They are: /ask, /repeat, /text, /quiz. Also, you could share any image with text with me. Good luck."
	HelpMessageWithSearch = "Hello, I can respond only for commands I know. They are: /ask, /repeat, /text, /quiz, /search. Also, you could share any image with text with me. Good luck."
	GenericFailureMessage = "An error occurred while processing your message."
	PhotoFailureMessage   = "Sorry, something went wrong. Please try again."
	LivenessBody          = "Hello, visitor!"
)

// Sentinel replies returned by the backend adapter when a call fails. They are
// posted as-is, so keep them readable.
const (
	SentinelUserRequest   = "Error: Could not retrieve user request."
	SentinelSearchRequest = "Error: Could not retrieve user search request."
	SentinelDailyWords    = "Error: Could not retrieve 10 words."
	SentinelDailyText     = "Error: Could not retrieve daily text."
	SentinelDailyQuiz     = "Error: Could not retrieve daily quiz."
	SentinelWordsReminder = "Error: Could not retrieve reminders."
	SentinelDailyNews     = "Error: Could not retrieve daily news."
	SentinelDailyWeather  = "Error: Could not retrieve daily weather."
	SentinelWeeklyNews    = "Error: Could not retrieve weekly news."
	SentinelImageAnswer   = "Error: Could not retrieve image description."
	SentinelUpload        = "Error: Could not upload file."
)

// Scratch files
const (
	PhotoExtension = ".jpg"
	PhotoMIMEType  = "image/jpeg"
)

// Default posting times, in the schedule timezone.
const (
	CronDailyWords    = "0 8 * * *"
	CronDailyText     = "0 14 * * *"
	CronDailyQuiz     = "0 19 * * *"
	CronWordsReminder = "0 18 * * SUN"
)
