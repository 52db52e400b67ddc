package services

import (
	"fmt"

	"srh_chat_go_backend/internal/models"
)

// EventKind distinguishes the three kinds of transport input.
type EventKind string

const (
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
	EventMedia    EventKind = "media"
)

// Event is one discrete input from the chat transport. Data carries the
// callback code of a button press.
type Event struct {
	UserID   string    `json:"user_id" binding:"required"`
	Kind     EventKind `json:"kind" binding:"required,oneof=text callback media"`
	Text     string    `json:"text,omitempty"`
	Data     string    `json:"data,omitempty"`
	ClientIP string    `json:"-"`
}

// Button is an inline choice; Data comes back as a callback event.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// OutgoingMessage is one reply. Buttons are inline choices attached to the
// message, Menu is the persistent keyboard of command labels.
type OutgoingMessage struct {
	Text       string     `json:"text"`
	Buttons    [][]Button `json:"buttons,omitempty"`
	Menu       [][]string `json:"menu,omitempty"`
	RemoveMenu bool       `json:"remove_menu,omitempty"`
}

// localized holds one string per supported language.
type localized map[string]string

func (l localized) in(lang string) string {
	if s, ok := l[lang]; ok {
		return s
	}
	return l[models.LangEnglish]
}

const restartCommand = "/start"

// Callback codes. Values are sent as CODE|value.
const (
	cbLanguage       = "LANG"
	cbAge            = "AGE"
	cbGender         = "GENDER"
	cbInterest       = "INTEREST"
	cbRegion         = "REGION"
	cbRating         = "RATING"
	cbLanguageChange = "LANG_CHANGE"
	cbFAQSection     = "FAQ_SECTION"

	cbStartOver        = "START_OVER"
	cbFeedbackSettings = "FEEDBACK_SETTINGS"
	cbFAQBackSections  = "FAQ_BACK_TO_SECTIONS"
	cbFAQBackMenu      = "FAQ_BACK_TO_MENU"

	regionAutoDetect = "AUTO_DETECT"
)

// menuCommand is a label of the persistent menu keyboard.
type menuCommand int

const (
	cmdNone menuCommand = iota
	cmdNewChat
	cmdFAQ
	cmdSettings
	cmdEndChat
	cmdHelp
)

var menuLabels = map[menuCommand]localized{
	cmdNewChat:  {"en": "✨ Start New Chat", "am": "✨ አዲስ ውይይት ጀምር"},
	cmdFAQ:      {"en": "💭 FAQ & Help", "am": "💭 ተደጋጋሚ ጥያቄዎች"},
	cmdSettings: {"en": "⚙️ Settings", "am": "⚙️ ቅንብር"},
	cmdEndChat:  {"en": "🚪 Exit Chat", "am": "🚪 ውይይት ውጣ"},
	cmdHelp:     {"en": "❓ Help", "am": "❓ እርዳታ"},
}

// matchMenuCommand compares text exactly against the labels of lang only.
func matchMenuCommand(text, lang string) menuCommand {
	for cmd, label := range menuLabels {
		if label.in(lang) == text {
			return cmd
		}
	}
	return cmdNone
}

func mainMenu(lang string) [][]string {
	return [][]string{
		{menuLabels[cmdNewChat].in(lang)},
		{menuLabels[cmdFAQ].in(lang), menuLabels[cmdSettings].in(lang)},
		{menuLabels[cmdEndChat].in(lang)},
	}
}

func withMenu(text, lang string) OutgoingMessage {
	return OutgoingMessage{Text: text, Menu: mainMenu(lang)}
}

var (
	msgChooseLanguage = "Please choose your language:\nእባክዎ ቋንቋ ይምረጡ።"

	msgWelcome = localized{
		"en": "Hi there!👋🏾  I'm here to support you with questions about sexual and reproductive health (SRH) — privately, respectfully, and without judgment.\n" +
			"Before we get started, I will ask you some questions to make your experience better without asking for detailed personal information.\n\n" +
			"To ensure the information I provide is suitable, please select your age range.",
		"am": "ሰላም! 👋🏾  እንኳን ደህና መጡ።\n" +
			"ስለ ስነተዋልዶ ጤና (SRH) ጥያቄዎችዎን በሚስጥር፣ በአክብሮትና ያለ ፍረጃ ለመመለስ ዝግጁ ነኝ።\n" +
			"ውይይታችንን ከመጀመራችን በፊት፣ ለርስዎ የተሻለ ተሞክሮ እንዲኖሮት ጥያቄዎችን ልጠይቅዎት። \n" +
			"ምንም አይነት ዝርዝር የግል መረጃ አይጠየቁም።\n\n" +
			"የማቀርብልዎት መረጃ ለእድሜዎ ተስማሚ እንዲሆን፣ የእድሜ ክልልዎን ይምረጡ።",
	}
	msgGenderPrompt   = localized{"en": "What is your gender?", "am": "ፆታዎን ይምረጡ።"}
	msgInterestPrompt = localized{
		"en": "Thanks! What are you here to learn more about today?",
		"am": "አመሰግናለሁ! ዛሬ በየትኛው ርዕስ ዙሪያ መጠየቅ ይፈልጋሉ?",
	}
	msgRegionPrompt = localized{
		"en": "Finally, which region of Ethiopia are you in? This helps us provide region-specific health resources.",
		"am": "በመጨረሻ፣ በኢትዮጵያ የትኛው ክልል ውስጥ ይገኛሉ? ይህ ለክልልዎ ተስማሚ የጤና መረጃዎችን እንድንሰጥዎ ይረዳናል።",
	}
	msgAutoDetectButton = localized{"en": "🌍 Auto-detect my location", "am": "🌍 ቦታዬን በራሱ ይለይ"}
	msgAutoDetected     = localized{
		"en": "📍 Auto-detected: %s\n\nThank you! What is your question for today?",
		"am": "📍 በራሱ ተለይቷል: %s\n\nአመሰግናለሁ! አሁን ጥያቄዎን ሊጠይቁኝ ይችላሉ።",
	}
	msgAutoDetectFailed = localized{
		"en": "📍 Auto-detection unavailable, defaulted to Addis Ababa\n\nThank you! What is your question for today?",
		"am": "📍 በራሱ መለየት አልተቻለም፣ ወደ አዲስ አበባ ተቀምጧል\n\nአመሰግናለሁ! አሁን ጥያቄዎን ሊጠይቁኝ ይችላሉ።",
	}
	msgOnboardingDone = localized{
		"en": "Thank you! What is your question for today?",
		"am": "አመሰግናለሁ! አሁን ጥያቄዎን ሊጠይቁኝ ይችላሉ።",
	}

	msgFeedbackPrompt = localized{
		"en": "I hope that helped! Your feedback helps me improve and support others better. In order to continue please provide us with feedback. How would you rate the answer you just received?",
		"am": "እንደረዳዎት ተስፋ አደርጋለሁ! የእርስዎ አስተያየት ራሴን እንዳሻሽል እና ሌሎችን በተሻለ ሁኔታ እንድረዳ ይረዳኛል። ለመቀጠል እባክዎን አስተያየትዎን ይስጡን። አሁን ያገኙት መልስ እንዴት ነው?",
	}
	msgFeedbackThanks = localized{
		"en": "Thank you for your feedback! If you have another question, just type it below.\n\nYou can continue asking questions below:",
		"am": "ስለ አስተያየትዎ እናመሰግናለን! ሌላ ጥያቄ ካለዎት እባክዎን\n\nከዚህ በታች ጥያቄዎችን መቀጠል ይችላሉ፡",
	}

	msgSettings = localized{
		"en": "⚙️ Choose your preferred language:\n\nNote: This will change the language for all future responses.",
		"am": "⚙️ የሚፈልጉትን ቋንቋ ይምረጡ:\n\nማስታወሻ: ይህ ለወደፊቱ ሁሉም ምላሾች ቋንቋ ይቀይራል።",
	}
	msgLanguageChanged = localized{
		"en": "✅ Language changed to English!\n\nYour profile settings (age, gender, interests) have been preserved. You can continue chatting normally.",
		"am": "✅ ቋንቋ ወደ አማርኛ ተቀይሯል!\n\nየእርስዎ መገለጫ ቅንብሮች (እድሜ፣ ጾታ፣ ፍላጎቶች) ተጠብቀዋል። በመደበኛ ሁኔታ ማውራት መቀጠል ይችላሉ።",
	}
	msgHelp = localized{
		"en": "👋 This is an SRH help bot. Type your question or choose an option from the menu.\n\n" +
			"Use 'Settings' to change your profile, or 'End Chat' to clear your data.",
		"am": "👋 ይህ የSRH እርዳታ ቦት ነው። ጥያቄዎን ያብሩ ወይም ከማውጫው ውስጥ ይምረጡ።\n\n" +
			"'ቅንብር' የሚለውን መገለጫዎን ለመቀየር፣ 'ውይይት ያቁሙ' የሚለውን ውሂብዎን ለመሰረዝ ይጠቀሙ።",
	}
	msgNewChat = localized{
		"en": "💬 Starting a new conversation! Your profile settings are preserved. What would you like to ask?",
		"am": "💬 አዲስ ውይይት ጀምረናል! የእርስዎ መገለጫ ቅንብሮች ተጠብቀዋል። ምን መጠየቅ ይፈልጋሉ?",
	}
	msgEndChat = localized{
		"en": "✅ Your chat session has ended and your data was cleared. Type /start to begin again!",
		"am": "✅ ውይይትዎ ተዘግቷል። መጀመሪያ ለማድረግ /start ይጻፉ!",
	}
	msgBackToMenu = localized{"en": "Back to main menu:", "am": "ወደ ዋናው ማውጫ:"}

	msgFAQSections = localized{
		"en": "📋 **FAQ - Choose a Topic**\n\nPlease select the topic you'd like to learn about:",
		"am": "📋 **ተደጋጋሚ ጥያቄዎች - ርዕስ ይምረጡ**\n\nመማር የሚፈልጉትን ርዕስ ይምረጡ:",
	}
	msgFAQSectionNotFound = "❌ Section not found. Please try again."
	msgFAQBackToMenu      = localized{"en": "🔙 Back to Menu", "am": "🔙 ወደ ማውጫ ተመለስ"}
	msgFAQBackToTopics    = localized{"en": "🔙 Back to Topics", "am": "🔙 ወደ ርዕሶች ተመለስ"}
	msgFAQMainMenu        = localized{"en": "🏠 Main Menu", "am": "🏠 ዋና ማውጫ"}

	msgShortened = localized{
		"en": "\n\n[Shortened. Ask for more if you need it.]",
		"am": "\n\n[መልሱ አጠር ተደርጓል። ተጨማሪ ከፈለጉ ይጠይቁ።]",
	}
	msgShortenedMark = localized{
		"en": "\n\n[Shortened]",
		"am": "\n\n[አጠር ተደርጓል]",
	}
	msgGenericError = localized{
		"en": "Sorry, I couldn't process your request right now. Please try again.",
		"am": "ይቅርታ፣ አሁን ጥያቄዎን መመለስ አልቻልኩም። እባክዎ እንደገና ይሞክሩ።",
	}
	msgMedia = localized{
		"en": "Thanks for your media! I cannot analyze audio, video, or images yet, but you can ask me anything in text.",
		"am": "ስለ የላኩት ሚዲያ (ምስል፣ ድምፅ፣ ቪዲዮ) እናመሰግናለን! አሁን ምስል፣ ድምፅ ወይም ቪዲዮ ማብራሪያ ማድረግ አልችልም፣ ግን በጽሑፍ የሚመጡ ጥያቄዎችን ማስተላለፍ ይችላሉ።",
	}
)

func callbackData(code, value string) string {
	return code + "|" + value
}

func languageButtons(code string) [][]Button {
	return [][]Button{{
		{Label: "English 🇺🇸", Data: callbackData(code, models.LangEnglish)},
		{Label: "አማርኛ 🇪🇹", Data: callbackData(code, models.LangAmharic)},
	}}
}

// choiceButtons lays out one button per row.
func choiceButtons(code string, choices models.ChoiceSet, lang string) [][]Button {
	rows := make([][]Button, len(choices))
	for i, c := range choices {
		rows[i] = []Button{{Label: choices.Label(c.Code, lang), Data: callbackData(code, c.Code)}}
	}
	return rows
}

const maxRegionLabel = 25

// regionButtons puts auto-detect first, then the regions two per row with
// long names shortened.
func regionButtons(lang string) [][]Button {
	rows := [][]Button{{{Label: msgAutoDetectButton.in(lang), Data: callbackData(cbRegion, regionAutoDetect)}}}
	for i := 0; i < len(models.Regions); i += 2 {
		var row []Button
		for _, c := range models.Regions[i:min(i+2, len(models.Regions))] {
			label := []rune(models.Regions.Label(c.Code, lang))
			if len(label) > maxRegionLabel {
				label = append(label[:maxRegionLabel-3], []rune("...")...)
			}
			row = append(row, Button{Label: string(label), Data: callbackData(cbRegion, c.Code)})
		}
		rows = append(rows, row)
	}
	return rows
}

func feedbackMessage(lang string) OutgoingMessage {
	buttons := choiceButtons(cbRating, models.RatingChoices, lang)
	buttons = append(buttons, []Button{{Label: menuLabels[cmdSettings].in(lang), Data: cbFeedbackSettings}})
	return OutgoingMessage{Text: msgFeedbackPrompt.in(lang), Buttons: buttons}
}

func settingsMessage(lang string) OutgoingMessage {
	return OutgoingMessage{Text: msgSettings.in(lang), Buttons: languageButtons(cbLanguageChange), RemoveMenu: true}
}

func autoDetectedText(lang, regionCode string) string {
	return fmt.Sprintf(msgAutoDetected.in(lang), models.Regions.Label(regionCode, lang))
}
