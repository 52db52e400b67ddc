package models

import "strconv"

// Choice is one entry of a closed, bilingual choice set.
type Choice struct {
	Code string
	EN   string
	AM   string
}

type ChoiceSet []Choice

// Label returns the label for code in lang, or the code itself when unknown.
func (cs ChoiceSet) Label(code, lang string) string {
	for _, c := range cs {
		if c.Code == code {
			if lang == LangAmharic {
				return c.AM
			}
			return c.EN
		}
	}
	return code
}

func (cs ChoiceSet) Contains(code string) bool {
	for _, c := range cs {
		if c.Code == code {
			return true
		}
	}
	return false
}

func (cs ChoiceSet) Codes() []string {
	codes := make([]string, len(cs))
	for i, c := range cs {
		codes[i] = c.Code
	}
	return codes
}

var AgeRanges = ChoiceSet{
	{"U15", "Under 15", "ከ15 ዓመት በታች"},
	{"A15_19", "15–19", "15–19"},
	{"A20_24", "20–24", "20–24"},
	{"A25_34", "25–34", "25–34"},
	{"A35_44", "35–44", "35–44"},
	{"O45", "45+", "ከ45 ዓመት በላይ"},
}

var Genders = ChoiceSet{
	{"F", "Female", "ሴት"},
	{"M", "Male", "ወንድ"},
}

var InterestAreas = ChoiceSet{
	{"CONTRACEPTION", "Contraception", "የወሊድ መቆጣጠሪያ"},
	{"MENSTRUATION", "Menstruation", "የወር አበባ"},
	{"PREGNANCY", "Pregnancy", "እርግዝና"},
	{"STI_HIV", "STIs & HIV", "አባላዘር በሽታዎች (STIs) እና ኤችአይቪ"},
	{"CONSENT_REL", "Consent & Healthy Relationships", "ስምምነት እና ጤናማ ግንኙነት"},
	{"EMERGENCY", "Emergency Support", "የድንገተኛ ጊዜ ድጋፍ"},
	{"EXPLORING", "Just exploring", "ዝም ብዬ ማሰስ"},
}

// DefaultRegion is used whenever a location cannot be resolved.
const (
	DefaultRegion    = "ADDIS_ABABA"
	DefaultLatitude  = 9.0307
	DefaultLongitude = 38.7407
)

var Regions = ChoiceSet{
	{"ADDIS_ABABA", "Addis Ababa City Administration", "አዲስ አበባ ከተማ አስተዳደር"},
	{"AFAR", "Afar Region", "አፋር ክልል"},
	{"AMHARA", "Amhara Region", "አማራ ክልል"},
	{"BENISHANGUL", "Benishangul-Gumuz Region", "ቤኒሻንጉል ጉሙዝ ክልል"},
	{"CENTRAL_ETH", "Central Ethiopia Region", "የማዕከላዊ ኢትዮጵያ ክልል"},
	{"DIRE_DAWA", "Dire Dawa City Administration", "ድሬዳዋ ከተማ አስተዳደር"},
	{"GAMBELA", "Gambela Region", "ጋምቤላ ክልል"},
	{"HARARI", "Harari Region", "ሐረሪ ክልል"},
	{"OROMIA", "Oromia Region", "ኦሮሚያ ክልል"},
	{"SIDAMA", "Sidama Region", "ሲዳማ ክልል"},
	{"SOUTH_ETH", "South Ethiopia Region", "የደቡብ ኢትዮጵያ ክልል"},
	{"SOMALI", "Somali Region", "ሶማሌ ክልል"},
	{"SOUTHWEST", "South West Ethiopia Peoples' Region", "የደቡብ ምዕራብ ኢትዮጵያ ሕዝቦች ክልል"},
	{"TIGRAY", "Tigray Region", "ትግራይ ክልል"},
}

var RatingChoices = ChoiceSet{
	{"VERY_HELPFUL", "👍🏾 Very helpful", "👍🏾 በጣም ጠቃሚ"},
	{"SOMEWHAT_HELPFUL", "🙂Somewhat helpful", "🙂 ትንሽ ጠቃሚ"},
	{"NOT_VERY", "😐Not very helpful", "😐 ያን ያህል ጠቃሚ አይደለም"},
	{"NOT_HELPFUL", "👎🏾 Not helpful at all", "👎🏾 በፍጹም ጠቃሚ አይደለም"},
}

var IntentChoices = ChoiceSet{
	{"ASK_INFO", "Ask for Information", "መረጃ መጠየቅ"},
	{"ASK_ACTION", "Ask for Action/Help", "እርዳታ/እርምጃ መጠየቅ"},
	{"REPORT_INCIDENT", "Report an Incident", "ክስተት ሪፖርት ማድረግ"},
	{"EXPRESS_EMOTION", "Express Emotion", "ስሜት መግለጽ"},
	{"ASK_CONFIDENTIALITY", "Ask for Confidentiality", "ሚስጥራዊነት መጠየቅ"},
	{"SEEK_VALIDATION", "Seek Validation", "ማረጋገጫ መሻት"},
	{"REFUSE_HELP", "Refuse Help", "እርዳታ ማጣት"},
	{"OTHER", "Other", "ሌላ"},
}

var EmotionChoices = ChoiceSet{
	{"FEAR", "Fear", "ፍርሃት"},
	{"SHAME", "Shame", "ውርደት"},
	{"CONFUSION", "Confusion", "ግዞት"},
	{"SADNESS", "Sadness", "ሀዘን"},
	{"ANGER", "Anger", "ቁጣ"},
	{"HELPLESSNESS", "Helplessness", "ስቃይ"},
	{"NEUTRAL", "Neutral", "ገለልተኛ"},
}

var emotionRatingChoices = ChoiceSet{
	{"0", "Not Present", "የለም"},
	{"1", "Mild", "መካከለኛ"},
	{"2", "Strong", "ጠንካራ"},
}

// EmotionRatingLabel maps a 0-2 rating to its English label.
func EmotionRatingLabel(rating int) string {
	return emotionRatingChoices.Label(strconv.Itoa(rating), LangEnglish)
}

var RiskLevelChoices = ChoiceSet{
	{"ABUSE", "Physical/Sexual Abuse", "አካላዊ/ጾታዊ ሁከት"},
	{"DOMESTIC_VIOLENCE", "Domestic Violence", "የቤት ውስጥ ሁከት"},
	{"SELF_HARM", "Self-Harm/Suicide Risk", "እራስን ማጥፋት/ራስን ማጥፋት አደጋ"},
	{"ILLEGAL_ABORTION", "Unsafe/Illegal Abortion", "ደህንነቱ ያልተጠበቀ/ሕገወጥ ፅንስ ማስወረድ"},
	{"SEXUAL_VIOLENCE", "Sexual Violence/Rape", "ጾታዊ ሁከት/መደፈር"},
	{"UNSAFE_PRACTICES", "Unsafe Sexual Practices", "ደህንነቱ ያልተጠበቀ ጾታዊ ባህሪ"},
	{"CRISIS", "Mental Health Crisis", "የአእምሮ ጤና ቀውስ"},
	{"NEUTRAL", "No Risk Detected", "አደጋ አልተገኘም"},
}

var MythChoices = ChoiceSet{
	{"CULTURAL_HYMEN", "Hymen/Virginity Myths", "የባክነት/ቅድስና አፈታሪኮች"},
	{"CULTURAL_MENSTRUATION", "Menstrual Cultural Myths", "የወር አበባ ባህላዊ አፈታሪኮች"},
	{"CULTURAL_FERTILITY", "Fertility/Infertility Myths", "የመውለድ አቅም አፈታሪኮች"},
	{"CULTURAL_PREGNANCY", "Pregnancy Cultural Beliefs", "የእርግዝና ባህላዊ እምነቶች"},
	{"CULTURAL_CONTRACEPTION", "Contraception Cultural Myths", "የወሊድ መቆጣጠሪያ ባህላዊ አፈታሪኮች"},
	{"MEDICAL_CONTRACEPTION", "Contraception Medical Misconceptions", "የወሊድ መቆጣጠሪያ ሕክምናዊ ስህተቶች"},
	{"MEDICAL_STI", "STI/HIV Medical Misconceptions", "የSTI/HIV ሕክምናዊ ስህተቶች"},
	{"MEDICAL_PREGNANCY", "Pregnancy Medical Misconceptions", "የእርግዝና ሕክምናዊ ስህተቶች"},
	{"MEDICAL_ANATOMY", "Anatomy/Biology Misconceptions", "የሰውነት አቀማመጥ ሕክምናዊ ስህተቶች"},
	{"MEDICAL_PUBERTY", "Puberty Medical Misconceptions", "የእድሜ ብስለት ሕክምናዊ ስህተቶች"},
	{"MEDICAL_MENSTRUATION", "Menstruation Medical Misconceptions", "የወር አበባ ሕክምናዊ ስህተቶች"},
	{"NO_MYTH", "No Myth Detected", "አፈታሪክ አልተገኘም"},
}

var MythSeverityChoices = ChoiceSet{
	{"LOW", "Low Impact", "Low Impact"},
	{"MEDIUM", "Medium Impact", "Medium Impact"},
	{"HIGH", "High Impact", "High Impact"},
	{"CRITICAL", "Critical - Potentially Dangerous", "Critical - Potentially Dangerous"},
}
