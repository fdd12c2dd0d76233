package voice

import "sort"

// DefaultLanguage is used whenever a language has no catalog entry.
const DefaultLanguage = "en-IN"

// Templates holds the phrasing for one language.
type Templates struct {
	Greeting           func(name string) string
	Reminder           func(medicine, dosage string) string
	ColorLabel         string
	ShapeLabel         string
	InstructionsPrefix string
	TestMessage        string
}

var catalog = map[string]Templates{
	"en-IN": {
		Greeting: func(name string) string { return "Hello " + name },
		Reminder: func(medicine, dosage string) string {
			return "It's time to take your medicine: " + medicine + ", " + dosage
		},
		ColorLabel:         "Color",
		ShapeLabel:         "Shape",
		InstructionsPrefix: "Instructions: ",
		TestMessage:        "Hello! This is a test of the voice reminder system.",
	},
	"hi-IN": {
		Greeting: func(name string) string { return "नमस्ते " + name },
		Reminder: func(medicine, dosage string) string {
			return "अब आपकी दवा लेने का समय हो गया है: " + medicine + ", " + dosage
		},
		ColorLabel:         "रंग",
		ShapeLabel:         "आकार",
		InstructionsPrefix: "निर्देश: ",
		TestMessage:        "नमस्ते! यह वॉइस रिमाइंडर सिस्टम का टेस्ट है।",
	},
	"te-IN": {
		Greeting: func(name string) string { return "హలో " + name },
		Reminder: func(medicine, dosage string) string {
			return "ఇప్పుడు మీ ఔషధం తీసుకునే సమయం వచ్చింది: " + medicine + ", " + dosage
		},
		ColorLabel:         "రంగు",
		ShapeLabel:         "ఆకారం",
		InstructionsPrefix: "సూచనలు: ",
		TestMessage:        "హలో! ఇది వాయిస్ రిమైండర్ సిస్టమ్ టెస్ట్.",
	},
	"ta-IN": {
		Greeting: func(name string) string { return "வணக்கம் " + name },
		Reminder: func(medicine, dosage string) string {
			return "இப்போது உங்கள் மருந்து எடுத்துக்கொள்ள வேண்டிய நேரம்: " + medicine + ", " + dosage
		},
		ColorLabel:         "நிறம்",
		ShapeLabel:         "வடிவம்",
		InstructionsPrefix: "வழிமுறைகள்: ",
		TestMessage:        "வணக்கம்! இது குரல் நினைவூட்டல் அமைப்பின் சோதனை.",
	},
	"kn-IN": {
		Greeting: func(name string) string { return "ನಮಸ್ಕಾರ " + name },
		Reminder: func(medicine, dosage string) string {
			return "ಈಗ ನಿಮ್ಮ ಔಷಧಿ ತೆಗೆದುಕೊಳ್ಳುವ ಸಮಯ: " + medicine + ", " + dosage
		},
		ColorLabel:         "ಬಣ್ಣ",
		ShapeLabel:         "ಆಕಾರ",
		InstructionsPrefix: "ಸೂಚನೆಗಳು: ",
		TestMessage:        "ನಮಸ್ಕಾರ! ಇದು ಧ್ವನಿ ನೆನಪಿಸಿಕೊಳ್ಳುವಿಕೆ ವ್ಯವಸ್ಥೆಯ ಪರೀಕ್ಷೆ.",
	},
	"ml-IN": {
		Greeting: func(name string) string { return "ഹലോ " + name },
		Reminder: func(medicine, dosage string) string {
			return "ഇപ്പോൾ നിങ്ങളുടെ മരുന്ന് കഴിക്കാനുള്ള സമയം: " + medicine + ", " + dosage
		},
		ColorLabel:         "നിറം",
		ShapeLabel:         "ആകൃതി",
		InstructionsPrefix: "നിർദ്ദേശങ്ങൾ: ",
		TestMessage:        "ഹലോ! ഇത് വോയ്സ് റിമൈൻഡർ സിസ്റ്റത്തിന്റെ ടെസ്റ്റാണ്.",
	},
}

// Lookup returns the templates for lang. On a miss it returns the
// DefaultLanguage templates and false.
func Lookup(lang string) (Templates, bool) {
	if t, ok := catalog[lang]; ok {
		return t, true
	}
	return catalog[DefaultLanguage], false
}

// Languages lists the catalog's language codes in sorted order.
func Languages() []string {
	langs := make([]string, 0, len(catalog))
	for code := range catalog {
		langs = append(langs, code)
	}
	sort.Strings(langs)
	return langs
}

// Supported reports whether lang has its own catalog entry.
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}
