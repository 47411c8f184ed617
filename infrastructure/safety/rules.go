package safety

import (
	"regexp"

	"github.com/iam-archie/school-chatbot/internal/domain"
)

// Keyword tables. Matching is a case-insensitive substring test, so short
// entries also hit longer words containing them.
var (
	injectionPatterns = []string{
		"ignore all previous",
		"ignore previous instructions",
		"disregard all",
		"forget your instructions",
		"you are now",
		"new instructions",
		"system prompt",
		"reveal your prompt",
		"bypass safety",
		"jailbreak",
	}

	sexualKeywords = []string{
		"sex", "sexual", "porn", "xxx", "nude", "naked", "adult content",
		"erotic", "seductive", "intimate", "kiss", "boyfriend", "girlfriend",
		"dating", "romance", "love affair", "sexy", "hot girl", "hot boy",
		"adult", "mature content", "nsfw", "18+", "explicit",
	}

	violenceKeywords = []string{
		"kill", "murder", "death", "die", "blood", "gore", "violent", "fight",
		"attack", "weapon", "gun", "knife", "bomb", "terrorist", "shoot",
		"stab", "hurt", "harm", "beat", "punch", "assault", "suicide",
		"self-harm", "cut myself", "end my life",
	}

	drugsKeywords = []string{
		"drug", "drugs", "alcohol", "beer", "wine", "whiskey", "vodka",
		"smoke", "smoking", "cigarette", "weed", "marijuana", "cocaine",
		"heroin", "addiction", "drunk", "intoxicated", "high on",
	}

	bullyingKeywords = []string{
		"stupid", "idiot", "dumb", "loser", "ugly", "fat", "hate you",
		"kill yourself", "nobody likes you", "worthless", "useless", "retard",
		"freak", "weirdo", "disgusting",
	}

	cheatingKeywords = []string{
		"hack", "cheat", "steal", "copy answers", "exam answers",
		"test answers", "homework answers", "bypass", "break rules",
		"skip school", "bunk class", "forge", "fake",
	}
)

// rule pairs a keyword table with the message shown when it matches.
type rule struct {
	category domain.SafetyCategory
	keywords []string
	reason   string
}

// Messages shown to students for rejected questions.
const (
	ReasonInjection = "Invalid request detected. Please ask a proper question."
	ReasonSexual    = "This question is not appropriate for students. Please ask questions related to your studies."
	ReasonViolence  = "Questions about violence are not allowed. Please ask educational questions."
	ReasonDrugs     = "This topic is not appropriate for students. Please ask study-related questions."
	ReasonBullying  = "Please be respectful! Unkind words are not allowed. Ask nicely!"
	ReasonCheating  = "I can't help with cheating. I'm here to help you learn!"
	ReasonSafeInput = "Query is safe"

	ReasonOutputInappropriate = "Response contained inappropriate content"
	ReasonOutputViolent       = "Response contained violent content"
	ReasonOutputUnkind        = "Response contained unkind language"
	ReasonSafeOutput          = "Output is safe"
)

// inputRules are evaluated in order; the first match wins.
var inputRules = []rule{
	{domain.CategoryInjection, injectionPatterns, ReasonInjection},
	{domain.CategorySexual, sexualKeywords, ReasonSexual},
	{domain.CategoryViolence, violenceKeywords, ReasonViolence},
	{domain.CategoryDrugs, drugsKeywords, ReasonDrugs},
	{domain.CategoryBullying, bullyingKeywords, ReasonBullying},
	{domain.CategoryCheating, cheatingKeywords, ReasonCheating},
}

// outputRules screen generated answers. Injection and cheating do not
// apply to model output.
var outputRules = []rule{
	{domain.CategorySexual, sexualKeywords, ReasonOutputInappropriate},
	{domain.CategoryViolence, violenceKeywords, ReasonOutputViolent},
	{domain.CategoryDrugs, drugsKeywords, ReasonOutputInappropriate},
	{domain.CategoryBullying, bullyingKeywords, ReasonOutputUnkind},
}

// piiPattern is one redaction regex and its placeholder.
type piiPattern struct {
	name        string
	re          *regexp.Regexp
	placeholder string
}

// Redaction runs in this order over the original text.
var piiPatterns = []piiPattern{
	{
		name:        "email",
		re:          regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
		placeholder: "[EMAIL_PROTECTED]",
	},
	{
		name:        "phone",
		re:          regexp.MustCompile(`(?i)\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		placeholder: "[PHONE_PROTECTED]",
	},
	{
		name:        "address",
		re:          regexp.MustCompile(`(?i)\d+\s+[\w\s]+(?:street|st|avenue|ave|road|rd|lane|ln|drive|dr)\b`),
		placeholder: "[ADDRESS_PROTECTED]",
	},
	{
		name:        "aadhaar",
		re:          regexp.MustCompile(`(?i)\b\d{4}\s?\d{4}\s?\d{4}\b`),
		placeholder: "[AADHAAR_PROTECTED]",
	},
}
