package extract

// DefaultAccessibilityApps seeds the accessibility-extraction allowlist:
// Office, iWork, and a handful of Apple apps with good accessibility tree
// support.
var DefaultAccessibilityApps = []string{
	// Microsoft Office
	"com.microsoft.Word",
	"com.microsoft.Excel",
	"com.microsoft.Powerpoint",
	"com.microsoft.Outlook",
	"com.microsoft.teams2",
	"com.microsoft.onenote.mac",

	// Apple iWork
	"com.apple.iWork.Pages",
	"com.apple.iWork.Numbers",
	"com.apple.iWork.Keynote",

	// Apple apps with good accessibility
	"com.apple.TextEdit",
	"com.apple.Notes",
	"com.apple.mail",
	"com.apple.finder",
	"com.apple.Preview",
	"com.apple.reminders",

	// Communication apps
	"com.tinyspeck.slackmacgap",
}

// DefaultBrowsers seeds the Chrome Native Messaging browser allowlist.
//
// Safari is deliberately absent: it uses Safari Web Extensions, not Chrome
// Native Messaging, so without a Safari extension installed its windows
// would receive no push content at all. Safari falls back to OCR instead.
var DefaultBrowsers = []string{
	"com.google.Chrome",
	"com.google.Chrome.canary",
	"com.brave.Browser",
	"com.microsoft.edgemac",
	"com.vivaldi.Vivaldi",
	"com.operasoftware.Opera",
	"com.arc.browser",
}
