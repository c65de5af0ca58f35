package flow

// Tag identifies a keyboard button. The string form is the callback key.
type Tag int

const (
	TagNone Tag = iota
	TagResults
	TagAnnouncements
	TagAboutSchool
	TagAboutBot
	TagSupport
	TagBack
	TagCheckJoin
	TagPost
	TagEditPost
	TagDeletePost
	TagLogout
	TagBackAdmin

	tagCount
)

var tagNames = [tagCount]string{
	TagNone:          "",
	TagResults:       "results",
	TagAnnouncements: "announcements",
	TagAboutSchool:   "about_school",
	TagAboutBot:      "about_bot",
	TagSupport:       "support",
	TagBack:          "back",
	TagCheckJoin:     "check_join",
	TagPost:          "post",
	TagEditPost:      "edit_post",
	TagDeletePost:    "delete_post",
	TagLogout:        "logout",
	TagBackAdmin:     "back_admin",
}

func (t Tag) String() string {
	if t < 0 || t >= tagCount {
		return ""
	}
	return tagNames[t]
}

// ParseTag maps a callback key to its tag.
func ParseTag(s string) (Tag, bool) {
	if s == "" {
		return TagNone, false
	}
	for t := TagNone + 1; t < tagCount; t++ {
		if tagNames[t] == s {
			return t, true
		}
	}
	return TagNone, false
}

// Tags lists every button tag.
func Tags() []Tag {
	out := make([]Tag, 0, tagCount-1)
	for t := TagNone + 1; t < tagCount; t++ {
		out = append(out, t)
	}
	return out
}

// CallbackKeys lists the callback keys of every button.
func CallbackKeys() []string {
	keys := make([]string, 0, tagCount-1)
	for _, t := range Tags() {
		keys = append(keys, t.String())
	}
	return keys
}
