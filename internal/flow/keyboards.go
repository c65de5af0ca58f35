package flow

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/telegram/keyboard"
)

func btn(text string, tag Tag) keyboard.Button {
	return keyboard.Button{Text: text, Unique: tag.String()}
}

func mainKeyboard() *tele.ReplyMarkup {
	return keyboard.Column(
		btn("📊 Results", TagResults),
		btn("📢 Announcements", TagAnnouncements),
		btn("🏫 About School", TagAboutSchool),
		btn("🤖 About Bot", TagAboutBot),
		btn("🆘 Support (Ask)", TagSupport),
	)
}

func backKeyboard() *tele.ReplyMarkup {
	return keyboard.Column(btn("🔙 Back", TagBack))
}

func adminKeyboard() *tele.ReplyMarkup {
	return keyboard.Column(
		btn("✍️ Post", TagPost),
		btn("📝 Edit Post", TagEditPost),
		btn("🗑️ Delete Post", TagDeletePost),
		btn("🔒 Logout", TagLogout),
	)
}

func adminBackKeyboard() *tele.ReplyMarkup {
	return keyboard.Column(btn("🔙 Back", TagBackAdmin))
}

func joinKeyboard(channelURL string) *tele.ReplyMarkup {
	row := []keyboard.Button{btn("✅ I have joined", TagCheckJoin)}
	if channelURL != "" {
		row = append([]keyboard.Button{{Text: "➕ Join Channel", URL: channelURL}}, row...)
	}
	return keyboard.Rows(row)
}
