// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. A non-empty URL makes a link button and
// Unique is then ignored.
type Button struct {
	Text   string
	Unique string
	URL    string
}

// Column stacks buttons one per row.
func Column(buttons ...Button) *tele.ReplyMarkup {
	rows := make([][]Button, len(buttons))
	for i, b := range buttons {
		rows[i] = []Button{b}
	}
	return Rows(rows...)
}

// Rows builds an inline keyboard row by row.
func Rows(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		line := make([]tele.InlineButton, len(row))
		for j, b := range row {
			if b.URL != "" {
				line[j] = tele.InlineButton{Text: b.Text, URL: b.URL}
			} else {
				line[j] = tele.InlineButton{Text: b.Text, Unique: b.Unique}
			}
		}
		markup.InlineKeyboard[i] = line
	}
	return markup
}
