package flow

import "github.com/m3rciful/schoolbot/core/telegram/state"

type handler func(t *turn) (state.State, error)

// row lists what a state accepts. Anything else goes to reprompt.
type row struct {
	buttons  map[Tag]handler
	text     handler
	media    handler
	reprompt handler
	// student rows re-check channel membership before a button runs.
	student bool
	// admin rows need the admin role.
	admin bool
}

func dispatchTable() map[state.State]row {
	studentButtons := map[Tag]handler{
		TagResults:       (*turn).askName,
		TagAnnouncements: (*turn).announcements,
		TagAboutSchool:   (*turn).aboutSchool,
		TagAboutBot:      (*turn).aboutBot,
		TagSupport:       (*turn).askIssue,
		TagBack:          (*turn).back,
		TagCheckJoin:     (*turn).checkJoin,
	}
	backOnly := map[Tag]handler{TagBack: (*turn).back}
	adminBackOnly := map[Tag]handler{TagBackAdmin: (*turn).adminMenu}

	return map[state.State]row{
		StudentMenu: {
			buttons:  studentButtons,
			text:     (*turn).useButtons,
			reprompt: (*turn).useButtons,
			student:  true,
		},
		ResultsName: {
			buttons:  backOnly,
			text:     (*turn).takeName,
			reprompt: (*turn).askName,
			student:  true,
		},
		ResultsID: {
			buttons:  backOnly,
			text:     (*turn).lookupResults,
			reprompt: (*turn).askID,
			student:  true,
		},
		SupportIssue: {
			buttons:  backOnly,
			text:     (*turn).takeIssue,
			reprompt: (*turn).askIssue,
			student:  true,
		},
		SupportName: {
			buttons:  backOnly,
			text:     (*turn).sendTicket,
			reprompt: (*turn).askContactName,
			student:  true,
		},
		AdminLogin: {
			text:     (*turn).login,
			reprompt: (*turn).askPassword,
		},
		AdminMenu: {
			buttons: map[Tag]handler{
				TagPost:       (*turn).askPost,
				TagEditPost:   (*turn).pickForEdit,
				TagDeletePost: (*turn).pickForDelete,
				TagLogout:     (*turn).logout,
				TagBackAdmin:  (*turn).adminMenu,
			},
			reprompt: (*turn).adminMenu,
			admin:    true,
		},
		AdminPost: {
			buttons:  adminBackOnly,
			text:     (*turn).publish,
			media:    (*turn).publish,
			reprompt: (*turn).askPost,
			admin:    true,
		},
		AdminEdit: {
			buttons:  adminBackOnly,
			text:     (*turn).edit,
			reprompt: (*turn).editReprompt,
			admin:    true,
		},
		AdminDelete: {
			buttons:  adminBackOnly,
			text:     (*turn).delete,
			reprompt: (*turn).askDeleteNumber,
			admin:    true,
		},
	}
}

func (e *Engine) route(t *turn) (state.State, error) {
	r, ok := e.table[t.sess.State]
	if !ok {
		t.sess.State = StudentMenu
		r = e.table[StudentMenu]
	}
	if r.admin && !t.sess.Admin {
		t.result = "denied"
		return t.askPassword()
	}

	switch t.ev.Kind {
	case KindButton:
		h, ok := r.buttons[t.ev.Tag]
		if !ok {
			break
		}
		if r.student && t.ev.Tag != TagCheckJoin {
			if !e.cfg.Gate.IsMember(t.ctx, t.ev.UserID) {
				t.result = "denied"
				return t.joinPrompt()
			}
			t.drain(state.TrailResults)
		}
		return h(t)
	case KindText:
		if r.text != nil {
			return r.text(t)
		}
	case KindMedia:
		if r.media != nil {
			return r.media(t)
		}
	}
	t.result = "reprompt"
	return r.reprompt(t)
}
