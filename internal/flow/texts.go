package flow

const (
	textWelcome     = "👋 Welcome to *St. Anthony School Bot!*\n\nPlease join our official channel first to continue:"
	textJoinFirst   = "⛔ You must join the channel first!"
	textJoined      = "✅ Welcome! You can now use the bot."
	textMainMenu    = "Main menu"
	textUseButtons  = "👇 Please use the buttons below:"
	textCancelled   = "Cancelled."
	textAskName     = "✏️ Enter your full name:"
	textAskID       = "✅ Now enter your student ID:"
	textSearching   = "🔍 Searching..."
	textNoResults   = "❌ No results found. Check name/ID."
	textAskIssue    = "✏️ Please describe your problem:"
	textAskContact  = "✅ Thank you!\n\nPlease enter your *full name* so we can contact you:"
	textTicketSent  = "✅ Your issue has been sent to the IT team!"
	textTicketFail  = "❌ Failed to send. Please try again later."
	textNoFeed      = "No announcements found."
	textFeedTitle   = "📢 *Latest Announcements*\n\n"
	textAboutSchool = "🏫 *About St. Anthony School*\n\n" +
		"Founded in 1950 E.C in Shinshicho, Saint Anthony School provides KG–Grade 12 education " +
		"for over 1,000 students. The school is known for discipline, academic excellence, and " +
		"holistic development."
	textAboutBot = "🤖 *About This Bot*\n\n" +
		"Saint Anthony School Bot is the school's secure digital system designed to provide " +
		"official announcements and result checking for students and parents."

	textAskPassword   = "🔐 Enter admin password:"
	textWrongPassword = "❌ Wrong password. Try again or /cancel:"
	textGranted       = "✅ Admin access granted."
	textAdminMenu     = "Admin menu"
	textAskPost       = "✍️ Send your announcement text (or photo + caption):"
	textPublishFail   = "❌ Failed to publish the post. Please try again."
	textBroadcastDone = "✅ Posted to channel and broadcast to %d users!"
	textNoPostsEdit   = "❌ No posts to edit."
	textNoPostsDelete = "❌ No posts to delete."
	textPickEdit      = "📝 *Choose a post to edit:*\n\n"
	textPickDelete    = "🗑️ *Choose a post to delete:*\n\n"
	textInvalidNumber = "❌ Invalid number."
	textEditNumber    = "❌ Send the *number* of the post to edit."
	textDeleteNumber  = "❌ Send the *number* of the post to delete."
	textAskNewText    = "✏️ Send the new text for this post:"
	textNoSelection   = "❌ No post selected. /admin to restart."
	textEdited        = "✅ Post edited!"
	textEditFail      = "❌ Failed to edit the post."
	textDeleted       = "✅ Post deleted."
	textDeleteFail    = "❌ Failed to delete the post."
	textLoggedOut     = "🔒 Logged out.\n👋 Welcome back to student mode."
)
