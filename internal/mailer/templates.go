package mailer

import (
	"fmt"
	"html"

	"github.com/artisanhub/artisanhub/internal/domain"
)

func WelcomeMessage(user domain.User, appURL string) Message {
	body := fmt.Sprintf("<p>Hi %s,</p><p>Welcome to ArtisanHub!</p>", html.EscapeString(user.Name))
	if user.Role == domain.RoleArtisan {
		body += fmt.Sprintf(`<p>Your shop is ready. <a href="%s/dashboard">Create your first listing</a>.</p>`, appURL)
	} else {
		body += fmt.Sprintf(`<p><a href="%s/products">Discover handmade goods</a> from independent makers.</p>`, appURL)
	}
	return Message{To: user.Email, Subject: "Welcome to ArtisanHub", HTML: body}
}

func NewsletterMessage(sub domain.NewsletterSubscription, appURL string) Message {
	body := "<p>Thanks for subscribing to the ArtisanHub newsletter.</p>" +
		fmt.Sprintf(`<p>Changed your mind? <a href="%s/newsletter/unsubscribe?email=%s">Unsubscribe</a>.</p>`,
			appURL, html.EscapeString(sub.Email))
	return Message{To: sub.Email, Subject: "You're subscribed", HTML: body}
}

func EventMessage(user domain.User, event domain.Event) Message {
	where := html.EscapeString(event.Location)
	if event.Online {
		where = fmt.Sprintf(`<a href="%s">%s</a>`, event.OnlineURL, html.EscapeString(event.OnlineURL))
	}
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your spot for <b>%s</b> is booked.</p><p>When: %s<br>Where: %s</p>",
		html.EscapeString(user.Name), html.EscapeString(event.Title),
		event.StartAt.Format("Mon 02 Jan 2006 15:04"), where)
	return Message{To: user.Email, Subject: "Booking confirmed: " + event.Title, HTML: body}
}
