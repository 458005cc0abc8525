package domain

// Event bus topics published by the web layer
const (
	TopicUserRegistered         = "user:registered"
	TopicNewsletterSubscribed   = "newsletter:subscribed"
	TopicNewsletterUnsubscribed = "newsletter:unsubscribed"
	TopicEventRegistered        = "event:registered"
	TopicProductPublished       = "product:published"
)
