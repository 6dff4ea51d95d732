package activitypub

// WebFinger is the JRD document served from /.well-known/webfinger.
type WebFinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

// NewWebFinger binds acct:username@domain to the actor address.
func NewWebFinger(username, domain, actorURL string) *WebFinger {
	return &WebFinger{
		Subject: "acct:" + username + "@" + domain,
		Aliases: []string{actorURL},
		Links: []Link{
			{Rel: "self", Type: ContentType, Href: actorURL},
		},
	}
}
