package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,63}$`)

// ValidateUsername accepts handles usable in an actor path.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: invalid username %q", common.ErrorValidation, username)
	}
	return nil
}

// CanonicalActor fills the endpoints of a local actor under baseURL.
func CanonicalActor(baseURL, username, domain string) *models.Actor {
	actorURL := strings.TrimRight(baseURL, "/") + "/users/" + username
	return &models.Actor{
		Username:     username,
		Domain:       domain,
		ActorURL:     actorURL,
		InboxURL:     actorURL + "/inbox",
		OutboxURL:    actorURL + "/outbox",
		FollowingURL: actorURL + "/following",
		FollowersURL: actorURL + "/followers",
	}
}

// KeyIDFor names key generation serial of actorURL. The first key keeps the
// conventional #main-key fragment.
func KeyIDFor(actorURL string, serial int) string {
	if serial <= 1 {
		return actorURL + "#main-key"
	}
	return actorURL + "#key-" + strconv.Itoa(serial)
}

// ParseLocalActorURL extracts the username from <baseURL>/users/<name>.
// Addresses of other nodes or other shapes yield common.ErrorNotFound.
func ParseLocalActorURL(baseURL, actorURL string) (string, error) {
	prefix := strings.TrimRight(baseURL, "/") + "/users/"
	rest, ok := strings.CutPrefix(actorURL, prefix)
	if !ok || rest == "" || strings.ContainsAny(rest, "/?#") {
		return "", common.ErrorNotFound
	}
	if ValidateUsername(rest) != nil {
		return "", common.ErrorNotFound
	}
	return rest, nil
}

// ParseActorHandle derives (username, domain) from a remote actor address:
// the last path segment (without a leading @) and the host.
func ParseActorHandle(actorURL string) (string, string, error) {
	u, err := url.Parse(actorURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", "", fmt.Errorf("%w: not an absolute actor address %q", common.ErrorValidation, actorURL)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	name := strings.TrimPrefix(segs[len(segs)-1], "@")
	if name == "" {
		return "", "", fmt.Errorf("%w: no username in %q", common.ErrorValidation, actorURL)
	}
	return name, strings.ToLower(u.Host), nil
}

// ParseAcct splits "acct:user@domain" (the scheme is optional).
func ParseAcct(resource string) (string, string, error) {
	rest := strings.TrimPrefix(resource, "acct:")
	rest = strings.TrimPrefix(rest, "@")
	user, domain, ok := strings.Cut(rest, "@")
	if !ok || user == "" || domain == "" {
		return "", "", fmt.Errorf("%w: bad resource %q", common.ErrorValidation, resource)
	}
	return user, strings.ToLower(domain), nil
}
