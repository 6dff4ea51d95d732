package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/server/models"
	"github.com/dmitrijs2005/fedinode/internal/server/services"
	"github.com/labstack/echo/v4"
)

const jrdContentType = "application/jrd+json"

func writeDocument(c echo.Context, code int, contentType string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(code, contentType, b)
}

func (s *Server) webFinger(c echo.Context) error {
	resource := c.QueryParam("resource")
	if resource == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resource is required")
	}

	username, domain, err := services.ParseAcct(resource)
	if err != nil {
		return err
	}
	if !strings.EqualFold(domain, s.svc.Actors.Domain()) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown domain")
	}

	wf, err := s.svc.Actors.GenerateWebFinger(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return writeDocument(c, http.StatusOK, jrdContentType, wf)
}

func (s *Server) actor(c echo.Context) error {
	doc, err := s.svc.Actors.FindByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return writeDocument(c, http.StatusOK, activitypub.ContentType, doc)
}

// pageParam returns the requested page, or 0 for the collection summary.
func pageParam(c echo.Context) (int, error) {
	raw := c.QueryParam("page")
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	return page, nil
}

func (s *Server) outbox(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	actor, err := s.svc.Actors.Lookup(ctx, c.Param("username"))
	if err != nil {
		return err
	}

	res, err := s.svc.Outbox.List(ctx, actor.ID, page, services.DefaultPageSize, page == 0)
	if err != nil {
		return err
	}
	if page == 0 {
		return writeDocument(c, http.StatusOK, activitypub.ContentType, activitypub.NewOrderedCollection(actor.OutboxURL, res.Total))
	}

	items := make([]any, 0, len(res.Items))
	for _, e := range res.Items {
		items = append(items, e.Data)
	}
	return writeDocument(c, http.StatusOK, activitypub.ContentType,
		activitypub.NewOrderedCollectionPage(actor.OutboxURL, res.Page, res.Limit, res.Total, items))
}

func (s *Server) followers(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	actor, err := s.svc.Actors.Lookup(ctx, c.Param("username"))
	if err != nil {
		return err
	}

	res, err := s.svc.Followers.GetFollowers(ctx, actor.ID, page, services.DefaultPageSize, page == 0)
	if err != nil {
		return err
	}
	if page == 0 {
		return writeDocument(c, http.StatusOK, activitypub.ContentType, activitypub.NewOrderedCollection(actor.FollowersURL, res.Total))
	}

	items := make([]any, 0, len(res.Items))
	for _, f := range res.Items {
		items = append(items, followerRef(f))
	}
	return writeDocument(c, http.StatusOK, activitypub.ContentType,
		activitypub.NewOrderedCollectionPage(actor.FollowersURL, res.Page, res.Limit, res.Total, items))
}

// followerRef names a follower by actor address, falling back to its handle
// for followers that were never resolved.
func followerRef(f models.FollowerView) string {
	if f.ActorURL != "" {
		return f.ActorURL
	}
	return "acct:" + f.Username + "@" + f.Domain
}
