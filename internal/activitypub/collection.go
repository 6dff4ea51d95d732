package activitypub

import "strconv"

// OrderedCollection is the summary form of outbox/followers collections.
type OrderedCollection struct {
	Context    any    `json:"@context,omitempty"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	TotalItems int64  `json:"totalItems"`
	First      string `json:"first,omitempty"`
}

// OrderedCollectionPage is one page of an OrderedCollection.
type OrderedCollectionPage struct {
	Context      any    `json:"@context,omitempty"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	PartOf       string `json:"partOf"`
	TotalItems   int64  `json:"totalItems"`
	OrderedItems []any  `json:"orderedItems"`
	Next         string `json:"next,omitempty"`
	Prev         string `json:"prev,omitempty"`
}

// NewOrderedCollection renders the collection summary pointing at page 1.
func NewOrderedCollection(id string, total int64) *OrderedCollection {
	c := &OrderedCollection{
		Context:    ContextActivityStreams,
		ID:         id,
		Type:       "OrderedCollection",
		TotalItems: total,
	}
	if total > 0 {
		c.First = PageURL(id, 1)
	}
	return c
}

// NewOrderedCollectionPage renders page (1-based) of a collection holding
// total items, limit per page.
func NewOrderedCollectionPage(id string, page, limit int, total int64, items []any) *OrderedCollectionPage {
	if items == nil {
		items = []any{}
	}
	p := &OrderedCollectionPage{
		Context:      ContextActivityStreams,
		ID:           PageURL(id, page),
		Type:         "OrderedCollectionPage",
		PartOf:       id,
		TotalItems:   total,
		OrderedItems: items,
	}
	if int64(page*limit) < total {
		p.Next = PageURL(id, page+1)
	}
	if page > 1 {
		p.Prev = PageURL(id, page-1)
	}
	return p
}

func PageURL(id string, page int) string {
	return id + "?page=" + strconv.Itoa(page)
}
