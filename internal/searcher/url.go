package searcher

import (
	"net/url"

	"github.com/dshills/tripsearch-mcp/pkg/types"
)

// BuildURL returns the in-app link for an entity. Trips link to their own
// page; everything else opens the owning trip on the matching tab.
func BuildURL(entityType types.EntityType, entityID, collectionID string) string {
	if entityType == types.EntityTrip {
		return "/collections/" + url.PathEscape(entityID)
	}
	return "/collections/" + url.PathEscape(collectionID) +
		"?tab=" + url.QueryEscape(entityType.Tab()) +
		"&highlight=" + url.QueryEscape(entityID)
}
