package viewstate

import (
	"fmt"
	"strings"

	"github.com/voyagen/watchvault/internal/models"
)

// NoItemsMessage is shown for an empty list or an empty filter result.
const NoItemsMessage = "No items found"

// ItemLabel is the noun used in the summary banner for a media type filter.
func ItemLabel(mt models.MediaType) string {
	switch mt {
	case models.MediaTypeMovie:
		return "movies"
	case models.MediaTypeSeries:
		return "series"
	}
	return "items"
}

// Summary renders "Showing N out of M items".
func (v View) Summary(mt models.MediaType) string {
	return fmt.Sprintf("Showing %d out of %d %s", v.TotalFiltered, v.Total, ItemLabel(mt))
}

// OrNA substitutes the "N/A" placeholder for missing metadata.
func OrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
