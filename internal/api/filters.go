package api

import (
	"strings"

	"github.com/lei/build-notify/internal/service"
)

// FilterFormatters filters formatter listings based on query parameters
func FilterFormatters(infos []service.FormatterInfo, search, kind string) []service.FormatterInfo {
	if search == "" && kind == "" {
		return infos
	}

	filtered := make([]service.FormatterInfo, 0, len(infos))
	searchLower := strings.ToLower(search)

	for _, info := range infos {
		// Search filter
		if search != "" && !strings.Contains(strings.ToLower(info.Name), searchLower) {
			continue
		}

		// Kind filter
		if kind != "" && info.Kind != kind {
			continue
		}

		filtered = append(filtered, info)
	}

	return filtered
}
