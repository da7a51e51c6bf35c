package handlers

import (
	"strconv"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1 && total > 0,
	}
}

// parsePageQuery reads page/limit with the shared defaults and bounds.
func parsePageQuery(pageRaw, limitRaw string) (page, limit int) {
	page = parsePositiveInt(pageRaw, 1)
	limit = parsePositiveInt(limitRaw, defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
