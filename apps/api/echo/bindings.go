package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-dashboard/core/user"
)

// bindQueryFilter reads the `search`, `school`, `role` (repeatable) and `is_active` query params.
// Unknown roles and malformed booleans are ignored.
func bindQueryFilter(ctx echo.Context) user.QueryFilter {
	data := ctx.QueryParams()
	filter := user.QueryFilter{
		Search: data.Get("search"),
		School: data.Get("school"),
	}
	for _, val := range data["role"] {
		if role, ok := user.ParseRole(val); ok {
			filter.Roles = append(filter.Roles, role)
		}
	}
	if val := data.Get("is_active"); val != "" {
		if active, err := strconv.ParseBool(val); err == nil {
			filter.IsActive = &active
		}
	}
	filter.Clean()
	return filter
}
