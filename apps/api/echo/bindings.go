package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/lingo/core"
)

const orderingParam = "ordering"

// bindOrdering reads `?ordering=field,-other` of the request.
func bindOrdering(ctx echo.Context) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam(orderingParam))
}
