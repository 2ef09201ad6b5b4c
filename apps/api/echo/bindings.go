package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/backoffice/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=-submitted_at,name` (a leading "-" sorts descending).
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	ord.Orderings = core.ParseOrdering(val[0])
}
