package normalize

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Request is the body of POST /normalize. A missing name is rejected rather
// than treated as empty.
type Request struct {
	Name       *string `json:"name"`
	Kind       string  `json:"kind" validate:"omitempty,oneof=employer union"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Designator string  `json:"designator"`
}

// Register registers normalization routes
func Register(g *echo.Group) {
	g.POST("", Normalize)
}

// Normalize returns the canonical form of one name
func Normalize(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[Request](c)
	if err != nil {
		return err
	}

	kind, err := normalizers.ParseKind(req.Kind)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	_, normalizer, err := ectoinject.GetContext[*normalizers.Normalizer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	name, err := normalizer.Normalize(normalizers.RawName{
		Name:       req.Name,
		Kind:       kind,
		City:       req.City,
		State:      req.State,
		Designator: req.Designator,
	})
	if errors.Is(err, normalizers.ErrInvalidInput) {
		return httperror.NewHTTPError(http.StatusBadRequest, "name is required").AddMetaValue("field", "name")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, name)
}
