package controller

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"weather-api/internal/modules/weather/types"
	"weather-api/internal/utils"
)

const (
	defaultStatsN      = 24
	defaultExportLimit = 100
)

var validate = newValidator()

// newValidator reports fields by their json name so messages match the
// request parameters.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type cityQuery struct {
	City string `json:"city" validate:"required"`
}

type statsQuery struct {
	City string `json:"city" validate:"required"`
	N    int    `json:"n" validate:"gte=1,lte=1000"`
}

type exportQuery struct {
	City  string `json:"city" validate:"required"`
	Limit int    `json:"limit" validate:"gte=1,lte=1000"`
}

// fetchRequest uses pointers so a missing coordinate is distinguishable
// from 0.
type fetchRequest struct {
	City string   `json:"city" validate:"required"`
	Lat  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon  *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func parseCityQuery(r *http.Request) (cityQuery, error) {
	q := cityQuery{City: strings.TrimSpace(r.URL.Query().Get("city"))}
	return q, validateStruct(q)
}

func parseStatsQuery(r *http.Request) (statsQuery, error) {
	n, err := intParam(r, "n", defaultStatsN)
	if err != nil {
		return statsQuery{}, err
	}
	q := statsQuery{City: strings.TrimSpace(r.URL.Query().Get("city")), N: n}
	return q, validateStruct(q)
}

func parseExportQuery(r *http.Request) (exportQuery, error) {
	limit, err := intParam(r, "limit", defaultExportLimit)
	if err != nil {
		return exportQuery{}, err
	}
	q := exportQuery{City: strings.TrimSpace(r.URL.Query().Get("city")), Limit: limit}
	return q, validateStruct(q)
}

func parseFetchRequest(w http.ResponseWriter, r *http.Request) (types.FetchRequest, error) {
	var body fetchRequest
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		return types.FetchRequest{}, err
	}
	body.City = strings.TrimSpace(body.City)
	if err := validateStruct(body); err != nil {
		return types.FetchRequest{}, err
	}
	return types.FetchRequest{City: body.City, Latitude: *body.Lat, Longitude: *body.Lon}, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' (expected integer)", name)
	}
	return n, nil
}

// validateStruct turns the first validation failure into a client message.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("'%s' is required", fe.Field())
	case "gte":
		return fmt.Errorf("'%s' must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Errorf("'%s' must be <= %s", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("'%s' is invalid", fe.Field())
	}
}

func (c *weatherControllerImpl) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, types.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrUpstream):
		c.logger.Warn("upstream fetch failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, types.ErrStorage):
		c.logger.Error("storage failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "storage unavailable")
	default:
		c.logger.Error("request failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
