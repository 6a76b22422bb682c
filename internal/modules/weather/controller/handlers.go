package controller

import (
	"bytes"
	"net/http"

	"weather-api/internal/modules/weather/export"
	"weather-api/internal/utils"
)

func (c *weatherControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	q, err := parseCityQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	latest, err := c.service.Latest(r.Context(), q.City)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, latest)
}

func (c *weatherControllerImpl) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	agg, err := c.service.Stats(r.Context(), q.City, q.N)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, agg)
}

func (c *weatherControllerImpl) handleFetch(w http.ResponseWriter, r *http.Request) {
	req, err := parseFetchRequest(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := c.service.Ingest(r.Context(), req)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (c *weatherControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseExportQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	readings, err := c.service.Export(r.Context(), q.City, q.Limit)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, readings); err != nil {
		c.logger.Error("export: render csv failed", "city", q.City, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render export")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("export: write response failed", "error", err)
	}
}
