package controller

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"

	"thermograph/internal/modules/sensor/chart"
	"thermograph/internal/modules/sensor/transform"
	"thermograph/internal/modules/sensor/views"
	"thermograph/internal/utils"
)

func (c *sensorControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	rng, result := c.result(r)
	data := &views.PageData{
		Title:  pageTitle,
		Start:  rng.Start,
		End:    rng.End,
		Result: result,
	}

	var buf bytes.Buffer
	if err := views.RenderPage(&buf, data); err != nil {
		c.logger.Error("page template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *sensorControllerImpl) handleResultPartial(w http.ResponseWriter, r *http.Request) {
	_, result := c.result(r)

	var buf bytes.Buffer
	if err := views.RenderResultPartial(&buf, &result); err != nil {
		c.logger.Error("result partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// result runs the fetch, transform and chart pipeline for the request's range.
// Failures become a message in the returned ResultData.
func (c *sensorControllerImpl) result(r *http.Request) (dateRange, views.ResultData) {
	rng, err := parseDateRange(r, c.now())
	result := views.ResultData{Params: rng.params()}
	if err != nil {
		result.Error = err.Error()
		return rng, result
	}
	if rng.StartAt.After(rng.EndAt) {
		result.Error = msgStartAfterEnd
		return rng, result
	}

	svg, rows, err := c.renderChart(r.Context(), rng)
	switch {
	case err != nil:
		c.logger.Error("data fetch failed", "start", rng.Start, "end", rng.End, "error", err)
		result.Error = fmt.Sprintf(msgFetchError, err)
	case rows == 0:
		result.Warning = msgNoData
	default:
		result.ChartSVG = svg
		result.Rows = rows
	}
	return rng, result
}

func (c *sensorControllerImpl) renderChart(ctx context.Context, rng dateRange) (template.HTML, int, error) {
	raw, err := c.fetcher.Fetch(ctx, rng.Start, rng.End)
	if err != nil {
		return "", 0, err
	}
	if len(raw) == 0 {
		return "", 0, nil
	}
	table, err := transform.Augment(raw)
	if err != nil {
		return "", 0, err
	}
	var buf bytes.Buffer
	if err := chart.RenderSVG(&buf, table); err != nil {
		return "", 0, fmt.Errorf("render chart: %w", err)
	}
	// go-chart output carries only generated markup and escaped labels.
	return template.HTML(buf.String()), table.Len(), nil
}
