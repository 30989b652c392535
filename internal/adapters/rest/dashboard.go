package rest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"math"
	"net/http"

	"github.com/ewilliams-labs/artistcompare/internal/charts"
	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

const noData = "no data"

// pageData feeds index.html.tmpl. Result is nil in the idle state and
// whenever the run failed.
type pageData struct {
	Artist1 string
	Artist2 string
	Error   string
	Result  *resultView
}

type resultView struct {
	Left            domain.ArtistProfile
	Right           domain.ArtistProfile
	Features        []string
	Averages        []averageRow
	Charts          []chartView
	MissingFeatures int
}

type averageRow struct {
	Artist string
	Tracks int
	Cells  []string
}

type chartView struct {
	Title string
	Kind  string
	URI   template.URL
}

var chartTitles = map[charts.Kind]string{
	charts.KindScatter: "Danceability vs. Loudness",
	charts.KindBoxplot: "Feature distributions (box plot)",
	charts.KindViolin:  "Feature distributions (violin plot)",
}

// Index handles GET / and renders the empty form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, pageData{})
}

// CompareForm handles POST /compare from the dashboard form.
func (h *Handler) CompareForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderPage(w, http.StatusBadRequest, pageData{Error: "Invalid form submission"})
		return
	}
	data := pageData{
		Artist1: r.PostFormValue("artist1"),
		Artist2: r.PostFormValue("artist2"),
	}

	comparison, err := h.svc.Compare(r.Context(), data.Artist1, data.Artist2)
	if err != nil {
		e := classifyError(err)
		h.logPipelineError(e, err)
		data.Error = e.Message
		h.renderPage(w, e.Status, data)
		return
	}

	result, err := buildResultView(comparison)
	if err != nil {
		h.logger.Error("chart rendering failed", "run_id", comparison.RunID.String(), "error", err)
		data.Error = "The charts could not be drawn."
		h.renderPage(w, http.StatusInternalServerError, data)
		return
	}
	data.Result = result
	h.renderPage(w, http.StatusOK, data)
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("template execute error", "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func buildResultView(c domain.Comparison) (*resultView, error) {
	view := &resultView{
		Left:            c.Left,
		Right:           c.Right,
		Features:        domain.NumericFeatures,
		MissingFeatures: c.MissingFeatures,
	}
	for _, row := range c.Aggregates {
		view.Averages = append(view.Averages, averageRow{
			Artist: row.Artist,
			Tracks: row.Tracks,
			Cells:  formatMeans(row),
		})
	}
	for _, kind := range charts.Kinds {
		uri, err := chartDataURI(kind, c)
		if err != nil {
			return nil, err
		}
		view.Charts = append(view.Charts, chartView{Title: chartTitles[kind], Kind: string(kind), URI: uri})
	}
	return view, nil
}

func formatMeans(row domain.AggregateRow) []string {
	cells := make([]string, 0, len(domain.NumericFeatures))
	for _, feature := range domain.NumericFeatures {
		v := row.Mean(feature)
		if row.NoData() || math.IsNaN(v) {
			cells = append(cells, noData)
			continue
		}
		cells = append(cells, fmt.Sprintf("%.3f", v))
	}
	return cells
}

func chartDataURI(kind charts.Kind, c domain.Comparison) (template.URL, error) {
	var buf bytes.Buffer
	if err := charts.Render(kind, c, &buf); err != nil {
		return "", fmt.Errorf("rest: render %s: %w", kind, err)
	}
	return template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
