// Package report renders selection results for the console and for export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fieldepi/geostat-cli/internal/correlogram"
	"github.com/fieldepi/geostat-cli/internal/model"
)

// RenderBoard writes the score board as an aligned text table. Row 0 is
// the baseline model.
func RenderBoard(w io.Writer, board []model.BoardEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tSCORE\tCOVARIATES")
	for i, e := range board {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\n", i, e.Score, strings.Join(e.Covariates, " + "))
	}
	return eris.Wrap(tw.Flush(), "report: render board")
}

// RenderCorrelogram writes correlogram bins as an aligned text table.
func RenderCorrelogram(w io.Writer, bins []correlogram.Bin) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTANCE (KM)\tMORAN'S I\tPAIRS")
	for _, b := range bins {
		fmt.Fprintf(tw, "%.0f-%.0f\t%.4f\t%d\n", b.MinKM, b.MaxKM, b.I, b.Pairs)
	}
	return eris.Wrap(tw.Flush(), "report: render correlogram")
}

// WriteYAML marshals a run result as YAML.
func WriteYAML(w io.Writer, res *model.RunResult) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return eris.Wrap(enc.Encode(res), "report: encode yaml")
}

// WriteJSON marshals a run result as indented JSON.
func WriteJSON(w io.Writer, res *model.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(res), "report: encode json")
}
