package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// LoadCSV reads a survey dataset from a CSV file. The first row must be a
// header naming every column the schema references.
func LoadCSV(path string, schema Schema) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read header of %s", path)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read row of %s", path)
		}
		rows = append(rows, record)
	}

	return fromRows(datasetLabel(path), header, rows, schema)
}

func datasetLabel(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fromRows assembles a Dataset from a header row and string cell rows.
func fromRows(label string, header []string, rows [][]string, schema Schema) (*Dataset, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	required := append([]string{schema.Lat, schema.Lon, schema.Positive, schema.Examined}, schema.Covariates...)
	for _, col := range required {
		if col == "" {
			return nil, eris.New("dataset: schema has an empty column name")
		}
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("dataset: column %q not found in header", col)
		}
	}

	ds := &Dataset{Label: label, Schema: schema, Records: make([]Record, 0, len(rows))}
	for i, row := range rows {
		rec := Record{Covariates: make(map[string]float64, len(schema.Covariates))}

		var err error
		if rec.Lat, err = cell(row, idx, schema.Lat, i); err != nil {
			return nil, err
		}
		if rec.Lon, err = cell(row, idx, schema.Lon, i); err != nil {
			return nil, err
		}
		if rec.Positive, err = cell(row, idx, schema.Positive, i); err != nil {
			return nil, err
		}
		if rec.Examined, err = cell(row, idx, schema.Examined, i); err != nil {
			return nil, err
		}
		for _, c := range schema.Covariates {
			if rec.Covariates[c], err = cell(row, idx, c, i); err != nil {
				return nil, err
			}
		}

		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// cell parses one numeric cell, reporting the row and column on failure.
func cell(row []string, idx map[string]int, col string, rowNum int) (float64, error) {
	j := idx[col]
	if j >= len(row) {
		return 0, &DataError{Row: rowNum, Column: col, Reason: "row has too few fields"}
	}
	raw := strings.TrimSpace(row[j])
	if raw == "" || raw == "NA" {
		return 0, &DataError{Row: rowNum, Column: col, Reason: "missing value"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &DataError{Row: rowNum, Column: col, Reason: "not a number: " + raw}
	}
	return v, nil
}
