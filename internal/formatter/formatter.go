// package formatter projects visible playlists into export rows and encodes them as CSV or XLSX
package formatter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
)

// SheetName is the worksheet XLSX exports are written to.
const SheetName = "Playlists"

// FallbackName is used for the filename when no track name is known.
const FallbackName = "selected_track"

// FoundByDelimiter joins the keywords of a playlist into one cell.
const FoundByDelimiter = ", "

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)
	validate    = shared.NewValidator()
)

// Export is the row projection shared by every encoding.
type Export struct {
	Header []string
	Rows   [][]string
}

// BuildExport projects playlists into one row per playlist and one cell per requested column.
func BuildExport(playlists []models.Playlist, req models.ExportRequest) (*Export, error) {
	if len(playlists) == 0 {
		return nil, shared.ErrNoPlaylists
	}
	if len(req.Columns) == 0 {
		return nil, shared.ErrNoColumns
	}
	if req.Format != models.FormatCSV && req.Format != models.FormatXLSX {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidFormat, req.Format)
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	header := make([]string, len(req.Columns))
	for i, col := range req.Columns {
		if req.Labels {
			header[i] = col.Label()
		} else {
			header[i] = string(col)
		}
	}

	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		row := make([]string, len(req.Columns))
		for i, col := range req.Columns {
			row[i] = Cell(p, col)
		}
		rows = append(rows, row)
	}

	return &Export{Header: header, Rows: rows}, nil
}

// Cell renders one field of p. Absent values render empty; contacted renders 0.
func Cell(p models.Playlist, col models.Column) string {
	switch col {
	case models.ColumnName:
		return p.Name
	case models.ColumnURL:
		return p.URL
	case models.ColumnOwnerName:
		return p.OwnerName
	case models.ColumnEmail:
		return p.Email
	case models.ColumnFollowers:
		return p.Followers.String()
	case models.ColumnTracksTotal:
		return p.TracksTotal.String()
	case models.ColumnDescription:
		return p.Description
	case models.ColumnFoundBy:
		return strings.Join(p.FoundBy, FoundByDelimiter)
	case models.ColumnContacted:
		return strconv.Itoa(p.Contacted)
	default:
		return ""
	}
}

// Encode renders e in the given format.
func Encode(e *Export, f models.Format) ([]byte, error) {
	switch f {
	case models.FormatCSV:
		return ExportToCSV(e)
	case models.FormatXLSX:
		return ExportToXLSX(e)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidFormat, f)
	}
}

// ExportToCSV writes the header and rows, each terminated by CRLF.
//
// Only fields containing a comma, quote or LF are quoted, with embedded quotes doubled.
// Cell content is otherwise written byte for byte.
func ExportToCSV(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	if err := writeCSVRecord(&buf, e.Header); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range e.Rows {
		if err := writeCSVRecord(&buf, row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return buf.Bytes(), nil
}

func writeCSVRecord(w io.Writer, record []string) error {
	fields := make([]string, len(record))
	for i, field := range record {
		fields[i] = csvField(field)
	}
	_, err := io.WriteString(w, strings.Join(fields, ",")+"\r\n")
	return err
}

func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportToXLSX builds a single-sheet workbook with a bold header row.
func ExportToXLSX(e *Export) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, row := range append([][]string{e.Header}, e.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the download name from the track's display name.
func Filename(trackName string, f models.Format) string {
	base := trackName
	if base == "" {
		base = FallbackName
	}
	base = strings.ToLower(unsafeChars.ReplaceAllString(base, "_"))
	return base + "." + f.Extension()
}

// ExportResult describes a written export file.
type ExportResult struct {
	Path string
	Rows int
}

// WriteExport builds, encodes and writes the export into outputDir.
func WriteExport(playlists []models.Playlist, req models.ExportRequest, outputDir string) (*ExportResult, error) {
	export, err := BuildExport(playlists, req)
	if err != nil {
		return nil, err
	}

	data, err := Encode(export, req.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", req.Format, err)
	}

	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(outputDir, Filename(req.TrackName, req.Format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	return &ExportResult{Path: path, Rows: len(export.Rows)}, nil
}
