// Package sheet implements the tabular store over an xlsx workbook. The
// workbook is the human-editable source of truth: one sheet, one header
// row, one game per data row, fixed column layout. All mutation happens
// in memory; Flush writes the workbook back to disk.
package sheet

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/apetrov/gamelog/pkg/catalog"
	"github.com/apetrov/gamelog/pkg/errors"
)

// SheetName is the worksheet holding the catalog rows.
const SheetName = "init_games"

// Row layout. Row 1 is the header; data starts at row 2.
const (
	headerRow    = 1
	firstDataRow = 2
)

// headers is the fixed column layout, A through M.
var headers = []string{
	"game_name",
	"platforms",
	"status",
	"release_date",
	"press_score",
	"user_score",
	"my_score",
	"metacritic_url",
	"average_time_beat",
	"trailer_url",
	"my_time_beat",
	"last_launch_date",
	"additional_time",
}

// Store is an xlsx-backed tabular store. It is not safe for concurrent
// use; the synchronizer and the rebuild engine access it sequentially.
type Store struct {
	path  string
	file  *excelize.File
	index map[string]int // name -> 1-based sheet row
}

// Open loads the workbook at path.
func Open(path string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapIO("open workbook", path, err)
	}
	s := &Store{path: path, file: f}
	if err := s.reindex(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Create initializes a new workbook at path with the header row and
// returns the opened store. An existing file at path is overwritten on
// Flush.
func Create(path string) (*Store, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, errors.WrapIO("create sheet", path, err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.WrapIO("create sheet", path, err)
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, errors.WrapIO("create sheet", path, err)
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, errors.WrapIO("create sheet", path, err)
		}
	}
	s := &Store{path: path, file: f, index: map[string]int{}}
	if err := s.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying workbook without saving.
func (s *Store) Close() error {
	return s.file.Close()
}

// Path returns the workbook path the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// reindex rebuilds the name index from the current sheet contents.
func (s *Store) reindex() error {
	rows, err := s.file.GetRows(SheetName)
	if err != nil {
		return errors.WrapIO("read sheet", s.path, err)
	}
	s.index = make(map[string]int, len(rows))
	for i, cells := range rows {
		row := i + 1
		if row < firstDataRow {
			continue
		}
		if name := strings.TrimSpace(cell(cells, 0)); name != "" {
			s.index[name] = row
		}
	}
	return nil
}

// Rows returns all committed rows in sheet order. Rows with a blank name
// cell are not committed and are skipped.
func (s *Store) Rows() ([]catalog.Entry, error) {
	raw, err := s.file.GetRows(SheetName)
	if err != nil {
		return nil, errors.WrapIO("read sheet", s.path, err)
	}
	entries := make([]catalog.Entry, 0, len(raw))
	for i, cells := range raw {
		if i+1 < firstDataRow {
			continue
		}
		e := fromCells(cells)
		if catalog.Empty(e.Name) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FindByName returns the row with the given display name.
func (s *Store) FindByName(name string) (catalog.Entry, error) {
	row, ok := s.index[strings.TrimSpace(name)]
	if !ok {
		return catalog.Entry{}, errors.NewNotFoundError("game", name)
	}
	cells, err := s.rowCells(row)
	if err != nil {
		return catalog.Entry{}, err
	}
	return fromCells(cells), nil
}

// Write upserts a row: an entry whose name is already present overwrites
// its sheet row in place, anything else is appended at the first empty
// row. The change is in-memory until Flush.
func (s *Store) Write(e catalog.Entry) error {
	if catalog.Empty(e.Name) {
		return errors.NewValidationError("game_name", e.Name, "display name must not be empty")
	}
	name := strings.TrimSpace(e.Name)
	row, ok := s.index[name]
	if !ok {
		var err error
		if row, err = s.FirstEmptyRow(); err != nil {
			return err
		}
	}
	for col, value := range toCells(e) {
		cellName, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return errors.WrapIO("write row", s.path, err)
		}
		if err := s.file.SetCellValue(SheetName, cellName, value); err != nil {
			return errors.WrapIO("write row", s.path, err)
		}
	}
	s.index[name] = row
	return nil
}

// FirstEmptyRow returns the 1-based index of the first data row with a
// blank name cell.
func (s *Store) FirstEmptyRow() (int, error) {
	raw, err := s.file.GetRows(SheetName)
	if err != nil {
		return 0, errors.WrapIO("read sheet", s.path, err)
	}
	for i, cells := range raw {
		row := i + 1
		if row < firstDataRow {
			continue
		}
		if strings.TrimSpace(cell(cells, 0)) == "" {
			return row, nil
		}
	}
	if len(raw) < firstDataRow {
		return firstDataRow, nil
	}
	return len(raw) + 1, nil
}

// Flush saves the workbook back to its path.
func (s *Store) Flush() error {
	if err := s.file.SaveAs(s.path); err != nil {
		return errors.WrapIO("save workbook", s.path, err)
	}
	return nil
}

// rowCells returns the cells of one 1-based sheet row.
func (s *Store) rowCells(row int) ([]string, error) {
	raw, err := s.file.GetRows(SheetName)
	if err != nil {
		return nil, errors.WrapIO("read sheet", s.path, err)
	}
	if row >= 1 && row <= len(raw) {
		return raw[row-1], nil
	}
	return nil, nil
}

// cell returns the idx-th cell of a possibly short row.
func cell(cells []string, idx int) string {
	if idx < len(cells) {
		return cells[idx]
	}
	return ""
}

// fromCells maps one sheet row onto an Entry.
func fromCells(cells []string) catalog.Entry {
	return catalog.Entry{
		Name:           strings.TrimSpace(cell(cells, 0)),
		Platforms:      strings.TrimSpace(cell(cells, 1)),
		Status:         catalog.Status(strings.TrimSpace(cell(cells, 2))),
		ReleaseDate:    strings.TrimSpace(cell(cells, 3)),
		PressScore:     strings.TrimSpace(cell(cells, 4)),
		UserScore:      strings.TrimSpace(cell(cells, 5)),
		MyScore:        strings.TrimSpace(cell(cells, 6)),
		MetacriticURL:  strings.TrimSpace(cell(cells, 7)),
		AvgTimeBeat:    strings.TrimSpace(cell(cells, 8)),
		TrailerURL:     strings.TrimSpace(cell(cells, 9)),
		MyTimeBeat:     strings.TrimSpace(cell(cells, 10)),
		LastLaunchDate: strings.TrimSpace(cell(cells, 11)),
		AdditionalTime: strings.TrimSpace(cell(cells, 12)),
	}
}

// toCells maps an Entry onto the sheet column order.
func toCells(e catalog.Entry) []string {
	return []string{
		e.Name,
		e.Platforms,
		string(e.Status),
		e.ReleaseDate,
		e.PressScore,
		e.UserScore,
		e.MyScore,
		e.MetacriticURL,
		e.AvgTimeBeat,
		e.TrailerURL,
		e.MyTimeBeat,
		e.LastLaunchDate,
		e.AdditionalTime,
	}
}
