// Package manifest reads passenger manifest CSV files.
package manifest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/manifest/internal/domain/model"
)

// Column names as they appear in manifest headers.
const (
	colPassengerID = "PassengerId"
	colSurvived    = "Survived"
	colClass       = "Pclass"
	colName        = "Name"
	colSex         = "Sex"
	colAge         = "Age"
	colSibSp       = "SibSp"
	colParch       = "Parch"
	colTicket      = "Ticket"
	colFare        = "Fare"
	colCabin       = "Cabin"
	colEmbarked    = "Embarked"
)

// requiredColumns must be present in every header. Survived is optional:
// unlabelled files carry no outcome.
var requiredColumns = []string{
	colPassengerID, colClass, colName, colSex, colAge, colSibSp,
	colParch, colTicket, colFare, colCabin, colEmbarked,
}

// Reader decodes manifest rows from CSV with a header line. Columns may
// appear in any order; unknown columns are ignored.
type Reader struct {
	r     *csv.Reader
	index map[string]int
	row   int
}

// NewReader reads the header from r and returns a Reader positioned at the
// first data row.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[h] = i
	}
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return &Reader{r: cr, index: index}, nil
}

// Read returns the next row, or io.EOF when the input is exhausted.
func (r *Reader) Read() (model.RawPassenger, error) {
	record, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.RawPassenger{}, io.EOF
		}
		r.row++
		return model.RawPassenger{}, &RowError{Row: r.row, Err: err}
	}
	r.row++
	return r.decode(record)
}

// ReadAll reads rows until EOF, checking ctx between rows.
func (r *Reader) ReadAll(ctx context.Context) ([]model.RawPassenger, error) {
	var rows []model.RawPassenger
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func (r *Reader) cell(record []string, col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (r *Reader) decode(record []string) (model.RawPassenger, error) {
	var (
		p   model.RawPassenger
		err error
	)
	if p.PassengerID, err = r.intCell(record, colPassengerID); err != nil {
		return p, err
	}
	p.Survived = model.SurvivedUnknown
	if _, ok := r.index[colSurvived]; ok {
		if p.Survived, err = r.intCell(record, colSurvived); err != nil {
			return p, err
		}
	}
	if p.PassengerClass, err = r.intCell(record, colClass); err != nil {
		return p, err
	}
	if p.SiblingsSpouses, err = r.intCell(record, colSibSp); err != nil {
		return p, err
	}
	if p.ParentChildren, err = r.intCell(record, colParch); err != nil {
		return p, err
	}
	if p.Age, err = r.floatCell(record, colAge); err != nil {
		return p, err
	}
	if p.Fare, err = r.floatCell(record, colFare); err != nil {
		return p, err
	}

	p.Name = r.cell(record, colName)
	p.Sex = r.cell(record, colSex)
	p.Ticket = r.cell(record, colTicket)
	p.Cabin = r.cell(record, colCabin)
	p.Embarked = r.cell(record, colEmbarked)
	return p, nil
}

func (r *Reader) intCell(record []string, col string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(r.cell(record, col)))
	if err != nil {
		return 0, &RowError{Row: r.row, Column: col, Err: err}
	}
	return v, nil
}

// floatCell returns nil for an empty cell.
func (r *Reader) floatCell(record []string, col string) (*float64, error) {
	s := strings.TrimSpace(r.cell(record, col))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &RowError{Row: r.row, Column: col, Err: err}
	}
	return &v, nil
}

// LoadFiles reads every path in order and concatenates their rows.
func LoadFiles(ctx context.Context, paths ...string) ([]model.RawPassenger, error) {
	var rows []model.RawPassenger
	for _, path := range paths {
		got, err := loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, got...)
	}
	return rows, nil
}

func loadFile(ctx context.Context, path string) ([]model.RawPassenger, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from operator config
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, err := r.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
