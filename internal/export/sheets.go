package export

import (
	"context"
	"fmt"

	"github.com/hyperjump/tally/internal/models"
)

// RecordReader is the read side of the record store used while assembling sheets.
type RecordReader interface {
	Counter
	FetchByID(ctx context.Context, id int64) (*models.User, error)
}

// detailLabels is the fixed header of a per-record worksheet.
var detailLabels = []string{models.FieldID, models.FieldName, models.FieldEmail}

// SheetSource produces one worksheet. Title is known up front; the rows are filled in by
// Populate so that sheet-level hooks can run around it.
type SheetSource interface {
	Title() string
	Populate(ctx context.Context, ws *models.Worksheet) error
}

// Assembler turns an export request into sheet sources.
type Assembler struct {
	labels     models.LabelTable
	preparer   *Preparer
	derived    []DerivedColumn
	reader     RecordReader
	sheetTitle string
}

// NewAssembler returns an assembler. sheetTitle names the worksheet in single mode.
func NewAssembler(reader RecordReader, labels models.LabelTable, preparer *Preparer, sheetTitle string, derived ...DerivedColumn) *Assembler {
	if preparer == nil {
		preparer = NewPreparer()
	}
	return &Assembler{
		labels:     labels,
		preparer:   preparer,
		derived:    derived,
		reader:     reader,
		sheetTitle: sheetTitle,
	}
}

// Sources validates req and returns its sheet sources in record order: exactly one in
// ModeSingle, one per record in ModePerRecord. An empty request fails with EmptyExportError.
func (a *Assembler) Sources(req *models.ExportRequest) ([]SheetSource, error) {
	if len(req.Records) == 0 {
		return nil, &EmptyExportError{Target: req.Target}
	}
	switch req.Mode {
	case models.ModeSingle, "":
		return a.singleSource(req.Records)
	case models.ModePerRecord:
		return a.perRecordSources(req.Records)
	default:
		return nil, &ConfigurationError{Msg: fmt.Sprintf("unknown export mode %q", req.Mode)}
	}
}

// Assemble builds every worksheet of req without styling or hooks.
func (a *Assembler) Assemble(ctx context.Context, req *models.ExportRequest) ([]*models.Worksheet, error) {
	sources, err := a.Sources(req)
	if err != nil {
		return nil, err
	}
	sheets := make([]*models.Worksheet, 0, len(sources))
	for _, src := range sources {
		ws := &models.Worksheet{Title: src.Title()}
		if err := src.Populate(ctx, ws); err != nil {
			return nil, err
		}
		sheets = append(sheets, ws)
	}
	return sheets, nil
}

func (a *Assembler) singleSource(records []models.Fields) ([]SheetSource, error) {
	prepared := a.preparer.Prepare(records)
	trailing := make([]string, len(a.derived))
	for i, d := range a.derived {
		trailing[i] = d.Label
	}
	header, err := DeriveHeaders(prepared, a.labels, trailing...)
	if err != nil {
		return nil, err
	}
	return []SheetSource{&singleSheet{
		title:   a.sheetTitle,
		labels:  header.Labels,
		records: prepared,
		mapper:  NewRowMapper(header.Keys, a.reader, a.derived...),
	}}, nil
}

func (a *Assembler) perRecordSources(records []models.Fields) ([]SheetSource, error) {
	mapper := NewRowMapper(detailLabels, nil)
	sources := make([]SheetSource, len(records))
	for i, rec := range records {
		name, ok := rec.Get(models.FieldName)
		if !ok {
			return nil, &RowMappingError{Row: i, Key: models.FieldName, Reason: "missing field"}
		}
		rawID, ok := rec.Get(models.FieldID)
		if !ok {
			return nil, &RowMappingError{Row: i, Key: models.FieldID, Reason: "missing field"}
		}
		id, err := toInt64(rawID)
		if err != nil {
			return nil, &RowMappingError{Row: i, Key: models.FieldID, Err: err}
		}
		sources[i] = &recordSheet{
			row:    i,
			title:  fmt.Sprint(name),
			id:     id,
			reader: a.reader,
			mapper: mapper,
		}
	}
	return sources, nil
}

type singleSheet struct {
	title   string
	labels  []string
	records []models.Fields
	mapper  *RowMapper
}

func (s *singleSheet) Title() string { return s.title }

func (s *singleSheet) Populate(ctx context.Context, ws *models.Worksheet) error {
	ws.Header = append([]string(nil), s.labels...)
	ws.Rows = make([][]any, 0, len(s.records))
	for i, rec := range s.records {
		cells, err := s.mapper.Map(ctx, i, rec)
		if err != nil {
			return err
		}
		ws.Rows = append(ws.Rows, cells)
	}
	return nil
}

// recordSheet re-reads its record from the store so the row reflects the stored state at
// the time the sheet is populated, not the state captured in the request.
type recordSheet struct {
	row    int
	title  string
	id     int64
	reader RecordReader
	mapper *RowMapper
}

func (s *recordSheet) Title() string { return s.title }

func (s *recordSheet) Populate(ctx context.Context, ws *models.Worksheet) error {
	u, err := s.reader.FetchByID(ctx, s.id)
	if err != nil {
		return &RowMappingError{Row: s.row, Reason: "refetch", Err: err}
	}
	cells, err := s.mapper.Map(ctx, s.row, u.Fields())
	if err != nil {
		return err
	}
	ws.Header = append([]string(nil), detailLabels...)
	ws.Rows = [][]any{cells}
	return nil
}
