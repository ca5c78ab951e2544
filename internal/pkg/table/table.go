package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/airenas/clipper/internal/pkg/status"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

const (
	// ColID is the row key column
	ColID = "id"
	// ColStatus is the optional job status column
	ColStatus = "status"
)

// Row is one table record keyed by column name
type Row map[string]string

// ID returns parsed row id or 0
func (r Row) ID() int {
	res, _ := strconv.Atoi(r[ColID])
	return res
}

// Table is a CSV file backed row store.
// Every operation reads the whole file and, when changed, writes it back.
// Writers in one process are serialized per file path.
type Table struct {
	path    string
	headers []string
	lock    *sync.Mutex
}

var (
	locks   = map[string]*sync.Mutex{}
	locksMu sync.Mutex
)

func lockFor(path string) *sync.Mutex {
	locksMu.Lock()
	defer locksMu.Unlock()
	res, ok := locks[path]
	if !ok {
		res = &sync.Mutex{}
		locks[path] = res
	}
	return res
}

// Open prepares the table file: creates parent dirs and a header only file if missing.
// An existing file is used as is, its columns are not validated.
func Open(path string, headers []string) (*Table, error) {
	if path == "" {
		return nil, errors.New("no table path")
	}
	if len(headers) == 0 {
		return nil, errors.New("no headers")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("can't resolve path '%s': %w", path, err)
	}
	res := &Table{path: abs, lock: lockFor(abs)}
	if !contains(headers, ColID) {
		res.headers = append([]string{ColID}, headers...)
	} else {
		res.headers = append([]string{}, headers...)
	}

	res.lock.Lock()
	defer res.lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("can't create dir for '%s': %w", abs, err)
	}
	if utils.FileExists(abs) {
		goapp.Log.Info().Str("file", abs).Msg("table exists")
		return res, nil
	}
	if err := res.write(&tableData{header: res.headers}); err != nil {
		return nil, fmt.Errorf("can't init table: %w", err)
	}
	goapp.Log.Info().Str("file", abs).Strs("headers", res.headers).Msg("table created")
	return res, nil
}

// Path returns absolute table file path
func (t *Table) Path() string {
	return t.path
}

// Headers returns columns used as the template for new rows
func (t *Table) Headers() []string {
	return append([]string{}, t.headers...)
}

// AppendRows adds rows with consecutive ids, returns the id of the first one.
// Values for columns missing in the file are dropped,
// columns not provided are stored empty, status defaults to pending.
func (t *Table) AppendRows(rows ...Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	t.lock.Lock()
	defer t.lock.Unlock()

	d, err := t.read()
	if err != nil {
		return 0, err
	}
	next := d.maxID() + 1
	for i, r := range rows {
		tr := t.fromTemplate(r)
		tr[ColID] = strconv.Itoa(next + i)
		rec := make([]string, len(d.header))
		for j, h := range d.header {
			rec[j] = tr[h]
		}
		d.rows = append(d.rows, rec)
	}
	if err := t.write(d); err != nil {
		return 0, err
	}
	goapp.Log.Debug().Str("file", t.path).Int("from", next).Int("count", len(rows)).Msg("appended")
	return next, nil
}

// UpdateRow sets provided fields for the row with id.
// Returns false and leaves the file untouched if there is no such row.
// Unknown columns are ignored, id is never changed.
func (t *Table) UpdateRow(id int, fields Row) (bool, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	d, err := t.read()
	if err != nil {
		return false, err
	}
	rec := d.find(id)
	if rec == nil {
		goapp.Log.Warn().Str("file", t.path).Int("ID", id).Msg("no row to update")
		return false, nil
	}
	for k, v := range fields {
		if k == ColID {
			continue
		}
		if j, ok := d.index[k]; ok {
			rec[j] = v
		}
	}
	if err := t.write(d); err != nil {
		return false, err
	}
	return true, nil
}

// GetRow returns the first row with id
func (t *Table) GetRow(id int) (Row, bool, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	d, err := t.read()
	if err != nil {
		return nil, false, err
	}
	rec := d.find(id)
	if rec == nil {
		return nil, false, nil
	}
	return d.toRow(rec), true, nil
}

// GetPendingRows returns rows with status exactly pending
func (t *Table) GetPendingRows() ([]Row, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	d, err := t.read()
	if err != nil {
		return nil, err
	}
	res := []Row{}
	j, ok := d.index[ColStatus]
	if !ok {
		return res, nil
	}
	pending := status.Pending.String()
	for _, rec := range d.rows {
		if rec[j] == pending {
			res = append(res, d.toRow(rec))
		}
	}
	return res, nil
}

func (t *Table) fromTemplate(r Row) Row {
	res := make(Row, len(t.headers))
	for _, h := range t.headers {
		v, ok := r[h]
		if !ok && h == ColStatus {
			v = status.Pending.String()
		}
		res[h] = v
	}
	return res
}

type tableData struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func (t *Table) read() (*tableData, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("can't open table: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("can't read table '%s': %w", t.path, err)
	}
	res := &tableData{header: t.headers}
	if len(recs) > 0 {
		res.header = recs[0]
		recs = recs[1:]
	}
	res.index = make(map[string]int, len(res.header))
	for i, h := range res.header {
		if _, ok := res.index[h]; !ok {
			res.index[h] = i
		}
	}
	for _, rec := range recs {
		for len(rec) < len(res.header) {
			rec = append(rec, "")
		}
		res.rows = append(res.rows, rec)
	}
	return res, nil
}

func (t *Table) write(d *tableData) error {
	f, err := os.CreateTemp(filepath.Dir(t.path), "."+filepath.Base(t.path)+".*")
	if err != nil {
		return fmt.Errorf("can't create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	w := csv.NewWriter(f)
	if err := w.Write(d.header); err != nil {
		f.Close()
		return fmt.Errorf("can't write header: %w", err)
	}
	if err := w.WriteAll(d.rows); err != nil {
		f.Close()
		return fmt.Errorf("can't write rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("can't close temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("can't chmod: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("can't replace table '%s': %w", t.path, err)
	}
	return nil
}

func (d *tableData) maxID() int {
	j, ok := d.index[ColID]
	if !ok {
		return 0
	}
	res := 0
	for _, rec := range d.rows {
		if v, err := strconv.Atoi(rec[j]); err == nil && v > res {
			res = v
		}
	}
	return res
}

func (d *tableData) find(id int) []string {
	j, ok := d.index[ColID]
	if !ok {
		return nil
	}
	for _, rec := range d.rows {
		if v, err := strconv.Atoi(rec[j]); err == nil && v == id {
			return rec
		}
	}
	return nil
}

func (d *tableData) toRow(rec []string) Row {
	res := make(Row, len(d.header))
	for i, h := range d.header {
		if _, ok := res[h]; !ok {
			res[h] = rec[i]
		}
	}
	return res
}

func contains(s []string, v string) bool {
	for _, h := range s {
		if h == v {
			return true
		}
	}
	return false
}
