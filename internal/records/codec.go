package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// utf8BOM is written at the start of every output file so spreadsheet
// applications detect the encoding of the Thai columns.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MalformedInputError reports a CSV file that does not carry a declared column.
type MalformedInputError struct {
	// Line is the 1-based line of the offending row; the header is line 1.
	Line   int
	Column string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: column %q: %s", e.Line, e.Column, e.Reason)
}

// DecodeInputs reads a creation-batch file. Every column in InputColumns must
// be present in the header and in every row; empty values are accepted.
// Values are trimmed but usernames are not normalized.
func DecodeInputs(r io.Reader) ([]ProvisionInput, error) {
	return decodeTable(r, InputColumns, func(cell func(string) string) ProvisionInput {
		get := func(col string) string { return strings.TrimSpace(cell(col)) }
		return ProvisionInput{
			Username:       get("username"),
			FirstNameTH:    get("fname_th"),
			LastNameTH:     get("lname_th"),
			FirstNameEN:    get("fname_en"),
			LastNameEN:     get("lname_en"),
			Tel:            get("tel"),
			Mobile:         get("mobile"),
			NationalID:     get("cid"),
			SecondaryEmail: get("secondary_email"),
			Note:           get("note"),
		}
	})
}

// DecodeResults reads a creation-result file written by a ResultWriter.
// Values are returned exactly as stored.
func DecodeResults(r io.Reader) ([]ProvisionResult, error) {
	return decodeTable(r, ResultColumns, func(get func(string) string) ProvisionResult {
		in := ProvisionInput{
			Username:       get("username"),
			FirstNameTH:    get("fname_th"),
			LastNameTH:     get("lname_th"),
			FirstNameEN:    get("fname_en"),
			LastNameEN:     get("lname_en"),
			Tel:            get("tel"),
			Mobile:         get("mobile"),
			NationalID:     get("cid"),
			SecondaryEmail: get("secondary_email"),
			Note:           get("note"),
		}
		return ProvisionResult{ProvisionInput: in, Password: get("password")}
	})
}

// DecodeAccounts reads an account listing file. Values are returned exactly
// as stored.
func DecodeAccounts(r io.Reader) ([]ListedAccount, error) {
	return decodeTable(r, AccountColumns, func(get func(string) string) ListedAccount {
		return ListedAccount{
			DisplayName: get("displayName"),
			FullName:    get("fullName"),
			Email:       get("email"),
			Created:     get("created"),
			Updated:     get("updated"),
			LoggedIn:    get("loggedIn"),
		}
	})
}

func decodeTable[T any](r io.Reader, columns []string, build func(get func(string) string) T) ([]T, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1 // row width is checked per column below

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{Line: 1, Reason: "missing header row"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, &MalformedInputError{Line: 1, Column: col, Reason: "missing from header"}
		}
	}

	var out []T
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		for _, col := range columns {
			if index[col] >= len(row) {
				return nil, &MalformedInputError{Line: line, Column: col, Reason: "missing from row"}
			}
		}
		out = append(out, build(func(col string) string {
			return row[index[col]]
		}))
	}
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// Writer streams records of one type to a CSV file. Each Write is flushed
// immediately so rows already written survive a crash later in the batch.
type Writer[T any] struct {
	csv *csv.Writer
	row func(T) []string
}

func newWriter[T any](w io.Writer, header []string, row func(T) []string) (*Writer[T], error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return nil, fmt.Errorf("failed to write byte order mark: %w", err)
	}
	out := &Writer[T]{csv: csv.NewWriter(w), row: row}
	if err := out.writeRow(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return out, nil
}

// Write appends one record and flushes it.
func (w *Writer[T]) Write(rec T) error {
	return w.writeRow(w.row(rec))
}

func (w *Writer[T]) writeRow(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// NewResultWriter writes the BOM and the ResultColumns header to w.
func NewResultWriter(w io.Writer) (*Writer[ProvisionResult], error) {
	return newWriter(w, ResultColumns, resultRow)
}

// AppendResultWriter writes result rows to w without a BOM or header, for
// extending a file that already has them.
func AppendResultWriter(w io.Writer) *Writer[ProvisionResult] {
	return &Writer[ProvisionResult]{csv: csv.NewWriter(w), row: resultRow}
}

// NewAccountWriter writes the BOM and the AccountColumns header to w.
func NewAccountWriter(w io.Writer) (*Writer[ListedAccount], error) {
	return newWriter(w, AccountColumns, accountRow)
}

// EncodeResults writes a complete creation-result file.
func EncodeResults(w io.Writer, results []ProvisionResult) error {
	return encodeAll(w, results, NewResultWriter)
}

// EncodeAccounts writes a complete account listing file.
func EncodeAccounts(w io.Writer, accounts []ListedAccount) error {
	return encodeAll(w, accounts, NewAccountWriter)
}

func encodeAll[T any](w io.Writer, recs []T, open func(io.Writer) (*Writer[T], error)) error {
	cw, err := open(w)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func resultRow(r ProvisionResult) []string {
	return []string{
		r.Username,
		r.Password,
		r.FirstNameTH,
		r.LastNameTH,
		r.FirstNameEN,
		r.LastNameEN,
		r.Tel,
		r.Mobile,
		r.NationalID,
		r.SecondaryEmail,
		r.Note,
	}
}

func accountRow(a ListedAccount) []string {
	return []string{a.DisplayName, a.FullName, a.Email, a.Created, a.Updated, a.LoggedIn}
}
