package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// ErrFileNotFound is returned by ReadFile for a path with no stored facts.
var ErrFileNotFound = errors.New("file not found in facts database")

// FactsReader reads ParseResults back from SQLite.
type FactsReader struct {
	db     *sql.DB
	ownsDB bool
}

// NewFactsReader opens the database at dbPath in read-only mode.
func NewFactsReader(dbPath string) (*FactsReader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &FactsReader{db: db, ownsDB: true}, nil
}

// NewFactsReaderWithDB creates a FactsReader using an existing connection.
func NewFactsReaderWithDB(db *sql.DB) *FactsReader {
	return &FactsReader{db: db}
}

// Close closes the database connection if owned by this reader.
func (r *FactsReader) Close() error {
	if !r.ownsDB || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// LastIndexed returns the RFC 3339 time of the last write, or "" if the
// database was never written.
func (r *FactsReader) LastIndexed() (string, error) {
	return getMetadata(r.db, "last_indexed")
}

type fileRow struct {
	id     string
	result *facts.ParseResult
}

// ReadResults loads every stored file, ordered by path.
func (r *FactsReader) ReadResults(ctx context.Context) ([]*facts.ParseResult, error) {
	files, err := r.queryFiles(ctx, nil)
	if err != nil {
		return nil, err
	}

	results := make([]*facts.ParseResult, 0, len(files))
	for _, f := range files {
		if err := r.loadRecords(ctx, f); err != nil {
			return nil, err
		}
		results = append(results, f.result)
	}
	return results, nil
}

// ReadFile loads the stored facts of one file.
func (r *FactsReader) ReadFile(ctx context.Context, path string) (*facts.ParseResult, error) {
	files, err := r.queryFiles(ctx, sq.Eq{"file_path": path})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err := r.loadRecords(ctx, files[0]); err != nil {
		return nil, err
	}
	return files[0].result, nil
}

// CallSite is a stored call together with the file it occurs in.
type CallSite struct {
	Path string
	Call facts.Call
}

// FindCallers returns every call whose resolved callee is fqn, ordered by
// path and position.
func (r *FactsReader) FindCallers(ctx context.Context, fqn string) ([]CallSite, error) {
	rows, err := sq.Select(
		"f.file_path", "c.caller", "c.callee", "c.call_type", "c.line_number", "c.arguments_count",
	).
		From("calls c").
		Join("files f ON f.file_id = c.file_id").
		Where(sq.Eq{"c.callee": fqn}).
		OrderBy("f.file_path", "c.ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query callers of %s: %w", fqn, err)
	}
	defer rows.Close()

	var sites []CallSite
	for rows.Next() {
		var site CallSite
		call, err := scanCall(rows, &site.Path)
		if err != nil {
			return nil, err
		}
		site.Call = call
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (r *FactsReader) queryFiles(ctx context.Context, where sq.Sqlizer) ([]*fileRow, error) {
	query := sq.Select(
		"file_id", "file_path", "language", "namespace", "module_docstring",
		"file_lines", "error_kind", "error_message", "error_line",
	).
		From("files").
		OrderBy("file_path")
	if where != nil {
		query = query.Where(where)
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*fileRow
	for rows.Next() {
		f := &fileRow{result: &facts.ParseResult{}}
		var errKind, errMessage sql.NullString
		var errLine sql.NullInt64
		if err := rows.Scan(
			&f.id, &f.result.Path, &f.result.Language, &f.result.Namespace, &f.result.ModuleDocstring,
			&f.result.FileLines, &errKind, &errMessage, &errLine,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		if errKind.Valid {
			f.result.Error = &facts.ParseError{
				Kind:    facts.ErrorKind(errKind.String),
				Message: errMessage.String,
				Line:    intPtr(errLine),
			}
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// loadRecords fills the record lists of one file.
func (r *FactsReader) loadRecords(ctx context.Context, f *fileRow) error {
	res := f.result

	symbolIDs, err := r.loadSymbols(ctx, f)
	if err != nil {
		return err
	}
	if err := r.loadAnnotations(ctx, f.id, res, symbolIDs); err != nil {
		return err
	}
	if err := r.loadImports(ctx, f); err != nil {
		return err
	}
	if err := r.loadInheritances(ctx, f); err != nil {
		return err
	}
	if err := r.loadCalls(ctx, f); err != nil {
		return err
	}

	facts.Normalize(res)
	return nil
}

func (r *FactsReader) loadSymbols(ctx context.Context, f *fileRow) (map[string]int, error) {
	rows, err := sq.Select(
		"symbol_id", "name", "kind", "signature", "docstring", "throws", "line_start", "line_end",
	).
		From("symbols").
		Where(sq.Eq{"file_id": f.id}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols of %s: %w", f.result.Path, err)
	}
	defer rows.Close()

	ids := make(map[string]int)
	for rows.Next() {
		var id, kind, throws string
		var sym facts.Symbol
		if err := rows.Scan(&id, &sym.Name, &kind, &sym.Signature, &sym.Docstring, &throws, &sym.LineStart, &sym.LineEnd); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		sym.Kind = facts.SymbolKind(kind)
		if sym.Throws, err = decodeStrings(throws); err != nil {
			return nil, err
		}
		ids[id] = len(f.result.Symbols)
		f.result.Symbols = append(f.result.Symbols, sym)
	}
	return ids, rows.Err()
}

func (r *FactsReader) loadAnnotations(ctx context.Context, fileID string, res *facts.ParseResult, symbolIDs map[string]int) error {
	if len(symbolIDs) == 0 {
		return nil
	}

	rows, err := sq.Select("a.symbol_id", "a.name", "a.arguments").
		From("annotations a").
		Join("symbols s ON s.symbol_id = a.symbol_id").
		Where(sq.Eq{"s.file_id": fileID}).
		OrderBy("s.ordinal", "a.ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query annotations of %s: %w", res.Path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var symbolID, args string
		var a facts.Annotation
		if err := rows.Scan(&symbolID, &a.Name, &args); err != nil {
			return fmt.Errorf("failed to scan annotation: %w", err)
		}
		if a.Arguments, err = decodeArguments(args); err != nil {
			return err
		}
		i, ok := symbolIDs[symbolID]
		if !ok {
			continue
		}
		res.Symbols[i].Annotations = append(res.Symbols[i].Annotations, a)
	}
	return rows.Err()
}

func (r *FactsReader) loadImports(ctx context.Context, f *fileRow) error {
	rows, err := sq.Select("module", "names", "alias", "is_from").
		From("imports").
		Where(sq.Eq{"file_id": f.id}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query imports of %s: %w", f.result.Path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var imp facts.Import
		var names string
		var alias sql.NullString
		if err := rows.Scan(&imp.Module, &names, &alias, &imp.IsFrom); err != nil {
			return fmt.Errorf("failed to scan import: %w", err)
		}
		if imp.Names, err = decodeStrings(names); err != nil {
			return err
		}
		imp.Alias = stringPtr(alias)
		f.result.Imports = append(f.result.Imports, imp)
	}
	return rows.Err()
}

func (r *FactsReader) loadInheritances(ctx context.Context, f *fileRow) error {
	rows, err := sq.Select("child", "parent").
		From("inheritances").
		Where(sq.Eq{"file_id": f.id}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query inheritances of %s: %w", f.result.Path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var inh facts.Inheritance
		if err := rows.Scan(&inh.Child, &inh.Parent); err != nil {
			return fmt.Errorf("failed to scan inheritance: %w", err)
		}
		f.result.Inheritances = append(f.result.Inheritances, inh)
	}
	return rows.Err()
}

func (r *FactsReader) loadCalls(ctx context.Context, f *fileRow) error {
	rows, err := sq.Select("file_id", "caller", "callee", "call_type", "line_number", "arguments_count").
		From("calls").
		Where(sq.Eq{"file_id": f.id}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query calls of %s: %w", f.result.Path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ignored string
		call, err := scanCall(rows, &ignored)
		if err != nil {
			return err
		}
		f.result.Calls = append(f.result.Calls, call)
	}
	return rows.Err()
}

// scanCall scans a leading text column into first, then the call columns.
func scanCall(rows *sql.Rows, first *string) (facts.Call, error) {
	var c facts.Call
	var callee sql.NullString
	var callType string
	var args sql.NullInt64
	if err := rows.Scan(first, &c.Caller, &callee, &callType, &c.LineNumber, &args); err != nil {
		return c, fmt.Errorf("failed to scan call: %w", err)
	}
	c.Callee = stringPtr(callee)
	c.CallType = facts.CallType(callType)
	c.ArgumentsCount = intPtr(args)
	return c, nil
}
