package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// FactsWriter stores batches of ParseResults. Each write replaces the stored
// snapshot, matching the JSON writers which rewrite their output file.
type FactsWriter struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
}

// Open opens (creating if needed) a facts database at dbPath with foreign
// keys enabled on every pooled connection, and ensures the schema exists.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewFactsWriter opens the database at dbPath and owns the connection.
func NewFactsWriter(dbPath string) (*FactsWriter, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &FactsWriter{db: db, ownsDB: true}, nil
}

// NewFactsWriterWithDB creates a FactsWriter using an existing connection.
// The schema must already exist; the caller closes db.
func NewFactsWriterWithDB(db *sql.DB) *FactsWriter {
	return &FactsWriter{db: db, ownsDB: false}
}

// Close closes the database connection if owned by this writer.
func (w *FactsWriter) Close() error {
	if !w.ownsDB || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// WriteResults replaces the stored snapshot with results in one transaction.
func (w *FactsWriter) WriteResults(ctx context.Context, results []*facts.ParseResult) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Children first so the delete never depends on cascades
	for _, table := range []string{"annotations", "symbols", "imports", "inheritances", "calls", "files"} {
		if _, err := sq.Delete(table).RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear existing data (%s): %w", table, err)
		}
	}

	stmts, err := prepareInserts(ctx, tx)
	if err != nil {
		return err
	}
	defer stmts.close()

	indexedAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stmts.writeFile(ctx, r, indexedAt); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.Path, err)
		}
	}

	if err := setMetadata(tx, "last_indexed", indexedAt); err != nil {
		return err
	}
	if err := setMetadata(tx, "file_count", strconv.Itoa(len(results))); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

type insertStatements struct {
	file, symbol, annotation, imp, inheritance, call *sql.Stmt
}

type preparedInsert struct {
	name    string
	builder sq.InsertBuilder
	target  **sql.Stmt
}

// prepareInserts builds each INSERT once with Squirrel and prepares it.
func prepareInserts(ctx context.Context, tx *sql.Tx) (*insertStatements, error) {
	s := &insertStatements{}
	inserts := []preparedInsert{
		{"files", sq.Insert("files").Columns(
			"file_id", "file_path", "language", "namespace", "module_docstring",
			"file_lines", "error_kind", "error_message", "error_line", "indexed_at",
		).Values("", "", "", "", "", 0, nil, nil, nil, ""), &s.file},

		{"symbols", sq.Insert("symbols").Columns(
			"symbol_id", "file_id", "ordinal", "name", "kind",
			"signature", "docstring", "throws", "line_start", "line_end",
		).Values("", "", 0, "", "", "", "", "", 0, 0), &s.symbol},

		{"annotations", sq.Insert("annotations").Columns(
			"annotation_id", "symbol_id", "ordinal", "name", "arguments",
		).Values("", "", 0, "", ""), &s.annotation},

		{"imports", sq.Insert("imports").Columns(
			"import_id", "file_id", "ordinal", "module", "names", "alias", "is_from",
		).Values("", "", 0, "", "", nil, 0), &s.imp},

		{"inheritances", sq.Insert("inheritances").Columns(
			"inheritance_id", "file_id", "ordinal", "child", "parent",
		).Values("", "", 0, "", ""), &s.inheritance},

		{"calls", sq.Insert("calls").Columns(
			"call_id", "file_id", "ordinal", "caller", "callee",
			"call_type", "line_number", "arguments_count",
		).Values("", "", 0, "", nil, "", 0, nil), &s.call},
	}

	for _, ins := range inserts {
		// Placeholder values only fix the column count
		sqlStr, _, err := ins.builder.ToSql()
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to build %s insert: %w", ins.name, err)
		}
		stmt, err := tx.PrepareContext(ctx, sqlStr)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to prepare %s insert: %w", ins.name, err)
		}
		*ins.target = stmt
	}
	return s, nil
}

func (s *insertStatements) close() {
	for _, stmt := range []*sql.Stmt{s.file, s.symbol, s.annotation, s.imp, s.inheritance, s.call} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (s *insertStatements) writeFile(ctx context.Context, r *facts.ParseResult, indexedAt string) error {
	fileID := uuid.New().String()

	var errKind, errMessage sql.NullString
	var errLine sql.NullInt64
	if r.Error != nil {
		errKind = sql.NullString{String: string(r.Error.Kind), Valid: true}
		errMessage = sql.NullString{String: r.Error.Message, Valid: true}
		errLine = nullInt(r.Error.Line)
	}

	_, err := s.file.ExecContext(ctx,
		fileID, r.Path, r.Language, r.Namespace, r.ModuleDocstring,
		r.FileLines, errKind, errMessage, errLine, indexedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	for i, sym := range r.Symbols {
		if err := s.writeSymbol(ctx, fileID, i, sym); err != nil {
			return err
		}
	}

	for i, imp := range r.Imports {
		names, err := encodeStrings(imp.Names)
		if err != nil {
			return err
		}
		_, err = s.imp.ExecContext(ctx,
			uuid.New().String(), fileID, i, imp.Module, names, nullString(imp.Alias), boolToInt(imp.IsFrom),
		)
		if err != nil {
			return fmt.Errorf("failed to insert import %s: %w", imp.Module, err)
		}
	}

	for i, inh := range r.Inheritances {
		_, err := s.inheritance.ExecContext(ctx, uuid.New().String(), fileID, i, inh.Child, inh.Parent)
		if err != nil {
			return fmt.Errorf("failed to insert inheritance %s -> %s: %w", inh.Child, inh.Parent, err)
		}
	}

	for i, c := range r.Calls {
		_, err := s.call.ExecContext(ctx,
			uuid.New().String(), fileID, i, c.Caller, nullString(c.Callee),
			string(c.CallType), c.LineNumber, nullInt(c.ArgumentsCount),
		)
		if err != nil {
			return fmt.Errorf("failed to insert call at line %d: %w", c.LineNumber, err)
		}
	}
	return nil
}

func (s *insertStatements) writeSymbol(ctx context.Context, fileID string, ordinal int, sym facts.Symbol) error {
	symbolID := uuid.New().String()
	throws, err := encodeStrings(sym.Throws)
	if err != nil {
		return err
	}

	_, err = s.symbol.ExecContext(ctx,
		symbolID, fileID, ordinal, sym.Name, string(sym.Kind),
		sym.Signature, sym.Docstring, throws, sym.LineStart, sym.LineEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to insert symbol %s: %w", sym.Name, err)
	}

	for i, a := range sym.Annotations {
		args, err := encodeArguments(a.Arguments)
		if err != nil {
			return err
		}
		if _, err := s.annotation.ExecContext(ctx, uuid.New().String(), symbolID, i, a.Name, args); err != nil {
			return fmt.Errorf("failed to insert annotation %s on %s: %w", a.Name, sym.Name, err)
		}
	}
	return nil
}
