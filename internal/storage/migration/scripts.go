package migration

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Script is one versioned DDL file, named NNNN_title.up.sql.
type Script struct {
	Version int
	Name    string
	SQL     string
}

// Statements splits the script into individual statements so a failure can
// name the statement that caused it.
func (s Script) Statements() []string {
	return SplitStatements(s.SQL)
}

// LoadScripts reads the up scripts under dir in ascending version order.
// Down scripts are ignored; migrations here only ever move forward.
func LoadScripts(fsys fs.FS, dir string) ([]Script, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}
	defer func() { _ = src.Close() }()

	version, err := src.First()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read first migration: %w", err)
	}

	var scripts []Script
	for {
		r, identifier, err := src.ReadUp(version)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// down-only version
		case err != nil:
			return nil, fmt.Errorf("failed to read migration %d: %w", version, err)
		default:
			body, readErr := io.ReadAll(r)
			_ = r.Close()
			if readErr != nil {
				return nil, fmt.Errorf("failed to read migration %d: %w", version, readErr)
			}
			scripts = append(scripts, Script{
				Version: int(version),
				Name:    identifier,
				SQL:     string(body),
			})
		}

		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find migration after %d: %w", version, err)
		}
		version = next
	}

	return scripts, nil
}

// SplitStatements splits SQL text on semicolons that are outside quotes and
// comments. Empty statements are dropped.
func SplitStatements(sql string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		inComment  bool
	)

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if inComment {
			if c == '\n' {
				inComment = false
				current.WriteRune(c)
			}
			continue
		}

		if quote != 0 {
			current.WriteRune(c)
			if c == quote {
				quote = 0
			}
			continue
		}

		switch {
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
			i++
		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteRune(c)
		case c == ';':
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
