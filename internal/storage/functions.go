package storage

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// FoldFunc is the SQL scalar that Unicode case-folds its text argument.
// SQLite's LIKE only folds ASCII, so text filters compare folded values.
const FoldFunc = "fold"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(FoldFunc, 1, fold); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", FoldFunc, err))
	}
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return v, nil
	}
}
