package db

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// FoldLowerFunc is a Unicode-aware lower() for case-insensitive matching.
// SQLite's built-in lower() only folds ASCII letters.
const FoldLowerFunc = "fold_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(FoldLowerFunc, 1, foldLower)
}

func foldLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
