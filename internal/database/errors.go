package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ErrorFields extracts PostgreSQL diagnostics from err for structured logs.
// Other drivers only contribute the error itself.
func ErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields,
			zap.String("pg_code", pgErr.Code),
			zap.String("pg_constraint", pgErr.ConstraintName),
			zap.String("pg_table", pgErr.TableName),
		)
	}
	return fields
}
