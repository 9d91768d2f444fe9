package dberr

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Kind is the class of a database error as far as migrations are concerned.
type Kind string

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = "none"

	// KindDuplicateObject means the object a statement creates already exists.
	// These errors are tolerated so that migrations can be re-applied.
	KindDuplicateObject Kind = "duplicate-object"

	// KindConnection means the database could not be reached or the connection
	// broke. Reconnecting and retrying may help.
	KindConnection Kind = "connection"

	// KindStatement is any other failure: the statement itself is wrong.
	KindStatement Kind = "statement"
)

var (
	// SQLSTATE codes reported by postgres for objects that already exist.
	pqDuplicateCodes = map[pq.ErrorCode]bool{
		"42P04": true, // duplicate_database
		"42P06": true, // duplicate_schema
		"42P07": true, // duplicate_table
		"42701": true, // duplicate_column
		"42710": true, // duplicate_object
		"42712": true, // duplicate_alias
		"42723": true, // duplicate_function
	}

	// postgres codes outside class 08 that still mean the server went away.
	pqConnectionCodes = map[pq.ErrorCode]bool{
		"57P01": true, // admin_shutdown
		"57P02": true, // crash_shutdown
		"57P03": true, // cannot_connect_now
	}

	mysqlDuplicateNumbers = map[uint16]bool{
		1007: true, // ER_DB_CREATE_EXISTS
		1050: true, // ER_TABLE_EXISTS_ERROR
		1060: true, // ER_DUP_FIELDNAME
		1061: true, // ER_DUP_KEYNAME
		1304: true, // ER_SP_ALREADY_EXISTS
		1359: true, // ER_TRG_ALREADY_EXISTS
		1826: true, // ER_FK_DUP_NAME
	}

	mysqlConnectionNumbers = map[uint16]bool{
		1040: true, // ER_CON_COUNT_ERROR
		1053: true, // ER_SERVER_SHUTDOWN
		2002: true, // CR_CONNECTION_ERROR
		2003: true, // CR_CONN_HOST_ERROR
		2006: true, // CR_SERVER_GONE_ERROR
		2013: true, // CR_SERVER_LOST
	}

	clickhouseDuplicateCodes = map[int32]bool{
		15:  true, // DUPLICATE_COLUMN
		57:  true, // TABLE_ALREADY_EXISTS
		82:  true, // DATABASE_ALREADY_EXISTS
		342: true, // FUNCTION_ALREADY_EXISTS
		446: true, // DICTIONARY_ALREADY_EXISTS
	}

	clickhouseConnectionCodes = map[int32]bool{
		209: true, // SOCKET_TIMEOUT
		210: true, // NETWORK_ERROR
	}
)

// Classify maps a raw driver error onto a Kind. Typed driver errors are
// inspected first. A message containing "already exists" always means a
// duplicate object, whatever code the driver attached to it.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	if kind, ok := classifyDriver(err); ok {
		return kind
	}

	if isConnection(err) {
		return KindConnection
	}

	return byMessage(err)
}

// IsDuplicateObject reports whether err means the target object already exists.
func IsDuplicateObject(err error) bool {
	return Classify(err) == KindDuplicateObject
}

// IsConnection reports whether err is connection shaped and worth a reconnect.
func IsConnection(err error) bool {
	return Classify(err) == KindConnection
}

// Code returns the driver specific error code carried by err, or "" when the
// error does not come from a recognised driver.
func Code(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(int(liteErr.ExtendedCode))
	}

	var chErr *clickhouse.Exception
	if errors.As(err, &chErr) {
		return strconv.Itoa(int(chErr.Code))
	}

	return ""
}

func classifyDriver(err error) (Kind, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqDuplicateCodes[pqErr.Code]:
			return KindDuplicateObject, true
		case pqErr.Code.Class() == "08", pqConnectionCodes[pqErr.Code]:
			return KindConnection, true
		}
		return byMessage(err), true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch {
		case mysqlDuplicateNumbers[myErr.Number]:
			return KindDuplicateObject, true
		case mysqlConnectionNumbers[myErr.Number]:
			return KindConnection, true
		}
		return byMessage(err), true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		msg := strings.ToLower(liteErr.Error())
		switch {
		case strings.Contains(msg, "already exists"), strings.Contains(msg, "duplicate column name"):
			return KindDuplicateObject, true
		case liteErr.Code == sqlite3.ErrCantOpen, liteErr.Code == sqlite3.ErrNotADB:
			return KindConnection, true
		}
		return byMessage(err), true
	}

	var chErr *clickhouse.Exception
	if errors.As(err, &chErr) {
		switch {
		case clickhouseDuplicateCodes[chErr.Code]:
			return KindDuplicateObject, true
		case clickhouseConnectionCodes[chErr.Code]:
			return KindConnection, true
		}
		return byMessage(err), true
	}

	return "", false
}

func byMessage(err error) Kind {
	if strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return KindDuplicateObject
	}
	return KindStatement
}

func isConnection(err error) bool {
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
