package mmghttp

import (
	"net/http"

	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/query"
)

// statusFor maps the abstract error kinds of spec §7 onto an HTTP
// status code.
func statusFor(err error) int {
	switch err.(type) {
	case *mmgdb.NotFoundError:
		return http.StatusNotFound
	case *mmgdb.SchemaError, *mmgdb.DocumentError:
		return http.StatusBadRequest
	case *mmgdb.ConflictError:
		return http.StatusConflict
	case *query.ParseError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
