package catalog

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

func newID(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}
