package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// defaultMaxUpload caps a registration photo when no limit is configured.
	defaultMaxUpload = 5 << 20

	// formOverhead is the room left for the text fields of a multipart
	// registration on top of the photo itself.
	formOverhead = 1 << 20

	// maxJSONBody caps every JSON request body.
	maxJSONBody = 64 << 10

	adminPasswordHeader = "X-Admin-Password"
)

var errBadID = errors.New("invalid id")

// flexID accepts an id sent as a JSON number or as a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	n, ok, err := parseFlexInt(b)
	if err != nil {
		return errBadID
	}
	if !ok {
		*f = 0
		return nil
	}
	*f = flexID(n)
	return nil
}

// flexAge is an optional age sent as a number, a numeric string, "" or null.
type flexAge struct {
	val *int
}

func (a *flexAge) UnmarshalJSON(b []byte) error {
	n, ok, err := parseFlexInt(b)
	if err != nil {
		return fmt.Errorf("invalid age %s", b)
	}
	if !ok {
		a.val = nil
		return nil
	}
	v := int(n)
	a.val = &v
	return nil
}

// parseFlexInt decodes a JSON number or quoted number. ok is false for
// null and blank strings.
func parseFlexInt(b []byte) (n int64, ok bool, err error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false, nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
	}

	n, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

type wireDependent struct {
	FullName string  `json:"full_name"`
	Age      flexAge `json:"age"`
}

// readJSON binds a bounded JSON body into v. An empty body leaves v at
// its zero value.
func readJSON(c *gin.Context, v any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
