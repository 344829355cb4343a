package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/service"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/photo"
)

// ── Dependents ───────────────────────────────────────────────────────────────

func dependentsFromWire(in []wireDependent) []types.Dependent {
	out := make([]types.Dependent, 0, len(in))
	for _, d := range in {
		out = append(out, types.Dependent{FullName: d.FullName, Age: d.Age.val})
	}
	return out
}

// decodeDependentsField parses the JSON array carried in a form field.
func decodeDependentsField(raw string) ([]types.Dependent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var wire []wireDependent
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, err
	}
	return dependentsFromWire(wire), nil
}

// ── Registration form ────────────────────────────────────────────────────────

func detailsFromForm(c *gin.Context) types.VisitDetails {
	return types.VisitDetails{
		KnownAs:                      c.PostForm("known_as"),
		Address:                      c.PostForm("address"),
		PhoneNumber:                  c.PostForm("phone_number"),
		Unit:                         c.PostForm("unit"),
		ReasonForVisit:               c.PostForm("reason_for_visit"),
		VisitorType:                  c.PostForm("type"),
		CompanyName:                  c.PostForm("company_name"),
		MandatoryAcknowledgmentTaken: formBool(c.PostForm("mandatory_acknowledgment_taken")),
	}
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

// registerInputFromForm builds a RegisterInput from an already parsed
// multipart form. A missing photo is not an error.
func registerInputFromForm(c *gin.Context, maxPhoto int64) (service.RegisterInput, error) {
	deps, err := decodeDependentsField(c.PostForm("dependents"))
	if err != nil {
		return service.RegisterInput{}, fmt.Errorf("dependents: %w", err)
	}

	in := service.RegisterInput{
		FirstName:  c.PostForm("first_name"),
		LastName:   c.PostForm("last_name"),
		Details:    detailsFromForm(c),
		Dependents: deps,
	}

	fh, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil
	case err != nil:
		return service.RegisterInput{}, fmt.Errorf("photo: %w", err)
	}

	up, err := readUpload(fh, maxPhoto)
	if err != nil {
		return service.RegisterInput{}, err
	}
	in.Photo = up
	return in, nil
}

func readUpload(fh *multipart.FileHeader, maxPhoto int64) (*photo.Upload, error) {
	if fh.Size > maxPhoto {
		return nil, photo.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhoto+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > maxPhoto {
		return nil, photo.ErrTooLarge
	}
	return &photo.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
