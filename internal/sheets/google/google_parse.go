package google

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	ports "cajas/internal/sheets"

	"google.golang.org/api/googleapi"
)

var valueRenders = []string{"FORMATTED_VALUE", "UNFORMATTED_VALUE", "FORMULA"}

func parseValueRender(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return valueRenders[0], nil
	}
	for _, v := range valueRenders {
		if v == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid GOOGLE_VALUE_RENDER %q: must be one of %v", s, valueRenders)
}

// quoteSheet turns a worksheet title into an A1 range covering the whole
// sheet. Titles with spaces or accents must be quoted; quotes are doubled.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// classifyError maps the API's "Unable to parse range" answer for an
// unknown worksheet to ports.ErrSheetNotFound.
func classifyError(sheet string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(gerr.Message), "unable to parse range") {
		return fmt.Errorf("%w: %s", ports.ErrSheetNotFound, sheet)
	}
	return fmt.Errorf("read %s: %w", quoteSheet(sheet), err)
}
