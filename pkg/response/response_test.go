package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	return e.NewContext(req, rec), rec
}

func TestPaginated_ComputesTotalPagesCorrectly(t *testing.T) {
	c, rec := newContext()

	// totalCount=45, pageSize=20 -> totalPages = 3
	if err := Paginated(c, []int{1, 2, 3}, 2, 20, 45); err != nil {
		t.Fatalf("Paginated returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if !body.Success {
		t.Errorf("expected Success=true, got false")
	}
	if body.Page != 2 || body.PageSize != 20 || body.TotalCount != 45 {
		t.Errorf("unexpected pagination fields: %+v", body)
	}
	if body.TotalPages != 3 {
		t.Errorf("expected TotalPages=3, got %d", body.TotalPages)
	}
}

func TestConflict_Returns409WithError(t *testing.T) {
	c, rec := newContext()

	if err := Conflict(c, errors.New("message is referenced by a schedule")); err != nil {
		t.Fatalf("Conflict returned error: %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body.Success {
		t.Errorf("expected Success=false, got true")
	}
	if body.Error == "" {
		t.Errorf("expected error message, got empty string")
	}
}
