package httpapi_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

// ── Register ─────────────────────────────────────────────────────────────────

func TestRegister_CreatesVisitorVisitAndPhoto(t *testing.T) {
	e := newTestServer(t)

	resp := e.register(t, janeFields(), pngBytes(t))
	expectStatus(t, resp, http.StatusCreated)

	var reg types.RegisterResult
	decode(t, resp, &reg)
	if reg.VisitorID == 0 || reg.VisitID == 0 {
		t.Fatalf("expected ids, got %+v", reg)
	}

	roster := e.get(t, "/api/visitors")
	expectStatus(t, roster, http.StatusOK)

	var recs []types.VisitRecord
	decode(t, roster, &recs)
	if len(recs) != 1 {
		t.Fatalf("expected 1 on-site visitor, got %d", len(recs))
	}
	rec := recs[0]
	if !rec.MandatoryAcknowledgmentTaken {
		t.Error("expected acknowledgment flag from \"on\"")
	}
	if len(rec.Dependents) != 2 {
		t.Fatalf("expected 2 dependents, got %d", len(rec.Dependents))
	}
	if rec.Dependents[0].Age == nil || *rec.Dependents[0].Age != 7 {
		t.Errorf("expected string age \"7\" stored as 7, got %v", rec.Dependents[0].Age)
	}
	if rec.Dependents[1].Age != nil {
		t.Errorf("expected null age, got %v", *rec.Dependents[1].Age)
	}
	if !strings.HasPrefix(rec.PhotoURL, "/uploads/visitors/") {
		t.Fatalf("expected photo under /uploads/visitors/, got %q", rec.PhotoURL)
	}

	img := e.get(t, rec.PhotoURL)
	expectStatus(t, img, http.StatusOK)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.register(t, janeFields(), nil), http.StatusCreated)

	resp := e.register(t, janeFields(), nil)
	expectStatus(t, resp, http.StatusConflict)

	var body errorBody
	decode(t, resp, &body)
	if body.Error != "duplicate_visitor" || !strings.Contains(body.Message, "Jane Doe") {
		t.Errorf("unexpected error body %+v", body)
	}
}

func TestRegister_MissingNameIsBadRequest(t *testing.T) {
	e := newTestServer(t)

	fields := janeFields()
	delete(fields, "last_name")
	expectStatus(t, e.register(t, fields, nil), http.StatusBadRequest)

	if n := e.count(t, `SELECT COUNT(*) FROM visitors`); n != 0 {
		t.Errorf("expected no visitor written, got %d", n)
	}
}

func TestRegister_BadDependentsJSON(t *testing.T) {
	e := newTestServer(t)

	fields := janeFields()
	fields["dependents"] = `[{"full_name":"Sam","age":"seven"}]`
	expectStatus(t, e.register(t, fields, nil), http.StatusBadRequest)
}

func TestRegister_NonImagePhotoRejected(t *testing.T) {
	e := newTestServer(t)

	resp := e.register(t, janeFields(), []byte("definitely not a png"))
	expectStatus(t, resp, http.StatusBadRequest)

	if n := e.count(t, `SELECT COUNT(*) FROM visitors`); n != 0 {
		t.Errorf("expected no visitor written, got %d", n)
	}
}

func TestRegister_OversizedBodyRejected(t *testing.T) {
	e := newTestServer(t)

	resp := e.register(t, janeFields(), bytes.Repeat([]byte{0xFF}, 1<<20+512<<10))
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)
}

// ── Sign in / out ────────────────────────────────────────────────────────────

func TestSignOutThenSignIn(t *testing.T) {
	e := newTestServer(t)

	var reg types.RegisterResult
	decode(t, e.register(t, janeFields(), nil), &reg)
	id := itoa(reg.VisitorID)

	expectStatus(t, e.postJSON(t, "/api/exit-visitor/"+id, ""), http.StatusOK)
	expectStatus(t, e.postJSON(t, "/api/exit-visitor/"+id, ""), http.StatusNotFound)

	var roster []types.VisitRecord
	decode(t, e.get(t, "/api/visitors"), &roster)
	if len(roster) != 0 {
		t.Fatalf("expected empty roster after sign-out, got %d", len(roster))
	}

	// id sent as a string is accepted
	resp := e.postJSON(t, "/api/login", `{"id":"`+id+`"}`)
	expectStatus(t, resp, http.StatusOK)

	var res types.SignInResult
	decode(t, resp, &res)
	if res.Visit.ID == reg.VisitID {
		t.Error("expected a new visit on sign-in")
	}
	if res.Visit.Address != "12 Elm Street" || len(res.Dependents) != 2 {
		t.Errorf("expected details and dependents copied forward, got %+v", res)
	}
}

func TestSignIn_BadIDs(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.postJSON(t, "/api/login", `{"id":"abc"}`), http.StatusBadRequest)
	expectStatus(t, e.postJSON(t, "/api/login", `{}`), http.StatusBadRequest)
	expectStatus(t, e.postJSON(t, "/api/login", `{"id":999}`), http.StatusNotFound)
	expectStatus(t, e.postJSON(t, "/api/exit-visitor/abc", ""), http.StatusBadRequest)
}

func TestUpdateVisitorDetails(t *testing.T) {
	e := newTestServer(t)

	var reg types.RegisterResult
	decode(t, e.register(t, janeFields(), nil), &reg)

	resp := e.postJSON(t, "/api/update-visitor-details", `{
		"id": `+itoa(reg.VisitorID)+`,
		"address": "9 Oak Lane",
		"unit": "7C",
		"type": "Contractor",
		"additional_dependents": [{"full_name": "Lee Doe", "age": 3}]
	}`)
	expectStatus(t, resp, http.StatusCreated)

	var body struct {
		ID int64 `json:"id"`
	}
	decode(t, resp, &body)
	if body.ID == 0 || body.ID == reg.VisitID {
		t.Fatalf("expected a new visit id, got %d", body.ID)
	}

	var roster []types.VisitRecord
	decode(t, e.get(t, "/api/visitors"), &roster)
	if len(roster) != 1 || roster[0].Address != "9 Oak Lane" || len(roster[0].Dependents) != 1 {
		t.Errorf("expected the updated visit as the only open one, got %+v", roster)
	}

	expectStatus(t, e.postJSON(t, "/api/update-visitor-details", `{"id": 424242}`), http.StatusNotFound)
	expectStatus(t, e.postJSON(t, "/api/update-visitor-details", `{"address": "x"}`), http.StatusBadRequest)
}

func TestJSONBodies_EmptyAndOversized(t *testing.T) {
	e := newTestServer(t)

	// an empty or blank body binds as zero values
	expectStatus(t, e.postJSON(t, "/api/login", "  \n"), http.StatusBadRequest)
	expectStatus(t, e.postJSON(t, "/api/authorize-history", ""), http.StatusForbidden)

	huge := `{"id":1,"pad":"` + strings.Repeat("x", 70<<10) + `"}`
	resp := e.postJSON(t, "/api/login", huge)
	expectStatus(t, resp, http.StatusBadRequest)

	var body errorBody
	decode(t, resp, &body)
	if body.Error != "bad_json" {
		t.Errorf("expected bad_json for an oversized body, got %+v", body)
	}
}

// ── Missed visit ─────────────────────────────────────────────────────────────

func TestRecordMissedVisit(t *testing.T) {
	e := newTestServer(t)

	var reg types.RegisterResult
	decode(t, e.register(t, janeFields(), nil), &reg)
	id := itoa(reg.VisitorID)

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp := e.postJSON(t, "/api/record-missed-visit", `{"visitorId":`+id+`,"pastEntryTime":"`+future+`"}`)
	expectStatus(t, resp, http.StatusBadRequest)

	var bad errorBody
	decode(t, resp, &bad)
	if bad.Message != "Invalid or future entry time provided." {
		t.Errorf("unexpected message %q", bad.Message)
	}

	resp = e.postJSON(t, "/api/record-missed-visit", `{"visitorId":`+id+`,"pastEntryTime":"garbage"}`)
	expectStatus(t, resp, http.StatusBadRequest)
	decode(t, resp, &bad)
	if bad.Message != "Invalid or future entry time provided." {
		t.Errorf("expected the same message for unparsable input, got %q", bad.Message)
	}

	past := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339)
	resp = e.postJSON(t, "/api/record-missed-visit", `{"visitorId":"`+id+`","pastEntryTime":"`+past+`"}`)
	expectStatus(t, resp, http.StatusOK)

	var res types.MissedVisitResult
	decode(t, resp, &res)
	if !res.Entry.Before(res.Exit) {
		t.Errorf("expected entry before exit, got %v / %v", res.Entry, res.Exit)
	}
}

// ── Ban / unban ──────────────────────────────────────────────────────────────

func TestBanFlow(t *testing.T) {
	e := newTestServer(t)

	var reg types.RegisterResult
	decode(t, e.register(t, janeFields(), nil), &reg)
	id := itoa(reg.VisitorID)

	expectStatus(t, e.postJSON(t, "/api/ban-visitor/"+id, `{"admin_password":"nope"}`), http.StatusForbidden)
	expectStatus(t, e.postJSON(t, "/api/ban-visitor/"+id, ""), http.StatusForbidden)
	expectStatus(t, e.postJSON(t, "/api/ban-visitor/x", `{"admin_password":"`+adminSecret+`"}`), http.StatusBadRequest)
	expectStatus(t, e.postJSON(t, "/api/ban-visitor/999", `{"admin_password":"`+adminSecret+`"}`), http.StatusNotFound)

	expectStatus(t, e.postJSON(t, "/api/ban-visitor/"+id, `{"admin_password":"`+adminSecret+`"}`), http.StatusOK)

	// banning does not sign the visitor out
	var roster []types.VisitRecord
	decode(t, e.get(t, "/api/visitors"), &roster)
	if len(roster) != 1 || !roster[0].IsBanned {
		t.Fatalf("expected banned visitor still on site, got %+v", roster)
	}

	expectStatus(t, e.postJSON(t, "/api/exit-visitor/"+id, ""), http.StatusOK)

	resp := e.postJSON(t, "/api/login", `{"id":`+id+`}`)
	expectStatus(t, resp, http.StatusForbidden)
	var body errorBody
	decode(t, resp, &body)
	if body.Error != "banned" {
		t.Errorf("expected banned error code, got %+v", body)
	}

	expectStatus(t, e.postJSON(t, "/api/unban-visitor/"+id, `{"password":"nope"}`), http.StatusForbidden)
	expectStatus(t, e.postJSON(t, "/api/unban-visitor/"+id, `{"password":"`+adminSecret+`"}`), http.StatusOK)
	expectStatus(t, e.postJSON(t, "/api/login", `{"id":`+id+`}`), http.StatusOK)

	if n := e.count(t, `SELECT COUNT(*) FROM audit_logs WHERE event_name IN ('VISITOR_BANNED', 'VISITOR_UNBANNED')`); n != 2 {
		t.Errorf("expected 2 ban audit entries, got %d", n)
	}
}

// ── Search & history ─────────────────────────────────────────────────────────

func TestVisitorSearch(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.register(t, janeFields(), nil), http.StatusCreated)

	expectStatus(t, e.get(t, "/api/visitor-search?name=%20%20"), http.StatusBadRequest)

	var recs []types.VisitRecord
	resp := e.get(t, "/api/visitor-search?name=Ja+Do")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &recs)
	if len(recs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(recs))
	}

	decode(t, e.get(t, "/api/visitor-search?name=jane"), &recs)
	if len(recs) != 0 {
		t.Errorf("expected case-sensitive search to miss, got %d", len(recs))
	}
}

func TestHistory_FiltersAndBadDate(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.register(t, janeFields(), nil), http.StatusCreated)

	today := time.Now().UTC().Format("2006-01-02")

	var recs []types.VisitRecord
	resp := e.get(t, "/api/history?search=jane&start_date="+today+"&end_date="+today)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &recs)
	if len(recs) != 1 {
		t.Fatalf("expected today's visit, got %d", len(recs))
	}

	decode(t, e.get(t, "/api/history?end_date=2000-01-01"), &recs)
	if len(recs) != 0 {
		t.Errorf("expected no visits before 2000, got %d", len(recs))
	}

	expectStatus(t, e.get(t, "/api/history?start_date=01/02/2025"), http.StatusBadRequest)
}

func TestHistoryExport(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.register(t, janeFields(), nil), http.StatusCreated)

	resp := e.get(t, "/api/history/export")
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("expected csv attachment, got %q", cd)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Jane" {
		t.Fatalf("unexpected csv rows %v", rows)
	}

	resp = e.get(t, "/api/history/export?format=xlsx")
	expectStatus(t, resp, http.StatusOK)
	f, err := excelize.OpenReader(bytes.NewReader(readAll(t, resp.Body)))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	xrows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if len(xrows) != 2 {
		t.Errorf("expected header plus 1 row, got %d", len(xrows))
	}

	expectStatus(t, e.get(t, "/api/history/export?format=pdf"), http.StatusBadRequest)
}

func TestAuthorizeHistory(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.postJSON(t, "/api/authorize-history", `{"password":"`+historySecret+`"}`), http.StatusOK)
	expectStatus(t, e.postJSON(t, "/api/authorize-history", `{"password":"`+adminSecret+`"}`), http.StatusForbidden)
	expectStatus(t, e.postJSON(t, "/api/authorize-history", `not json`), http.StatusBadRequest)
}

// ── Admin ────────────────────────────────────────────────────────────────────

func TestRetentionRun_PurgesAndAudits(t *testing.T) {
	e := newTestServer(t)
	ctx := context.Background()

	_, err := e.visitors.Register(ctx, store.NewVisitor{
		FirstName:  "Old",
		LastName:   "Timer",
		Details:    types.PlaceholderDetails(),
		Dependents: []types.Dependent{{FullName: "Kid"}},
		At:         time.Now().UTC().AddDate(-3, 0, 0),
	})
	if err != nil {
		t.Fatalf("seed expired visitor: %v", err)
	}
	expectStatus(t, e.register(t, janeFields(), nil), http.StatusCreated)

	expectStatus(t, e.postJSON(t, "/api/admin/retention/run", `{"password":"nope"}`), http.StatusForbidden)

	resp := e.postJSON(t, "/api/admin/retention/run", `{"password":"`+adminSecret+`"}`)
	expectStatus(t, resp, http.StatusOK)

	var res types.RetentionResult
	decode(t, resp, &res)
	want := types.RetentionCounts{Profiles: 1, Visits: 1, Dependents: 1}
	if res.Counts != want || res.Err != "" {
		t.Fatalf("expected %+v, got %+v", want, res)
	}

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/admin/audit-logs?limit=10", nil)
	req.Header.Set("X-Admin-Password", adminSecret)
	logs, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get audit logs: %v", err)
	}
	defer logs.Body.Close()
	expectStatus(t, logs, http.StatusOK)

	var entries []db.AuditEntry
	decode(t, logs, &entries)
	if len(entries) != 1 || entries[0].EventName != "DATA_RETENTION_PURGE" || entries[0].VisitsDeleted != 1 {
		t.Errorf("expected one purge audit entry, got %+v", entries)
	}
}

func TestAuditLogs_Gated(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.get(t, "/api/admin/audit-logs"), http.StatusForbidden)

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/admin/audit-logs?limit=-1", nil)
	req.Header.Set("X-Admin-Password", adminSecret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get audit logs: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusBadRequest)
}

// ── Plumbing ─────────────────────────────────────────────────────────────────

func TestHealthAndMetrics(t *testing.T) {
	e := newTestServer(t)

	expectStatus(t, e.get(t, "/health"), http.StatusOK)
	expectStatus(t, e.get(t, "/api/visitors"), http.StatusOK)

	resp := e.get(t, "/metrics")
	expectStatus(t, resp, http.StatusOK)
	body := string(readAll(t, resp.Body))
	if !strings.Contains(body, `frontdesk_http_request_duration_seconds_count{method="GET",route="/api/visitors",status="200"}`) {
		t.Errorf("expected request histogram for /api/visitors in metrics output")
	}
}

func TestHealth_ReportsUnavailableDatabase(t *testing.T) {
	e := newTestServer(t)
	e.conn.Close()

	expectStatus(t, e.get(t, "/health"), http.StatusServiceUnavailable)
}

func TestCORS_WildcardOrigin(t *testing.T) {
	e := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/visitors", nil)
	req.Header.Set("Origin", "https://desk.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard allow-origin, got %q", got)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
