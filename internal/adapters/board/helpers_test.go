package board

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"incidentdesk/internal/core"
	"incidentdesk/internal/infra/blob/memory"
	"incidentdesk/pkg/domain"
)

func intake(id, org string) domain.Record {
	return domain.Record{
		ID:                  id,
		Name:                "Mehmet",
		Surname:             "Kaya",
		Age:                 41,
		Sex:                 "Erkek",
		BloodGroup:          "0",
		BloodRh:             "-",
		ArrivalReason:       "İş Kazası",
		Occupants:           []string{"Tabip", "Refakatçi"},
		Assault:             true,
		Organization:        org,
		Physician:           "Dr. Aydın",
		SuitableEnvironment: false,
	}
}

type fixture struct {
	svc      *core.Service
	blobs    *memory.Store
	exporter *Exporter
	handler  *Handler
}

func newFixture(t *testing.T, records ...domain.Record) fixture {
	t.Helper()
	svc := core.NewInMemoryService()
	if len(records) > 0 {
		if err := svc.AppendRecords(context.Background(), records); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	blobs := memory.New()
	seq := 0
	exp := NewExporter(svc, blobs, WithExportIDs(func() string {
		seq++
		return "exp" + string(rune('0'+seq))
	}))
	h := NewHandler(svc, WithExporter(exp), WithIDGenerator(func() string { return "generated" }))
	return fixture{svc: svc, blobs: blobs, exporter: exp, handler: h}
}

func (f fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

var _ http.Handler = (*Handler)(nil)
