package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/export"
	"github.com/kalambet/visitlog/internal/logbook"
	"github.com/kalambet/visitlog/internal/report"
	"github.com/kalambet/visitlog/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *blob.Memory) {
	t.Helper()
	book, err := logbook.Open(storage.NewMemory())
	if err != nil {
		t.Fatalf("logbook.Open: %v", err)
	}
	files := blob.NewMemory()
	return MCPDeps{
		Book:     book,
		Exporter: export.NewExporter(files),
		Now:      func() time.Time { return testNow },
	}, files
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), makeCallToolRequest(name, args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

// --- tests ---

func TestMCPTool_AddReport_FillsDefaults(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Book.Reports.Add(report.Report{SerialNo: "9", Date: "2024-05-01", CustomerName: "Old", VisitingPurpose: "Demo"})

	result := callTool(t, mcpAddReport(deps), "add_report", map[string]interface{}{
		"customer_name":    "Acme",
		"visiting_purpose": "Installation",
		"contact_person":   "Wile",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var sub logbook.Submission
	if err := json.Unmarshal([]byte(toolText(t, result)), &sub); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	r := sub.Report
	if r.SerialNo != "10" || r.Date != "2024-05-02" || r.ReportNo != "DVG 2024-25/MAY 02" || r.ContactPerson != "Wile" {
		t.Errorf("report = %+v", r)
	}
	if deps.Book.Reports.Len() != 2 {
		t.Errorf("store len = %d, want 2", deps.Book.Reports.Len())
	}
}

func TestMCPTool_AddReport_MissingRequired(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result := callTool(t, mcpAddReport(deps), "add_report", map[string]interface{}{
		"customer_name": "Acme",
	})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if deps.Book.Reports.Len() != 0 {
		t.Error("report stored despite error")
	}
}

func TestMCPTool_AddReport_InvalidDate(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result := callTool(t, mcpAddReport(deps), "add_report", map[string]interface{}{
		"customer_name":    "Acme",
		"visiting_purpose": "Demo",
		"date":             "02/05/2024",
	})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(toolText(t, result), "date") {
		t.Errorf("error text = %q", toolText(t, result))
	}
}

func TestMCPTool_AddReport_Multiple(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result := callTool(t, mcpAddReport(deps), "add_report", map[string]interface{}{
		"customer_name":    "Acme",
		"visiting_purpose": "Demo",
		"mode":             "multiple",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if deps.Book.Reports.Len() != 0 || deps.Book.Draft.Len() != 1 {
		t.Errorf("store = %d, draft = %d; want 0 and 1", deps.Book.Reports.Len(), deps.Book.Draft.Len())
	}
}

func TestMCPTool_SearchReports(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Book.Reports.AddBatch([]report.Report{
		{SerialNo: "1", Date: "2024-05-02", CustomerName: "Acme", VisitingPurpose: "Demo"},
		{SerialNo: "2", Date: "2024-06-10", CustomerName: "Acme West", VisitingPurpose: "Install"},
		{SerialNo: "3", Date: "2024-05-20", CustomerName: "Globex", VisitingPurpose: "Audit"},
	})
	handler := mcpSearchReports(deps)

	result := callTool(t, handler, "search_reports", map[string]interface{}{
		"query": "acme",
		"sort":  "serialNo",
		"dir":   "asc",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	var found []report.Report
	if err := json.Unmarshal([]byte(toolText(t, result)), &found); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(found) != 2 || found[0].SerialNo != "1" || found[1].SerialNo != "2" {
		t.Errorf("found = %+v", found)
	}

	result = callTool(t, handler, "search_reports", map[string]interface{}{
		"month": 5,
		"year":  2024,
	})
	if err := json.Unmarshal([]byte(toolText(t, result)), &found); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(found) != 2 || found[0].SerialNo != "3" {
		t.Errorf("May, date desc = %+v", found)
	}

	result = callTool(t, handler, "search_reports", map[string]interface{}{"query": "zzz"})
	if toolText(t, result) != "[]" {
		t.Errorf("empty search = %q", toolText(t, result))
	}

	result = callTool(t, handler, "search_reports", map[string]interface{}{"month": 5})
	if !result.IsError {
		t.Error("month without year should be an error")
	}

	result = callTool(t, handler, "search_reports", map[string]interface{}{"sort": "contactNo"})
	if !result.IsError {
		t.Error("unknown sort column should be an error")
	}
}

func TestMCPTool_ReportNumber(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpReportNumber(deps)

	if got := toolText(t, callTool(t, handler, "report_number", nil)); got != "DVG 2024-25/MAY 02" {
		t.Errorf("today = %q", got)
	}
	got := toolText(t, callTool(t, handler, "report_number", map[string]interface{}{"date": "2023-12-31"}))
	if got != "DVG 2023-24/DEC 31" {
		t.Errorf("2023-12-31 = %q", got)
	}
	if !callTool(t, handler, "report_number", map[string]interface{}{"date": "nope"}).IsError {
		t.Error("expected error for invalid date")
	}
}

func TestMCPTool_ExportReports(t *testing.T) {
	deps, files := newTestMCPDeps(t)
	deps.Book.Reports.Add(report.Report{SerialNo: "1", Date: "2024-05-02", CustomerName: "Acme", ReportNo: "X", VisitingPurpose: "Demo"})
	handler := mcpExportReports(deps)

	result := callTool(t, handler, "export_reports", map[string]interface{}{
		"format": "xlsx",
		"month":  5,
		"year":   2024,
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "Visit_Reports_May_2024.xlsx") {
		t.Errorf("text = %q", toolText(t, result))
	}
	if _, _, err := files.Get(context.Background(), "Visit_Reports_May_2024.xlsx"); err != nil {
		t.Errorf("export not stored: %v", err)
	}

	result = callTool(t, handler, "export_reports", map[string]interface{}{
		"format": "pdf",
		"month":  1,
		"year":   2030,
	})
	if !result.IsError {
		t.Fatal("expected error for empty period")
	}
	if got := toolText(t, result); got != "No reports found for January 2030." {
		t.Errorf("text = %q", got)
	}

	result = callTool(t, handler, "export_reports", map[string]interface{}{"format": "pdf"})
	if !result.IsError {
		t.Error("expected error without month and year")
	}
}

func TestMCPResource_Recent(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	for _, name := range []string{"A", "B"} {
		if _, err := deps.Book.Submit(report.Report{SerialNo: "1", Date: "2024-05-02", CustomerName: name, VisitingPurpose: "Demo"}, logbook.ModeSingle); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	contents, err := mcpResourceRecent(deps)(context.Background(), makeReadResourceRequest("visitlog://recent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var recent []report.Report
	if err := json.Unmarshal([]byte(tc.Text), &recent); err != nil {
		t.Fatalf("failed to parse resource: %v", err)
	}
	if len(recent) != 2 || recent[0].CustomerName != "B" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestNewMCPServer_Registers(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("nil server")
	}
}
