package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/visitlog/internal/export"
	"github.com/kalambet/visitlog/internal/logbook"
	"github.com/kalambet/visitlog/internal/query"
	"github.com/kalambet/visitlog/internal/report"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Book     *logbook.Book
	Exporter *export.Exporter
	Now      func() time.Time // optional; defaults to time.Now
}

// NewMCPServer creates an MCP server with the visitlog tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := server.NewMCPServer(
		"visitlog",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("visitlog: customer visit report logbook. Record visits, search them, and export monthly reports."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("add_report",
			mcp.WithDescription("Record a customer visit report. Missing serial and report numbers are generated."),
			mcp.WithString("customer_name", mcp.Description("Customer visited"), mcp.Required()),
			mcp.WithString("visiting_purpose", mcp.Description("Purpose of the visit"), mcp.Required()),
			mcp.WithString("date", mcp.Description("Visit date, YYYY-MM-DD (default today)")),
			mcp.WithString("serial_no", mcp.Description("Serial number (default next in sequence)")),
			mcp.WithString("report_no", mcp.Description("Report number (default generated from the date)")),
			mcp.WithString("contact_person", mcp.Description("Person met")),
			mcp.WithString("contact_no", mcp.Description("Contact phone number")),
			mcp.WithString("mode", mcp.Description("single saves immediately, multiple stages in the draft"), mcp.Enum("single", "multiple")),
		),
		mcpAddReport(deps),
	)

	s.AddTool(
		mcp.NewTool("search_reports",
			mcp.WithDescription("Search stored visit reports by case-insensitive substring of customer name, contact person, report number or visiting purpose, sorted by a column."),
			mcp.WithString("query", mcp.Description("Case-insensitive search term (empty lists everything)")),
			mcp.WithString("sort", mcp.Description("Sort column (default date)"),
				mcp.Enum("date", "serialNo", "customerName", "reportNo", "contactPerson", "visitingPurpose")),
			mcp.WithString("dir", mcp.Description("Sort direction (default desc)"), mcp.Enum("asc", "desc")),
			mcp.WithNumber("month", mcp.Description("Restrict to this month (1-12); requires year")),
			mcp.WithNumber("year", mcp.Description("Restrict to this year")),
		),
		mcpSearchReports(deps),
	)

	s.AddTool(
		mcp.NewTool("report_number",
			mcp.WithDescription("Generate the report number for a date."),
			mcp.WithString("date", mcp.Description("Date, YYYY-MM-DD (default today)")),
		),
		mcpReportNumber(deps),
	)

	s.AddTool(
		mcp.NewTool("export_reports",
			mcp.WithDescription("Export one month of reports as PDF, XLSX or JSON to the configured destination."),
			mcp.WithString("format", mcp.Description("Export format"), mcp.Required(), mcp.Enum("pdf", "xlsx", "json")),
			mcp.WithNumber("month", mcp.Description("Month (1-12)"), mcp.Required()),
			mcp.WithNumber("year", mcp.Description("Year"), mcp.Required()),
			mcp.WithString("sort_by", mcp.Description("Sort column (default date)")),
		),
		mcpExportReports(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"visitlog://recent",
			"Recent Entries",
			mcp.WithResourceDescription("The five most recently submitted reports, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAddReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		customer, err := req.RequireString("customer_name")
		if err != nil {
			return mcpError("customer_name is required"), nil
		}
		purpose, err := req.RequireString("visiting_purpose")
		if err != nil {
			return mcpError("visiting_purpose is required"), nil
		}
		mode, err := logbook.ParseMode(req.GetString("mode", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		defaults := deps.Book.Defaults(deps.Now())
		r := report.Report{
			SerialNo:        req.GetString("serial_no", defaults.SerialNo),
			Date:            req.GetString("date", defaults.Date),
			CustomerName:    customer,
			ReportNo:        req.GetString("report_no", ""),
			ContactPerson:   req.GetString("contact_person", ""),
			ContactNo:       req.GetString("contact_no", ""),
			VisitingPurpose: purpose,
		}

		sub, err := deps.Book.Submit(r, mode)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to add report: %v", err)), nil
		}

		b, err := json.Marshal(sub)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchReports(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		col, err := query.ParseColumn(req.GetString("sort", string(query.ColumnDate)))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		dir, err := query.ParseDirection(req.GetString("dir", string(query.Desc)))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		all := deps.Book.Reports.List()
		month, year := req.GetInt("month", 0), req.GetInt("year", 0)
		if month != 0 || year != 0 {
			if month < 1 || month > 12 || year < 1 {
				return mcpError("month and year must be given together, month in 1-12"), nil
			}
			all = query.MonthYear(all, month, year)
		}

		results := query.View(all, req.GetString("query", ""), col, dir)
		if len(results) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpReportNumber(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date := req.GetString("date", "")
		if date == "" {
			date = report.FormatDate(deps.Now())
		}
		num, err := report.NumberForDate(date)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(num), nil
	}
}

func mcpExportReports(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format, err := req.RequireString("format")
		if err != nil {
			return mcpError("format is required"), nil
		}
		month, err := req.RequireInt("month")
		if err != nil {
			return mcpError("month is required"), nil
		}
		year, err := req.RequireInt("year")
		if err != nil {
			return mcpError("year is required"), nil
		}

		res, err := deps.Exporter.Export(ctx, deps.Book.Reports.List(), export.Request{
			Format: export.Format(format),
			Month:  month,
			Year:   year,
			SortBy: query.Column(req.GetString("sort_by", "")),
		})
		if errors.Is(err, export.ErrEmptyExportSet) {
			return mcpError(fmt.Sprintf("No reports found for %s.", export.Period(month, year))), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Exported %d reports to %s (%d bytes, %s destination)",
			res.Rows, res.Name, res.Size, deps.Exporter.Store().Driver())), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries := deps.Book.Recent.Entries()
		if entries == nil {
			entries = []report.Report{}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal recent entries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
