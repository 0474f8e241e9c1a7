package services

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"zakat_flow_go/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// getChromePath returns the Chrome executable path from environment variable
func getChromePath() string {
	return os.Getenv("CHROME_PATH")
}

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	PageOrientation string // portrait, landscape
	PageSize        string // letter, legal, A4
	MarginTop       int    // points (72 = 1 inch)
	MarginBottom    int
	MarginLeft      int
	MarginRight     int
}

// DefaultPDFOptions returns default options for case summary documents
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageOrientation: "portrait",
		PageSize:        "letter",
		MarginTop:       72,
		MarginBottom:    72,
		MarginLeft:      72,
		MarginRight:     72,
	}
}

// GeneratePDF renders HTML content to PDF using headless Chrome
func GeneratePDF(htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)

	// Check for custom Chrome path (for headless-shell in Docker)
	if chromePath := getChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var paperWidth, paperHeight float64
	switch options.PageSize {
	case "legal":
		paperWidth = 8.5
		paperHeight = 14.0
	case "A4":
		paperWidth = 8.27
		paperHeight = 11.69
	default: // letter
		paperWidth = 8.5
		paperHeight = 11.0
	}

	if options.PageOrientation == "landscape" {
		paperWidth, paperHeight = paperHeight, paperWidth
	}

	// Convert points to inches for margins
	marginTop := float64(options.MarginTop) / 72.0
	marginBottom := float64(options.MarginBottom) / 72.0
	marginLeft := float64(options.MarginLeft) / 72.0
	marginRight := float64(options.MarginRight) / 72.0

	var pdfBuf []byte

	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		// Wait for content to render
		chromedp.Sleep(100*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(marginTop).
				WithMarginBottom(marginBottom).
				WithMarginLeft(marginLeft).
				WithMarginRight(marginRight).
				WithPrintBackground(true).
				WithDisplayHeaderFooter(false).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return pdfBuf, nil
}

// BuildCaseSummaryHTML assembles the printable case summary for a zakat
// application. All user-controlled values are escaped before embedding.
func BuildCaseSummaryHTML(masjid *models.Masjid, applicant *models.Applicant) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("<h1>%s</h1>", html.EscapeString(masjid.Name)))
	b.WriteString(fmt.Sprintf("<h2>Zakat Application %s</h2>", html.EscapeString(applicant.CaseID)))

	b.WriteString("<h3>Applicant</h3><table>")
	writeRow(&b, "Name", applicant.Name)
	writeRow(&b, "Email", applicant.Email)
	writeRow(&b, "Phone", applicant.Phone)
	writeRow(&b, "Address", applicant.Address)
	b.WriteString("</table>")

	b.WriteString("<h3>Financial Situation</h3><table>")
	writeRow(&b, "Monthly income", fmt.Sprintf("%.2f", applicant.MonthlyIncome))
	writeRow(&b, "Monthly expenses", fmt.Sprintf("%.2f", applicant.MonthlyExpenses))
	writeRow(&b, "Household size", fmt.Sprintf("%d", applicant.HouseholdSize))
	writeRow(&b, "Amount requested", fmt.Sprintf("%.2f", applicant.AmountRequested))
	b.WriteString("</table>")

	b.WriteString("<h3>Request</h3>")
	b.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(applicant.Reason)))

	b.WriteString("<h3>Status</h3><table>")
	writeRow(&b, "Status", applicant.Status)
	writeRow(&b, "Submitted", applicant.CreatedAt.Format("2006-01-02"))
	if applicant.StatusChangedAt != nil {
		writeRow(&b, "Status changed", applicant.StatusChangedAt.Format("2006-01-02"))
	}
	b.WriteString("</table>")

	if len(applicant.Documents) > 0 {
		b.WriteString("<h3>Documents</h3><ul>")
		for _, doc := range applicant.Documents {
			b.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(doc.FileOriginalName)))
		}
		b.WriteString("</ul>")
	}

	return WrapHTMLForPDF(b.String())
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(fmt.Sprintf("<tr><td class=\"label\">%s</td><td>%s</td></tr>",
		html.EscapeString(label), html.EscapeString(value)))
}

// WrapHTMLForPDF wraps rendered content with print styles for Chrome's PDF
// renderer
func WrapHTMLForPDF(content string) string {
	return `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page {
            margin: 1in;
        }
        body {
            font-family: Arial, Helvetica, sans-serif;
            font-size: 11pt;
            line-height: 1.5;
            color: #000;
        }
        h1 {
            font-size: 16pt;
            font-weight: bold;
            text-align: center;
            margin-bottom: 6pt;
        }
        h2 {
            font-size: 13pt;
            font-weight: normal;
            text-align: center;
            margin-bottom: 24pt;
            color: #444;
        }
        h3 {
            font-size: 12pt;
            font-weight: bold;
            margin-top: 18pt;
            margin-bottom: 6pt;
            border-bottom: 1px solid #ccc;
            padding-bottom: 3pt;
        }
        table {
            width: 100%;
            border-collapse: collapse;
        }
        td {
            padding: 3pt 6pt;
            vertical-align: top;
        }
        td.label {
            width: 30%;
            font-weight: bold;
            color: #333;
        }
        p {
            margin-bottom: 12pt;
        }
        ul {
            margin: 6pt 0;
            padding-left: 18pt;
        }
    </style>
</head>
<body>
` + content + `
</body>
</html>`
}
