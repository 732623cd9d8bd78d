package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zenithtrust/docuvault/internal/models"
)

const (
	companyHeader = "ZENITH TRUST — DOCUMENT MANAGEMENT"
	companyFooter = "Zenith Trust Ltd · Confidential · Generated by DocuVault"
)

// BuildTemplateContent synthesizes the initial structured payload for a
// template-created document. The shape follows the file type: word-like
// documents get title+body, spreadsheets a sparse cell map seeded with
// title/date/code, presentations a single opening slide.
func BuildTemplateContent(fileType models.FileType, title, documentCode string, recipient *models.RecipientInfo) *models.DocumentContent {
	today := time.Now().UTC().Format("2 January 2006")

	switch fileType {
	case models.FileTypeExcel:
		return &models.DocumentContent{
			Cells: map[string]string{
				"cell_0": title,
				"cell_1": "Date: " + today,
				"cell_2": "Document Code: " + documentCode,
				"cell_3": "Prepared by: Zenith Trust",
			},
		}
	case models.FileTypePowerPoint:
		return &models.DocumentContent{
			Slides: []models.SlideContent{
				{
					Title:   title,
					Content: fmt.Sprintf("Document code %s\nGenerated on %s", documentCode, today),
				},
			},
		}
	default:
		var body strings.Builder
		if recipient != nil && recipient.Name != "" {
			body.WriteString("To: " + recipient.Name + "\n")
			if recipient.Title != "" {
				body.WriteString(recipient.Title + "\n")
			}
			if recipient.Address != "" {
				body.WriteString(recipient.Address + "\n")
			}
			body.WriteString("\n")
		}
		body.WriteString(fmt.Sprintf("Date: %s\nDocument Code: %s\n\n", today, documentCode))
		body.WriteString("[Write the document body here.]\n")
		return &models.DocumentContent{
			Title: title,
			Body:  body.String(),
		}
	}
}

// RenderText produces the plain-text form of a document used both for
// downloading a template document (no bytes exist in storage) and for the
// PDF export stub.
func RenderText(doc *models.Document) []byte {
	var b strings.Builder

	b.WriteString(companyHeader + "\n")
	b.WriteString(strings.Repeat("=", len(companyHeader)) + "\n\n")

	b.WriteString("Document: " + doc.Name + "\n")
	if doc.DocumentCode != nil {
		b.WriteString("Code: " + *doc.DocumentCode + "\n")
	}
	b.WriteString("Category: " + doc.Category.Label() + "\n")
	b.WriteString("Created: " + doc.CreatedAt.UTC().Format("2 January 2006 15:04 MST") + "\n\n")

	if doc.Content != nil {
		renderContent(&b, doc.Content)
	}

	b.WriteString("\n" + strings.Repeat("-", len(companyFooter)) + "\n")
	b.WriteString(companyFooter + "\n")

	return []byte(b.String())
}

func renderContent(b *strings.Builder, content *models.DocumentContent) {
	switch {
	case len(content.Slides) > 0:
		for i, slide := range content.Slides {
			b.WriteString(fmt.Sprintf("Slide %d: %s\n", i+1, slide.Title))
			if slide.Content != "" {
				b.WriteString(slide.Content + "\n")
			}
			b.WriteString("\n")
		}
	case len(content.Cells) > 0:
		keys := make([]string, 0, len(content.Cells))
		for key := range content.Cells {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			b.WriteString(fmt.Sprintf("%s: %s\n", key, content.Cells[key]))
		}
	default:
		if content.Title != "" {
			b.WriteString(content.Title + "\n\n")
		}
		if content.Body != "" {
			b.WriteString(content.Body + "\n")
		}
	}
}

// DocumentRenderer turns a document into exportable bytes. The default
// implementation renders plain text served under the PDF content type, which
// matches the documented contract; a genuine PDF library can replace it
// without touching any caller.
type DocumentRenderer interface {
	Render(doc *models.Document) ([]byte, error)
}

type TextRenderer struct{}

func (TextRenderer) Render(doc *models.Document) ([]byte, error) {
	return RenderText(doc), nil
}
