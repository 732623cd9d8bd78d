package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileType string

const (
	FileTypePDF        FileType = "pdf"
	FileTypeWord       FileType = "word"
	FileTypeExcel      FileType = "excel"
	FileTypePowerPoint FileType = "powerpoint"
	FileTypeUnknown    FileType = "unknown"
)

// ClassifyFileType maps a MIME type onto the closed FileType set using the
// same substring rules the upload boundary advertises.
func ClassifyFileType(mimeType string) FileType {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "pdf"):
		return FileTypePDF
	case strings.Contains(mt, "word"):
		return FileTypeWord
	case strings.Contains(mt, "excel"), strings.Contains(mt, "spreadsheet"):
		return FileTypeExcel
	case strings.Contains(mt, "powerpoint"), strings.Contains(mt, "presentation"):
		return FileTypePowerPoint
	default:
		return FileTypeUnknown
	}
}

// Extension is used when synthesizing a download for a template document.
func (t FileType) Extension() string {
	switch t {
	case FileTypePDF:
		return ".pdf"
	case FileTypeWord:
		return ".doc"
	case FileTypeExcel:
		return ".xls"
	case FileTypePowerPoint:
		return ".ppt"
	default:
		return ".txt"
	}
}

type DocumentCategory string

const (
	CategoryMemo      DocumentCategory = "memo"
	CategoryLetter    DocumentCategory = "letter"
	CategoryReport    DocumentCategory = "report"
	CategoryContracts DocumentCategory = "contracts"
	CategoryInvoice   DocumentCategory = "invoice"
	CategoryMinutes   DocumentCategory = "minutes"
	CategoryPolicy    DocumentCategory = "policy"
	CategoryGeneral   DocumentCategory = "general"
)

var CategoryLabels = map[DocumentCategory]string{
	CategoryMemo:      "Memo",
	CategoryLetter:    "Letter",
	CategoryReport:    "Report",
	CategoryContracts: "Contracts",
	CategoryInvoice:   "Invoice",
	CategoryMinutes:   "Meeting Minutes",
	CategoryPolicy:    "Policy",
	CategoryGeneral:   "General",
}

func (c DocumentCategory) Valid() bool {
	_, ok := CategoryLabels[c]
	return ok
}

// CodePrefix is the TYPE portion of a document code (TYPE-YEAR-NNN).
func (c DocumentCategory) CodePrefix() string {
	return strings.ToUpper(string(c))
}

func (c DocumentCategory) Label() string {
	if label, ok := CategoryLabels[c]; ok {
		return label
	}
	return string(c)
}

type SlideContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocumentContent is the structured payload of a template-generated document.
// Exactly one shape is populated: Title+Body for word-like documents, Cells
// for spreadsheet-like documents, Slides for presentation-like documents.
type DocumentContent struct {
	Title  string            `json:"title,omitempty"`
	Body   string            `json:"body,omitempty"`
	Cells  map[string]string `json:"cells,omitempty"`
	Slides []SlideContent    `json:"slides,omitempty"`
}

type RecipientInfo struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	Title      string `json:"title,omitempty"`
	IsInternal bool   `json:"isInternal,omitempty"`
}

// TemplatePathPrefix marks documents with no bytes in object storage; their
// downloadable form is synthesized from Content on demand.
const TemplatePathPrefix = "templates/"

type Document struct {
	BaseModel
	Name          string                 `json:"name" gorm:"type:varchar(255);not null"`
	OriginalName  string                 `json:"originalName" gorm:"type:varchar(255);not null"`
	Description   *string                `json:"description,omitempty" gorm:"type:text"`
	Category      DocumentCategory       `json:"category" gorm:"type:varchar(30);not null;index"`
	FileType      FileType               `json:"fileType" gorm:"type:varchar(20);not null"`
	FileSize      int64                  `json:"fileSize" gorm:"not null;default:0"`
	FilePath      string                 `json:"filePath" gorm:"type:text;not null"`
	FolderID      *uuid.UUID             `json:"folderId,omitempty" gorm:"type:uuid;index"`
	UploadedBy    uuid.UUID              `json:"uploadedBy" gorm:"type:uuid;not null;index"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	DocumentCode  *string                `json:"documentCode,omitempty" gorm:"type:varchar(40);index"`
	IsTemplate    bool                   `json:"isTemplate" gorm:"not null;default:false"`
	Content       *DocumentContent       `json:"content,omitempty" gorm:"type:jsonb;serializer:json"`
	RecipientInfo *RecipientInfo         `json:"recipientInfo,omitempty" gorm:"type:jsonb;serializer:json"`

	Folder   *Folder         `json:"folder,omitempty" gorm:"foreignKey:FolderID;references:ID"`
	Uploader User            `json:"uploader,omitempty" gorm:"foreignKey:UploadedBy;references:ID"`
	Shares   []DocumentShare `json:"-" gorm:"foreignKey:DocumentID"`
}

func (d *Document) HasTemplatePath() bool {
	return strings.HasPrefix(d.FilePath, TemplatePathPrefix)
}

// DocumentSequence is the atomic per-(category, year) counter behind document
// codes. A single UPDATE increments next_seq so concurrent creations in the
// same category never hand out the same number.
type DocumentSequence struct {
	ID       uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	Category DocumentCategory `json:"category" gorm:"type:varchar(30);not null;uniqueIndex:idx_document_sequences_category_year"`
	Year     int              `json:"year" gorm:"not null;uniqueIndex:idx_document_sequences_category_year"`
	NextSeq  int              `json:"nextSeq" gorm:"not null;default:0"`
}

func (s *DocumentSequence) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (DocumentSequence) TableName() string {
	return "document_sequences"
}
