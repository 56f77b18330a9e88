package modules

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/corrosiverage/corrosive/core"
)

// MetadataRecon downloads a document and reports its authoring metadata.
type MetadataRecon struct {
	TempDir string
}

func NewMetadataRecon() *MetadataRecon { return &MetadataRecon{} }

func (m *MetadataRecon) Name() string { return "metadata_recon" }

func (m *MetadataRecon) Description() string {
	return "Extracts author, dates and title from a PDF or Office document URL"
}

// DocumentType infers "pdf", "docx", "xlsx" or "pptx" from the content type,
// then the URL extension. It returns "" when neither matches.
func DocumentType(contentType, rawURL string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return "pdf"
	case strings.Contains(ct, "wordprocessingml.document"):
		return "docx"
	case strings.Contains(ct, "spreadsheetml.sheet"):
		return "xlsx"
	case strings.Contains(ct, "presentationml.presentation"):
		return "pptx"
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")); ext {
	case "pdf", "docx", "xlsx", "pptx":
		return ext
	}
	return ""
}

func (m *MetadataRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	target := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting metadata analysis for %s", target)

	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		rc.AddError(map[string]any{"message": "Target must be a valid URL."})
		return rc.Result(), nil
	}

	resp := rc.HTTP.Do(ctx, target, core.WithTimeout(60*time.Second))
	if resp == nil {
		rc.AddError(map[string]any{"message": "Could not download file from " + target})
		return rc.Result(), nil
	}

	kind := DocumentType(resp.Header.Get("Content-Type"), target)
	if kind == "" {
		rc.AddError(map[string]any{"message": "Could not determine file type (PDF/DOCX/XLSX/PPTX)."})
		return rc.Result(), nil
	}

	rc.ReportStep("extract", func() error {
		meta, err := m.extract(kind, resp.Body)
		if err != nil {
			return err
		}
		if len(meta) == 0 {
			rc.Log.Info("No metadata found in the document")
			return nil
		}
		meta["file_type"] = kind
		rc.AddFinding("document_metadata", meta)
		return nil
	})

	return rc.Result(), nil
}

// extract writes the document to a temporary file that is always removed.
func (m *MetadataRecon) extract(kind string, data []byte) (map[string]any, error) {
	tmp, err := os.CreateTemp(m.TempDir, "corrosive-*."+kind)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if kind == "pdf" {
		return PDFMetadata(tmp, path.Base(tmp.Name()))
	}
	return OfficeMetadata(tmp, int64(len(data)))
}

// PDFMetadata reads the document information dictionary.
func PDFMetadata(rs io.ReadSeeker, name string) (map[string]any, error) {
	info, err := api.PDFInfo(rs, name, nil, false, nil)
	if err != nil {
		return nil, fmt.Errorf("read pdf info: %w", err)
	}
	meta := map[string]any{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			meta[k] = v
		}
	}
	set("author", info.Author)
	set("creator", info.Creator)
	set("producer", info.Producer)
	set("creation_date", info.CreationDate)
	set("modification_date", info.ModificationDate)
	set("title", info.Title)
	if len(meta) > 0 {
		meta["page_count"] = info.PageCount
	}
	return meta, nil
}

type coreProperties struct {
	Creator        string `xml:"creator"`
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
	Keywords       string `xml:"keywords"`
}

// OfficeMetadata reads docProps/core.xml from an OOXML package.
func OfficeMetadata(r io.ReaderAt, size int64) (map[string]any, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open office package: %w", err)
	}
	f, err := zr.Open("docProps/core.xml")
	if err != nil {
		return map[string]any{}, nil
	}
	defer f.Close()

	var props coreProperties
	if err := xml.NewDecoder(f).Decode(&props); err != nil {
		return nil, fmt.Errorf("parse core properties: %w", err)
	}
	meta := map[string]any{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			meta[k] = v
		}
	}
	set("author", props.Creator)
	set("created", props.Created)
	set("modified", props.Modified)
	set("last_modified_by", props.LastModifiedBy)
	set("title", props.Title)
	set("comments", props.Description)
	set("subject", props.Subject)
	set("keywords", props.Keywords)
	return meta, nil
}
