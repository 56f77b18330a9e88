package modules

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDF(t *testing.T) []byte {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quarterly Plan", false)
	pdf.SetAuthor("Jane Analyst", false)
	pdf.SetCreator("Writer", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, "hello")
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func sampleDOCX(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("docProps/core.xml")
	require.NoError(t, err)
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
<dc:title>Budget</dc:title><dc:creator>John Smith</dc:creator><dc:description>draft</dc:description>
<cp:lastModifiedBy>Eve</cp:lastModifiedBy>
<dcterms:created>2024-01-02T03:04:05Z</dcterms:created><dcterms:modified>2024-02-03T04:05:06Z</dcterms:modified>
</cp:coreProperties>`))
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func documentServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMetadataReconPDF(t *testing.T) {
	srv := documentServer(t, "application/pdf", samplePDF(t))
	dir := t.TempDir()
	m := &MetadataRecon{TempDir: dir}

	res, err := m.Run(context.Background(), newRC(srv.URL+"/file", nil))
	require.NoError(t, err)

	meta := findingsOfType(res, "document_metadata")
	require.Len(t, meta, 1, "%+v", res.Findings)
	data := meta[0].Data.(map[string]any)
	assert.Equal(t, "Jane Analyst", data["author"])
	assert.Equal(t, "Quarterly Plan", data["title"])
	assert.Equal(t, "pdf", data["file_type"])

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestMetadataReconDOCXByExtension(t *testing.T) {
	srv := documentServer(t, "application/octet-stream", sampleDOCX(t))
	dir := t.TempDir()
	m := &MetadataRecon{TempDir: dir}

	res, err := m.Run(context.Background(), newRC(srv.URL+"/budget.docx", nil))
	require.NoError(t, err)

	meta := findingsOfType(res, "document_metadata")
	require.Len(t, meta, 1)
	data := meta[0].Data.(map[string]any)
	assert.Equal(t, "John Smith", data["author"])
	assert.Equal(t, "Eve", data["last_modified_by"])
	assert.Equal(t, "draft", data["comments"])
	assert.Equal(t, "2024-01-02T03:04:05Z", data["created"])

	left, _ := os.ReadDir(dir)
	assert.Empty(t, left)
}

func TestMetadataReconRejectsNonURL(t *testing.T) {
	res, err := NewMetadataRecon().Run(context.Background(), newRC("report.pdf", nil))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "Target must be a valid URL.", res.Findings[0].Data.(map[string]any)["message"])
}

func TestMetadataReconUnknownType(t *testing.T) {
	srv := documentServer(t, "text/html", []byte("<html></html>"))
	res, err := NewMetadataRecon().Run(context.Background(), newRC(srv.URL+"/page", nil))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "error", res.Findings[0].Type)
}

func TestMetadataReconCorruptDocument(t *testing.T) {
	srv := documentServer(t, "application/pdf", []byte("not a pdf"))
	dir := t.TempDir()
	res, err := (&MetadataRecon{TempDir: dir}).Run(context.Background(), newRC(srv.URL+"/x.pdf", nil))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "extract", res.Findings[0].Data.(map[string]any)["step"])
	left, _ := os.ReadDir(dir)
	assert.Empty(t, left)
}

func TestDocumentType(t *testing.T) {
	assert.Equal(t, "pdf", DocumentType("application/pdf; charset=binary", "https://x/y"))
	assert.Equal(t, "docx", DocumentType("application/vnd.openxmlformats-officedocument.wordprocessingml.document", ""))
	assert.Equal(t, "xlsx", DocumentType("", "https://x/sheet.XLSX?dl=1"))
	assert.Equal(t, "", DocumentType("text/html", "https://x/index.html"))
}
