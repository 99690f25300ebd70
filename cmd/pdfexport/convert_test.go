package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
)

func samplePDF(text string) []byte {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + text + ") Tj\nET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		convertCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConvertFileToArchive(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(in, samplePDF("Meeting notes"), 0o600))

	_, err := execute(t, nil, "convert", in, "--log-level", "error")
	require.NoError(t, err)

	zr, err := zip.OpenReader(filepath.Join(dir, "notes-artifacts.zip"))
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, pdfexport.ArchiveMarkdown, zr.File[0].Name)
	assert.Equal(t, pdfexport.ArchiveManifest, zr.File[len(zr.File)-1].Name)
}

func TestConvertStdinToJSON(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, samplePDF("Piped body"), "convert", "-", "--format", "json", "-o", "-", "--log-level", "error")
	require.NoError(t, err)

	var env struct {
		PageCount int `json:"page_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, 1, env.PageCount)
}

func TestConvertRejectsConflictingDelivery(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(in, samplePDF("x"), 0o600))

	_, err := execute(t, nil, "convert", in, "--write-images", "--embed-images", "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, pdfexport.KindConflictingDeliveryMode, pdfexport.KindOf(err))
}
