package reader_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/knowledge-engine/quizbank/internal/reader"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>1. 下列哪项</w:t></w:r><w:r><w:t xml:space="preserve">属于浪费？</w:t></w:r></w:p>
<w:p><w:r><w:t>A. 过量生产</w:t></w:r><w:r><w:br/></w:r><w:r><w:t>B. 标准作业</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>正确答案：</w:t></w:r><w:r><w:tab/></w:r><w:r><w:t>A</w:t></w:r></w:p>
</w:body>
</w:document>`

func buildDOCX(t *testing.T, xml string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(xml))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFormatOf(t *testing.T) {
	for name, want := range map[string]reader.Format{
		"题库.DOCX":                      reader.FormatDOCX,
		"/tmp/page.htm":                reader.FormatHTML,
		"notes.md":                     reader.FormatText,
		"scan.pdf":                     reader.FormatPDF,
		"https://example.com/bank.xlsx": reader.FormatXLSX,
	} {
		got, err := reader.FormatOf(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := reader.FormatOf("题库.doc")
	assert.ErrorIs(t, err, reader.ErrUnsupported)
}

func TestParseDOCX(t *testing.T) {
	paras, err := reader.Parse(reader.FormatDOCX, buildDOCX(t, documentXML))

	require.NoError(t, err)
	assert.Equal(t, []string{"1. 下列哪项属于浪费？", "A. 过量生产", "B. 标准作业", "正确答案： A"}, paras)
}

func TestParseDOCXMalformed(t *testing.T) {
	_, err := reader.Parse(reader.FormatDOCX, []byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = reader.Parse(reader.FormatDOCX, buf.Bytes())
	assert.Error(t, err)
}

func TestParseHTML(t *testing.T) {
	page := `<html><head><title>题库</title><style>p{}</style></head><body>
<h2>2. 下列哪项正确？</h2><ul><li>A. 选项一</li><li>B. 选项二</li></ul>
<p>正确答案：<b>A</b></p><script>var x = 1;</script></body></html>`

	paras, err := reader.Parse(reader.FormatHTML, []byte(page))

	require.NoError(t, err)
	assert.Equal(t, []string{"2. 下列哪项正确？", "A. 选项一", "B. 选项二", "正确答案： A"}, paras)
}

func TestParseTextDecodesGB18030(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("这是一个判断题陈述。\r\n\r\nA 正确\nB 错误\n"))
	require.NoError(t, err)

	paras, err := reader.Parse(reader.FormatText, encoded)

	require.NoError(t, err)
	assert.Equal(t, []string{"这是一个判断题陈述。", "A 正确", "B 错误"}, paras)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "某题干内容，包含问号？"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "正确答案："))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", "A"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	paras, err := reader.Parse(reader.FormatXLSX, buf.Bytes())

	require.NoError(t, err)
	assert.Equal(t, []string{"某题干内容，包含问号？", "正确答案： A"}, paras)
}

func TestParsePDFRejectsGarbage(t *testing.T) {
	_, err := reader.Parse(reader.FormatPDF, []byte("%PDF-garbage"))
	assert.Error(t, err)
}

func TestReaderReadLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.txt")
	require.NoError(t, os.WriteFile(path, []byte("某题干内容，包含问号？\n正确答案：A\n"), 0644))
	r := reader.New(nil, logrus.New().WithField("test", "reader"))

	paras, err := r.Read(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, []string{"某题干内容，包含问号？", "正确答案：A"}, paras)
}

func TestReaderReadErrors(t *testing.T) {
	r := reader.New(nil, logrus.New().WithField("test", "reader"))

	_, err := r.Read(context.Background(), filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)

	_, err = r.Read(context.Background(), "https://example.com/bank.docx")
	assert.ErrorIs(t, err, reader.ErrUnsupported)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx, "bank.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
