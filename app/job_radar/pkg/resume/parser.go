// Package resume 从上传的简历文件中提取纯文本。
package resume

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// UnsupportedMessage 不支持的格式返回给界面的提示
const UnsupportedMessage = "Unsupported file format. Please upload a PDF, DOCX, or TXT file."

// ErrUnsupportedFormat 文件扩展名不是 pdf/docx/txt
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Parse 提取简历文本，永不返回错误：
// 不支持的格式返回 UnsupportedMessage，解析失败返回 "Error parsing resume: ..."。
func Parse(filename string, data []byte) string {
	text, err := Extract(filename, data)
	if errors.Is(err, ErrUnsupportedFormat) {
		return UnsupportedMessage
	}
	if err != nil {
		return fmt.Sprintf("Error parsing resume: %v", err)
	}
	return text
}

// Extract 按扩展名提取文本，供需要显式错误的调用方使用
func Extract(filename string, data []byte) (text string, err error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	// 第三方解析器遇到损坏文件可能 panic
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%s parser panic: %v", ext, r)
		}
	}()

	switch ext {
	case "pdf":
		return extractPDF(data)
	case "docx":
		return extractDocx(data)
	case "txt":
		return extractTxt(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	paragraphs, err := docxParagraphs(doc.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx body: %w", err)
	}

	var sb strings.Builder
	for _, p := range paragraphs {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

const (
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordStrictNS = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	compatNS     = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

func isWord(n xml.Name) bool {
	return n.Space == wordNS || n.Space == wordStrictNS
}

// openPara 尚未闭合的段落，idx 是它在结果中的位置
type openPara struct {
	idx int
	sb  strings.Builder
}

// docxParagraphs 按起始顺序返回 word/document.xml 中每个 <w:p> 的文本。
// 文本框里嵌套的段落单独成段，mc:Fallback 是 mc:Choice 的重复内容，跳过。
func docxParagraphs(content string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		paragraphs []string
		open       []*openPara
		inText     bool
	)
	write := func(s string) {
		if n := len(open); n > 0 {
			open[n-1].sb.WriteString(s)
		}
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == compatNS && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			if !isWord(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "p":
				open = append(open, &openPara{idx: len(paragraphs)})
				paragraphs = append(paragraphs, "")
			case "t":
				inText = true
			case "tab":
				write("\t")
			case "br", "cr":
				write("\n")
			}
		case xml.EndElement:
			if !isWord(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "p":
				if n := len(open); n > 0 {
					paragraphs[open[n-1].idx] = open[n-1].sb.String()
					open = open[:n-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				write(string(t))
			}
		}
	}
	return paragraphs, nil
}

func extractTxt(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid utf-8")
	}
	return string(data), nil
}
