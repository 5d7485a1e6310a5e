// Package detector はファイル内容の種別判定を提供します
package detector

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// ContentTypeDetector はファイルのMIMEタイプとバイナリ判定を提供します
type ContentTypeDetector struct{}

// NewContentTypeDetector は新しいContentTypeDetectorを作成します
func NewContentTypeDetector() *ContentTypeDetector {
	return &ContentTypeDetector{}
}

// IsBinary はファイル内容がバイナリかどうかを判定します
func (d *ContentTypeDetector) IsBinary(content []byte) bool {
	return enry.IsBinary(content)
}

// DetectContentType はファイルパスと内容からMIMEタイプを判定します
func (d *ContentTypeDetector) DetectContentType(path string, content []byte) string {
	filename := filepath.Base(path)

	// go-enryで言語を判定（ファイル名と内容の両方を使用）
	language := enry.GetLanguage(filename, content)
	if mimeType := languageToMimeType(language); mimeType != "" {
		return mimeType
	}

	// 言語が判定できない場合は内容の先頭から推定
	if len(content) > 0 {
		detectedType := http.DetectContentType(content)
		// パラメータ部分（; charset=utf-8など）を除去
		if idx := strings.Index(detectedType, ";"); idx != -1 {
			detectedType = detectedType[:idx]
		}
		return strings.TrimSpace(detectedType)
	}

	return "text/plain"
}

// languageToMimeType は言語名をMIMEタイプに変換します
func languageToMimeType(language string) string {
	mapping := map[string]string{
		"Go":              "text/x-go",
		"JavaScript":      "text/javascript",
		"TypeScript":      "text/x-typescript",
		"Python":          "text/x-python",
		"Java":            "text/x-java",
		"C":               "text/x-c",
		"C++":             "text/x-c++",
		"C#":              "text/x-csharp",
		"Ruby":            "text/x-ruby",
		"PHP":             "text/x-php",
		"Rust":            "text/x-rust",
		"Swift":           "text/x-swift",
		"Kotlin":          "text/x-kotlin",
		"Scala":           "text/x-scala",
		"Shell":           "text/x-shellscript",
		"Bash":            "text/x-shellscript",
		"Markdown":        "text/markdown",
		"HTML":            "text/html",
		"CSS":             "text/css",
		"SCSS":            "text/x-scss",
		"JSON":            "application/json",
		"YAML":            "text/x-yaml",
		"XML":             "text/xml",
		"SQL":             "text/x-sql",
		"Dockerfile":      "text/x-dockerfile",
		"Makefile":        "text/x-makefile",
		"Protocol Buffer": "text/x-protobuf",
		"GraphQL":         "application/graphql",
		"Terraform":       "text/x-terraform",
		"HCL":             "text/x-hcl",
	}

	if mime, ok := mapping[language]; ok {
		return mime
	}

	return ""
}
