package scraper

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeBody converts a raw response body to UTF-8 text for inspection.
// The declared charset wins, then chardet's best guess. A leading UTF-8
// byte order mark is dropped. The caller keeps the raw bytes for output.
func DecodeBody(body []byte, contentType string) string {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return string(body)
	}

	label := declaredCharset(contentType)
	if label == "" {
		label = DetectCharset(body)
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// DetectCharset detects and returns the charset of data.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// IsGenericContentType reports whether a declared type says nothing about
// the payload, so sniffing the body is worthwhile.
func IsGenericContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(contentType) == ""
	}
	switch mediaType {
	case "text/plain", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

// SniffXML reports whether body content is detected as XML or an XML
// dialect such as RSS, Atom or a sitemap.
func SniffXML(body []byte) bool {
	for m := mimetype.Detect(body); m != nil; m = m.Parent() {
		if m.Is("text/xml") || m.Is("application/xml") {
			return true
		}
	}
	return false
}

func declaredCharset(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
