// Package sniffer identifies medical-test result files by their leading bytes, so the
// declared content type of an upload is never trusted.
package sniffer

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"strings"
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindJPEG Kind = "jpeg"
	KindPNG  Kind = "png"
	KindGIF  Kind = "gif"
	KindWEBP Kind = "webp"
	KindSVG  Kind = "svg"
)

const headSize = 512

var ErrUnsupported = errors.New("unsupported result file type")

type Result struct {
	Kind Kind
	MIME string
}

// Extension is the canonical file suffix, dot included.
func (r Result) Extension() string {
	if r.Kind == KindJPEG {
		return ".jpg"
	}
	return "." + string(r.Kind)
}

func Detect(data []byte) (Result, error) {
	head := data
	if len(head) > headSize {
		head = head[:headSize]
	}
	if len(head) == 0 {
		return Result{}, ErrUnsupported
	}

	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return Result{Kind: KindPDF, MIME: "application/pdf"}, nil
	case isJPEG(head):
		return Result{Kind: KindJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Kind: KindPNG, MIME: "image/png"}, nil
	case isGIF(head):
		return Result{Kind: KindGIF, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Result{Kind: KindWEBP, MIME: "image/webp"}, nil
	case isSVG(head):
		return Result{Kind: KindSVG, MIME: "image/svg+xml"}, nil
	}
	return Result{}, ErrUnsupported
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

func isPNG(head []byte) bool {
	return bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
}

func isGIF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a"))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

func isSVG(head []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}

// ContentType returns the media type of a header without parameters.
func ContentType(header http.Header) string {
	ct := header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return mediaType
}
