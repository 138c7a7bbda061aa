package endpoint

import (
	"bytes"
	"io"
	"testing"
)

func memoryFile(name, declared string, content []byte) IncomingFile {
	return IncomingFile{
		Name:         name,
		DeclaredType: declared,
		Size:         int64(len(content)),
		Code:         CodeOK,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

var jpegHead = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, 32)...)

func TestParseUploadsDefaults(t *testing.T) {
	field := Field{Name: "photo", Type: "upload"}

	attachments, message := parseUploads(field, []IncomingFile{memoryFile("cat.jpg", "image/jpeg", jpegHead)})
	if message != "" {
		t.Fatalf("unexpected rejection: %q", message)
	}
	if len(attachments) != 1 || attachments[0].Name != "cat.jpg" || attachments[0].Mime != "image/jpeg" {
		t.Fatalf("attachments = %+v", attachments)
	}
}

func TestParseUploadsOptionalFieldWithoutFile(t *testing.T) {
	field := Field{Name: "photo", Type: "upload"}

	attachments, message := parseUploads(field, nil)
	if message != "" || len(attachments) != 0 {
		t.Fatalf("got %+v, %q", attachments, message)
	}

	attachments, message = parseUploads(field, []IncomingFile{{Code: CodeNoFile}})
	if message != "" || len(attachments) != 0 {
		t.Fatalf("empty part: got %+v, %q", attachments, message)
	}
}

func TestParseUploadsRequiredFieldWithoutFile(t *testing.T) {
	field := Field{Name: "photo", Type: "upload", Required: true}

	if _, message := parseUploads(field, nil); message != "This field is required." {
		t.Fatalf("message = %q", message)
	}
}

func TestParseUploadsSingleFieldRejectsMany(t *testing.T) {
	field := Field{Name: "photo", Type: "upload"}
	files := []IncomingFile{
		memoryFile("a.jpg", "image/jpeg", jpegHead),
		memoryFile("b.jpg", "image/jpeg", jpegHead),
	}
	if _, message := parseUploads(field, files); message != "Only one file is allowed." {
		t.Fatalf("message = %q", message)
	}
}

func TestParseUploadsTransportCode(t *testing.T) {
	field := Field{Name: "photo", Type: "upload"}
	file := memoryFile("cat.jpg", "image/jpeg", jpegHead)
	file.Code = CodeInterrupted

	if _, message := parseUploads(field, []IncomingFile{file}); message != "File upload was interrupted." {
		t.Fatalf("message = %q", message)
	}
}

func TestParseUploadsNonImagePolicy(t *testing.T) {
	off := false
	anyAccept := "*/*"
	field := Field{Name: "doc", Type: "upload", ImagesOnly: &off, Accept: &anyAccept}

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{0x20}, 32)...)
	attachments, message := parseUploads(field, []IncomingFile{memoryFile("cv.pdf", "application/pdf", pdf)})
	if message != "" {
		t.Fatalf("unexpected rejection: %q", message)
	}
	if attachments[0].Mime != "application/pdf" {
		t.Fatalf("mime = %q", attachments[0].Mime)
	}
}

func TestParseUploadsImagesOnlyRejectsNonImage(t *testing.T) {
	anyAccept := "*/*"
	field := Field{Name: "photo", Type: "upload", Accept: &anyAccept}

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{0x20}, 32)...)
	if _, message := parseUploads(field, []IncomingFile{memoryFile("cv.pdf", "application/pdf", pdf)}); message != "Only image files are allowed." {
		t.Fatalf("message = %q", message)
	}
}

func TestMimeMatchesAccept(t *testing.T) {
	cases := []struct {
		mime     string
		accept   string
		filename string
		want     bool
	}{
		{"image/png", "image/*", "a.png", true},
		{"image/png", "image/png,image/jpeg", "a.png", true},
		{"application/pdf", "image/*", "a.pdf", false},
		{"application/pdf", ".pdf", "a.pdf", true},
		{"application/pdf", ".doc,.pdf", "a.PDF", true},
		{"image/jpeg", "", "a.jpg", true},
		{"application/pdf", "", "a.pdf", false},
		{"", "image/*", "a.png", true},
	}
	for _, tc := range cases {
		if got := mimeMatchesAccept(tc.mime, tc.accept, tc.filename); got != tc.want {
			t.Errorf("mimeMatchesAccept(%q, %q, %q) = %v, want %v", tc.mime, tc.accept, tc.filename, got, tc.want)
		}
	}
}

func TestCleanStoredName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"portrait photo.jpg", "portrait_photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\cv.pdf`, "cv.pdf"},
		{"résumé.pdf", "r_sum_.pdf"},
		{"..", "upload.bin"},
		{"", "upload.bin"},
	}
	for _, tc := range cases {
		if got := cleanStoredName(tc.in); got != tc.want {
			t.Errorf("cleanStoredName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSniffMime(t *testing.T) {
	cases := []struct {
		name     string
		head     []byte
		declared string
		want     string
	}{
		{"jpeg magic wins", jpegHead, "application/pdf", "image/jpeg"},
		{"html detected", []byte("<!DOCTYPE html><html></html>"), "image/png", "text/html"},
		{"opaque falls back to declared", bytes.Repeat([]byte{0x00, 0x01, 0x02, 0xFE}, 16), "application/zip", "application/zip"},
		{"opaque without declared", bytes.Repeat([]byte{0x00, 0x01, 0x02, 0xFE}, 16), "", "application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sniffMime(tc.head, tc.declared); got != tc.want {
				t.Fatalf("sniffMime = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsDangerousMime(t *testing.T) {
	dangerous := []string{"text/html", "text/plain", "application/javascript", "application/x-php", "image/svg+xml"}
	safe := []string{"image/jpeg", "application/pdf", "application/zip", ""}

	for _, mime := range dangerous {
		if !isDangerousMime(mime) {
			t.Errorf("%q not flagged", mime)
		}
	}
	for _, mime := range safe {
		if isDangerousMime(mime) {
			t.Errorf("%q flagged", mime)
		}
	}
}
