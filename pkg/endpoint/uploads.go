package endpoint

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"
)

// UploadCode mirrors the transport-level status of a single uploaded
// file. Standard multipart parsing only yields CodeOK or CodeNoFile;
// the rest exist so hosting adapters can surface their own failures
// through the same pipeline.
type UploadCode int

const (
	CodeOK UploadCode = iota
	CodeNoFile
	CodeTooLarge
	CodeInterrupted
	CodeServerStorage
	CodeUnknown
)

func uploadCodeMessage(code UploadCode) string {
	switch code {
	case CodeTooLarge:
		return "File is too large."
	case CodeInterrupted:
		return "File upload was interrupted."
	case CodeServerStorage:
		return "Upload failed on server."
	case CodeNoFile:
		return "No file uploaded."
	default:
		return "Invalid file upload."
	}
}

// IncomingFile is the uniform view of one submitted file, independent
// of how the hosting environment materialized it.
type IncomingFile struct {
	Name         string
	DeclaredType string
	Size         int64
	Code         UploadCode
	Open         func() (io.ReadCloser, error)
}

// Attachment is an accepted upload queued for mail dispatch. Data is
// read once during validation and discarded with the request.
type Attachment struct {
	Name string
	Mime string
	Data []byte
}

func fileFromHeader(header *multipart.FileHeader) IncomingFile {
	code := CodeOK
	if header.Filename == "" && header.Size == 0 {
		code = CodeNoFile
	}
	return IncomingFile{
		Name:         header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Size:         header.Size,
		Code:         code,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

var (
	blockedExtensions = map[string]struct{}{
		".php": {}, ".phtml": {}, ".php3": {}, ".php4": {}, ".php5": {}, ".phar": {},
		".pl": {}, ".py": {}, ".rb": {}, ".cgi": {}, ".asp": {}, ".aspx": {}, ".jsp": {},
		".js": {}, ".mjs": {}, ".cjs": {}, ".sh": {}, ".bash": {}, ".zsh": {}, ".ps1": {},
		".bat": {}, ".cmd": {}, ".com": {}, ".exe": {}, ".msi": {}, ".dll": {}, ".so": {}, ".dylib": {},
		".jar": {}, ".vbs": {}, ".wsf": {}, ".hta": {}, ".html": {}, ".htm": {}, ".xhtml": {},
		".shtml": {}, ".css": {}, ".scss": {}, ".sass": {}, ".less": {}, ".xml": {}, ".svg": {},
	}

	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}, ".bmp": {},
		".tiff": {}, ".tif": {}, ".avif": {}, ".heif": {}, ".heic": {},
	}

	dangerousAppPattern = regexp.MustCompile(`^application/(javascript|x-javascript|ecmascript|x-httpd-php|x-php|x-sh|x-msdownload|x-dosexec|x-executable|x-bat|x-csh)`)

	storedNamePattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

func fileExtension(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if ext == "." {
		return ""
	}
	return ext
}

func hasBlockedExtension(filename string) bool {
	_, blocked := blockedExtensions[fileExtension(filename)]
	return blocked
}

func isImageExtension(filename string) bool {
	ext := fileExtension(filename)
	if ext == "" {
		return false
	}
	_, ok := imageExtensions[ext]
	return ok
}

// isDangerousMime flags content types that browsers or servers may
// execute or render: all text, script/executable application subtypes,
// anything html, and SVG (scriptable markup posing as an image).
func isDangerousMime(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return false
	}
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if dangerousAppPattern.MatchString(mimeType) {
		return true
	}
	if strings.HasPrefix(mimeType, "application/html") {
		return true
	}
	return mimeType == "image/svg+xml"
}

// mimeMatchesAccept applies an accept specification: comma-separated
// tokens that are extensions (.png), wildcards (image/*), or exact
// types. An empty specification means any image MIME, or any image
// extension when the MIME is unavailable.
func mimeMatchesAccept(mimeType, accept, filename string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	accept = strings.ToLower(strings.TrimSpace(accept))
	ext := fileExtension(filename)
	isImageExt := ext != "" && isImageExtension(filename)

	anyImage := func() bool {
		if mimeType != "" {
			return strings.HasPrefix(mimeType, "image/")
		}
		return isImageExt
	}

	if accept == "" {
		return anyImage()
	}

	matched := false
	sawToken := false
	for _, token := range strings.Split(accept, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		sawToken = true
		switch {
		case token == "*/*":
			matched = true
		case strings.HasPrefix(token, "."):
			if ext != "" && ext == token {
				matched = true
			}
		case strings.HasSuffix(token, "/*"):
			prefix := token[:len(token)-1]
			if mimeType != "" && strings.HasPrefix(mimeType, prefix) {
				matched = true
			}
			if prefix == "image/" && isImageExt {
				matched = true
			}
		default:
			if mimeType != "" && mimeType == token {
				matched = true
			}
		}
		if matched {
			return true
		}
	}
	if !sawToken {
		return anyImage()
	}
	return false
}

// cleanStoredName restricts a file name to a safe character set for
// downstream mail headers and storage.
func cleanStoredName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := storedNamePattern.ReplaceAllString(base, "_")
	if clean == "" || clean == "." || clean == ".." {
		return "upload.bin"
	}
	return clean
}

const sniffLen = 512

// sniffMime inspects the leading bytes of content instead of trusting
// the client-declared type. When sniffing is inconclusive the declared
// type fills in, parameters stripped.
func sniffMime(head []byte, declared string) string {
	detected := http.DetectContentType(head)
	if base, _, err := mime.ParseMediaType(detected); err == nil {
		detected = base
	}
	if detected == "application/octet-stream" && declared != "" {
		if base, _, err := mime.ParseMediaType(declared); err == nil {
			return strings.ToLower(base)
		}
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return strings.ToLower(detected)
}

type uploadMeta struct {
	required   bool
	multiple   bool
	imagesOnly bool
	maxFiles   int
	maxBytes   int64
	accept     string
}

func metaForField(field Field) uploadMeta {
	meta := uploadMeta{
		required:   field.Required,
		multiple:   field.Multiple,
		imagesOnly: field.ImagesOnly == nil || *field.ImagesOnly,
		maxFiles:   1,
		accept:     "image/*",
	}
	if field.Multiple {
		meta.maxFiles = 5
	}
	if field.MaxFiles != nil && *field.MaxFiles >= 1 {
		meta.maxFiles = *field.MaxFiles
	}
	sizeMb := 5.0
	if field.MaxFileSizeMb != nil && *field.MaxFileSizeMb > 0 {
		sizeMb = *field.MaxFileSizeMb
	}
	meta.maxBytes = int64(sizeMb * 1024 * 1024)
	if field.Accept != nil {
		meta.accept = *field.Accept
	}
	return meta
}

// parseUploads runs the upload pipeline for one field. On success it
// returns the accepted attachments; on failure the field-level error
// message and no attachments. The first failing file aborts the whole
// field.
func parseUploads(field Field, files []IncomingFile) ([]Attachment, string) {
	meta := metaForField(field)

	present := files[:0:0]
	for _, file := range files {
		if file.Code == CodeNoFile {
			continue
		}
		present = append(present, file)
	}

	if len(present) == 0 {
		if meta.required {
			return nil, "This field is required."
		}
		return nil, ""
	}

	if !meta.multiple && len(present) > 1 {
		return nil, "Only one file is allowed."
	}
	if len(present) > meta.maxFiles {
		return nil, "Too many files uploaded."
	}

	attachments := make([]Attachment, 0, len(present))
	for _, file := range present {
		if file.Code != CodeOK {
			return nil, uploadCodeMessage(file.Code)
		}
		if file.Size > meta.maxBytes {
			return nil, "File is too large."
		}
		if hasBlockedExtension(file.Name) {
			return nil, "Blocked file extension."
		}

		content, mimeType, err := readAndSniff(file, meta.maxBytes)
		if err != nil {
			return nil, "Invalid file upload."
		}

		if isDangerousMime(mimeType) {
			return nil, "Blocked file content type."
		}
		if meta.imagesOnly {
			isImageMime := strings.HasPrefix(mimeType, "image/") && mimeType != "image/svg+xml"
			if !isImageMime && !isImageExtension(file.Name) {
				return nil, "Only image files are allowed."
			}
		}
		if !mimeMatchesAccept(mimeType, meta.accept, file.Name) {
			return nil, "Invalid file type."
		}

		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		attachments = append(attachments, Attachment{
			Name: cleanStoredName(file.Name),
			Mime: mimeType,
			Data: content,
		})
	}

	return attachments, ""
}

// readAndSniff reads the file once, sniffing the content type from the
// leading bytes. The size limit was checked against the reported size;
// the hard read cap guards against transports that lie about it.
func readAndSniff(file IncomingFile, maxBytes int64) ([]byte, string, error) {
	if file.Open == nil {
		return nil, "", fmt.Errorf("endpoint: file %q has no content", file.Name)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(content)) > maxBytes {
		return nil, "", fmt.Errorf("endpoint: file %q exceeds size limit", file.Name)
	}

	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return content, sniffMime(head, file.DeclaredType), nil
}
