package endpoint

import (
	"strings"
	"testing"
)

func TestInterpolate(t *testing.T) {
	values := map[string]string{"name": "Ada", "topic": "sales"}

	cases := []struct {
		template string
		want     string
	}{
		{"New message from ${name}", "New message from Ada"},
		{"${name} about ${topic}", "Ada about sales"},
		{"${unknown} inquiry", " inquiry"},
		{"no placeholders", "no placeholders"},
		{"${name", "${name"},
	}
	for _, tc := range cases {
		if got := interpolate(tc.template, values); got != tc.want {
			t.Errorf("interpolate(%q) = %q, want %q", tc.template, got, tc.want)
		}
	}
}

func TestBuildBody(t *testing.T) {
	intro := "From the website."
	cfg := Config{
		Fields: []Field{
			{Name: "name", Label: "Name"},
			{Name: "notes"},
		},
		Email: EmailConfig{Intro: &intro},
	}
	got := buildBody(cfg, map[string]string{"name": "Ada"})
	want := "From the website.\n\nName: Ada\nnotes: (blank)"
	if got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestBuildMessageFlat(t *testing.T) {
	from := "forms@example.com"
	reply := "email"
	cfg := Config{
		Fields: []Field{{Name: "email", Label: "Email"}},
		Email: EmailConfig{
			To:           []string{"a@example.com", "b@example.com"},
			From:         &from,
			ReplyToField: &reply,
			Subject:      "Hello",
		},
	}
	values := map[string]string{"email": "user@example.com"}

	msg, err := buildMessage(cfg, values, "Hello", "Email: user@example.com", nil)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	raw := string(msg.Raw)

	for _, want := range []string{
		"From: forms@example.com\r\n",
		"Reply-To: user@example.com\r\n",
		"To: a@example.com,b@example.com\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n\r\nEmail: user@example.com",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
	if strings.Contains(raw, "multipart") {
		t.Fatal("flat message must not be multipart")
	}
	if msg.From != from || len(msg.To) != 2 {
		t.Fatalf("envelope = %+v", msg)
	}
}

func TestBuildMessageHeaderInjection(t *testing.T) {
	cfg := Config{
		Fields: []Field{{Name: "name", Label: "Name"}},
		Email:  EmailConfig{To: []string{"a@example.com"}},
	}
	subject := "Hi\r\nBcc: victim@example.com"

	msg, err := buildMessage(cfg, nil, subject, "body", nil)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if strings.Contains(string(msg.Raw), "\r\nBcc:") {
		t.Fatalf("injected header survived:\n%s", msg.Raw)
	}
	if !strings.Contains(string(msg.Raw), "Subject: Hi  Bcc: victim@example.com\r\n") {
		t.Fatalf("subject not flattened:\n%s", msg.Raw)
	}
}

func TestBuildMessageMultipart(t *testing.T) {
	cfg := Config{
		Fields: []Field{{Name: "photo", Label: "Photo"}},
		Email:  EmailConfig{To: []string{"a@example.com"}},
	}
	attachment := Attachment{Name: "cat.jpg", Mime: "image/jpeg", Data: []byte("not really a jpeg")}

	msg, err := buildMessage(cfg, nil, "Files", "Photo: cat.jpg", []Attachment{attachment})
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	raw := string(msg.Raw)

	boundaryIdx := strings.Index(raw, `boundary="=_Part_`)
	if boundaryIdx < 0 {
		t.Fatalf("boundary header missing:\n%s", raw)
	}
	for _, want := range []string{
		"Content-Type: multipart/mixed;",
		"Content-Type: text/plain; charset=UTF-8",
		`Content-Type: image/jpeg; name="cat.jpg"`,
		`Content-Disposition: attachment; filename="cat.jpg"`,
		"Content-Transfer-Encoding: base64",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
	if !strings.HasSuffix(strings.TrimRight(raw, "\r\n"), "--") {
		t.Fatalf("final boundary missing:\n%s", raw)
	}
}

func TestBuildMessageBoundaryVaries(t *testing.T) {
	first, err := newBoundary()
	if err != nil {
		t.Fatal(err)
	}
	second, err := newBoundary()
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("boundaries repeat: %s", first)
	}
	if !strings.HasPrefix(first, "=_Part_") || len(first) != len("=_Part_")+24 {
		t.Fatalf("unexpected boundary shape: %s", first)
	}
}

func TestChunkBase64(t *testing.T) {
	encoded := chunkBase64(make([]byte, 200))
	for i, line := range strings.Split(strings.TrimRight(encoded, "\r\n"), "\r\n") {
		if len(line) > 76 {
			t.Fatalf("line %d is %d columns", i, len(line))
		}
	}
}
