package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"stylist/css"
	"stylist/sink"
	"stylist/style"
)

func TestClassPrefix(t *testing.T) {
	cases := []struct {
		flag, configured, name, want string
	}{
		{"btn", "card", "x/panel.css", "btn"},
		{"", "card", "x/panel.css", "card"},
		{"", "", "x/panel.css", "panel"},
		{"", "", "STDIN", ""},
	}
	for _, c := range cases {
		if got := classPrefix(c.flag, c.configured, c.name); got != c.want {
			t.Errorf("classPrefix(%q, %q, %q) = %q, want %q", c.flag, c.configured, c.name, got, c.want)
		}
	}
}

func TestCompileSources(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	a := write("a.css", "color: ${c};\n&:hover { color: blue; }\n")
	b := write("b.css", "color:red;&:hover{color:blue}")
	bad := write("bad.css", "color red;")

	doc := sink.NewDocument("", nil)
	reg := style.NewRegistry(style.WithSink(doc))

	names := []string{a, b, bad, filepath.Join(dir, "missing.css")}
	styles, sources, err := compileSources(context.Background(), reg, names, "btn", "", map[string]string{"c": "red"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected combined error")
	}
	var pe *css.ParseError
	if !errors.As(err, &pe) || pe.Kind != css.MissingColon {
		t.Errorf("expected MissingColon parse error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected missing file error, got %v", err)
	}

	if styles != nil || sources != nil {
		t.Error("failed run returned compiled styles")
	}
	if got := doc.ClassNames(); len(got) != 0 {
		t.Errorf("failed run left %d styles mounted", len(got))
	}
	if reg.Len() != 0 {
		t.Errorf("failed run left %d styles registered", reg.Len())
	}

	styles, sources, err = compileSources(context.Background(), reg, names[:2], "btn", "", map[string]string{"c": "red"}, zap.NewNop())
	if err != nil {
		t.Fatalf("compileSources() error = %v", err)
	}
	if styles[0].ClassName() != styles[1].ClassName() {
		t.Errorf("equal sources got different classes %s and %s", styles[0], styles[1])
	}
	if sources[0].name != a {
		t.Errorf("source name = %q, want %q", sources[0].name, a)
	}
	if got := doc.ClassNames(); len(got) != 1 {
		t.Errorf("document has %d styles, want 1", len(got))
	}
}

func TestCompileSources_FailureClearsStore(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.css")
	bad := filepath.Join(dir, "bad.css")
	if err := os.WriteFile(good, []byte("color: red;"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("color: red; }"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := sink.OpenStore(filepath.Join(dir, "styles.db"), nil)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()
	reg := style.NewRegistry(style.WithSink(store))

	if _, _, err := compileSources(context.Background(), reg, []string{good, bad}, "", "", nil, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("failed run left stored styles: %v", entries)
	}
}
