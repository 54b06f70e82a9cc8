package sink

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// DataAttr marks style elements owned by the sink.
const DataAttr = "data-style"

// Document is an XHTML document which keeps every mounted style as a
// separate <style> element in its head.
type Document struct {
	mu   sync.Mutex
	doc  *etree.Document
	head *etree.Element
	body *etree.Element
	log  *zap.Logger
}

// NewDocument creates empty XHTML document with title.
func NewDocument(title string, log *zap.Logger) *Document {
	if log == nil {
		log = zap.NewNop()
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	head := html.CreateElement("head")
	head.CreateElement("title").SetText(title)
	body := html.CreateElement("body")

	return &Document{doc: doc, head: head, body: body, log: log.Named("document-sink")}
}

func stylePath(className string) string {
	return fmt.Sprintf("style[@%s='%s']", DataAttr, className)
}

// Mount appends style element for className to document head.
func (d *Document) Mount(className, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.head.FindElement(stylePath(className)) != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyMounted, className)
	}
	el := d.head.CreateElement("style")
	el.CreateAttr("type", "text/css")
	el.CreateAttr(DataAttr, className)
	el.SetText(text)

	d.log.Debug("Style element added", zap.String("class", className), zap.Int("bytes", len(text)))
	return nil
}

// Unmount removes style element for className.
func (d *Document) Unmount(className string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := d.head.FindElement(stylePath(className))
	if el == nil {
		return fmt.Errorf("%w: %s", ErrNotMounted, className)
	}
	d.head.RemoveChild(el)

	d.log.Debug("Style element removed", zap.String("class", className))
	return nil
}

// AddElement appends element with class attribute to document body, so
// produced page demonstrates usage of compiled styles.
func (d *Document) AddElement(tag, className, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := d.body.CreateElement(tag)
	el.CreateAttr("class", className)
	el.SetText(text)
}

// Entries returns mounted styles in mount order.
func (d *Document) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	var entries []Entry
	for _, el := range d.head.SelectElements("style") {
		if cls := el.SelectAttrValue(DataAttr, ""); cls != "" {
			entries = append(entries, Entry{ClassName: cls, Text: el.Text()})
		}
	}
	return entries
}

// ClassNames returns class names of mounted styles in natural order.
func (d *Document) ClassNames() []string {
	entries := d.Entries()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.ClassName)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// CSS returns text of all mounted styles as single stylesheet.
func (d *Document) CSS() string {
	entries := d.Entries()
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return strings.Join(texts, "\n")
}

// WriteTo writes indented document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc := d.doc.Copy()
	doc.Indent(2)
	return doc.WriteTo(w)
}

// String returns indented document text.
func (d *Document) String() string {
	var sb strings.Builder
	if _, err := d.WriteTo(&sb); err != nil {
		return ""
	}
	return sb.String()
}
