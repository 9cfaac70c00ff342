// Package svgsprite merges standalone SVG icons into a single stack sprite.
//
// Every icon is minified, stripped of its presentation attributes (fill,
// stroke, style) so it can be coloured from CSS, and nested as
// <svg id="name" viewBox="..."> inside the sprite root. Ids declared inside an
// icon are prefixed with "name_" so icons cannot resolve each other's
// gradients, masks or <use> targets. A stack sprite shows
// only the icon addressed by the URL fragment: sprite.svg#name.
package svgsprite

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	svgNS   = "http://www.w3.org/2000/svg"
	xlinkNS = "http://www.w3.org/1999/xlink"

	stackStyle = ":root>svg{display:none}:root>svg:target{display:block}"
)

// StrippedAttributes are removed from every element of every icon.
var StrippedAttributes = []string{"fill", "stroke", "style"}

// Sprite accumulates icons.
type Sprite struct {
	minifier *minify.M
	icons    []*etree.Element
	ids      map[string]string
}

// New returns an empty sprite.
func New() *Sprite {
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)
	return &Sprite{
		minifier: m,
		ids:      make(map[string]string),
	}
}

// Len returns the number of icons added.
func (s *Sprite) Len() int { return len(s.icons) }

// AddFile adds an icon whose id is derived from its file name.
func (s *Sprite) AddFile(path string, data []byte) error {
	return s.Add(IDFromPath(path), path, data)
}

// Add minifies and strips an icon and appends it under id. source is only
// used in error messages.
func (s *Sprite) Add(id, source string, data []byte) error {
	if id == "" {
		return fmt.Errorf("%s: empty icon id", source)
	}
	if prev, ok := s.ids[id]; ok {
		return fmt.Errorf("%s: duplicate icon id %q (already used by %s)", source, id, prev)
	}

	// The minifier drops xlink:href, so links are rewritten to plain href
	// first.
	data, err := xlinkToHref(data)
	if err != nil {
		return fmt.Errorf("%s: parsing: %w", source, err)
	}

	minified, err := s.minifier.Bytes("image/svg+xml", data)
	if err != nil {
		return fmt.Errorf("%s: minifying: %w", source, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(minified); err != nil {
		return fmt.Errorf("%s: parsing: %w", source, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return fmt.Errorf("%s: root element is not <svg>", source)
	}

	Strip(root)
	NamespaceIDs(root, id)

	icon := etree.NewElement("svg")
	icon.CreateAttr("id", id)
	if vb := viewBox(root); vb != "" {
		icon.CreateAttr("viewBox", vb)
	}
	if par := root.SelectAttrValue("preserveAspectRatio", ""); par != "" {
		icon.CreateAttr("preserveAspectRatio", par)
	}
	for _, child := range root.ChildElements() {
		icon.AddChild(child.Copy())
	}

	s.ids[id] = source
	s.icons = append(s.icons, icon)
	return nil
}

// Bytes serializes the sprite.
func (s *Sprite) Bytes() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", svgNS)
	root.CreateAttr("xmlns:xlink", xlinkNS)

	style := root.CreateElement("style")
	style.SetText(stackStyle)

	for _, icon := range s.icons {
		root.AddChild(icon.Copy())
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(out, []byte("&gt;"), []byte(">")), nil
}

// Strip removes the presentation attributes from el and its descendants.
func Strip(el *etree.Element) {
	for _, attr := range StrippedAttributes {
		el.RemoveAttr(attr)
	}
	for _, child := range el.ChildElements() {
		Strip(child)
	}
}

// NamespaceIDs prefixes every id declared below root with prefix+"_" and
// rewrites href="#id" and url(#id) references to match. References to ids the
// icon does not declare are left alone.
func NamespaceIDs(root *etree.Element, prefix string) {
	renamed := make(map[string]string)
	walk(root, func(el *etree.Element) {
		if el == root {
			return
		}
		if attr := el.SelectAttr("id"); attr != nil && attr.Value != "" {
			renamed[attr.Value] = prefix + "_" + attr.Value
			attr.Value = renamed[attr.Value]
		}
	})
	if len(renamed) == 0 {
		return
	}

	rewriteURLs := func(v string) string {
		return urlRefRe.ReplaceAllStringFunc(v, func(ref string) string {
			m := urlRefRe.FindStringSubmatch(ref)
			if to, ok := renamed[m[2]]; ok {
				return m[1] + to + m[3]
			}
			return ref
		})
	}

	walk(root, func(el *etree.Element) {
		for i := range el.Attr {
			attr := &el.Attr[i]
			if attr.Key == "href" && strings.HasPrefix(attr.Value, "#") {
				if to, ok := renamed[attr.Value[1:]]; ok {
					attr.Value = "#" + to
				}
				continue
			}
			if strings.Contains(attr.Value, "url(") {
				attr.Value = rewriteURLs(attr.Value)
			}
		}
		if el.Tag == "style" {
			el.SetText(rewriteURLs(el.Text()))
		}
	})
}

var urlRefRe = regexp.MustCompile(`(url\(\s*['"]?#)([^'")\s]+)(['"]?\s*\))`)

// xlinkToHref replaces xlink:href attributes with href.
func xlinkToHref(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return data, nil
	}

	changed := false
	walk(root, func(el *etree.Element) {
		link := el.SelectAttr("xlink:href")
		if link == nil {
			return
		}
		if el.SelectAttr("href") == nil {
			el.CreateAttr("href", link.Value)
		}
		el.RemoveAttr("xlink:href")
		changed = true
	})
	if !changed {
		return data, nil
	}
	return doc.WriteToBytes()
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, child := range el.ChildElements() {
		walk(child, fn)
	}
}

// IDFromPath derives an icon id from a file name: the base name without its
// extension, whitespace replaced with underscores.
func IDFromPath(path string) string {
	base := filepath.Base(filepath.ToSlash(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, base)
}

func viewBox(root *etree.Element) string {
	if vb := strings.TrimSpace(root.SelectAttrValue("viewBox", "")); vb != "" {
		return vb
	}
	w, okW := dimension(root.SelectAttrValue("width", ""))
	h, okH := dimension(root.SelectAttrValue("height", ""))
	if !okW || !okH {
		return ""
	}
	return fmt.Sprintf("0 0 %s %s", formatNumber(w), formatNumber(h))
}

func dimension(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
