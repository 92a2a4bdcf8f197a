package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

var (
	// stantsiia-«kholodna-hokra».html, stantsiia-«vokzalna»-(vykhidni-dni).html, ...
	slugPattern   = regexp.MustCompile(`stantsiia-[«"]?([^"»]+?)["»]?(?:-\(?(?:vykhidni-dni)\)?)?\.html`)
	quotedPattern = regexp.MustCompile(`[«"]([^»"]+)[»"]`)
	hourPattern   = regexp.MustCompile(`^(\d+):?`)
	numberPattern = regexp.MustCompile(`\d+`)
)

// StationSlug extracts the station part of a station page link. It returns
// "" when href is not a station page.
func StationSlug(href string) string {
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	m := slugPattern.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// IsWeekendPage reports whether a page URL belongs to the weekend timetable.
func IsWeekendPage(pageURL string) bool {
	return strings.Contains(strings.ToLower(pageURL), "vykhidni")
}

// LinePageLinks returns the station page links listed in the content block
// of a line page, in page order.
func LinePageLinks(doc string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("scraper: parse line page: %w", err)
	}
	content := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "content-text")
	})
	if content == nil {
		return nil, nil
	}

	var links []string
	walk(content, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); strings.Contains(href, "stantsiia-") {
				links = append(links, href)
			}
		}
		return true
	})
	return links, nil
}

// Table is one timetable found on a station page. Header is the text of the
// nearest heading above it, which names the terminal the trains run to.
type Table struct {
	Header string
	Times  []metro.TimeOfDay
}

// Terminal returns the station name quoted in the header, e.g. the
// «Холодна гора» part of "Напрямок «Холодна гора»".
func (t Table) Terminal() string {
	m := quotedPattern.FindStringSubmatch(t.Header)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// StationTables extracts every timetable of a station page. Rows hold the
// hour in the first cell and minutes in the rest.
func StationTables(doc string) ([]Table, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("scraper: parse station page: %w", err)
	}

	var (
		tables  []Table
		heading string
		strong  string
	)
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "h3", "h4", "h5":
			heading = text(n)
			return false
		case "strong":
			strong = text(n)
			return false
		case "table":
			header := heading
			if header == "" {
				header = strong
			}
			tables = append(tables, Table{Header: header, Times: tableTimes(n)})
			return false
		}
		return true
	})
	return tables, nil
}

func tableTimes(table *html.Node) []metro.TimeOfDay {
	seen := make(map[metro.TimeOfDay]bool)
	var out []metro.TimeOfDay
	walk(table, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return true
		}
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, text(c))
			}
		}
		if len(cells) < 2 {
			return false
		}
		m := hourPattern.FindStringSubmatch(cells[0])
		if m == nil {
			return false
		}
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 23 {
			return false
		}
		for _, cell := range cells[1:] {
			for _, num := range numberPattern.FindAllString(cell, -1) {
				minute, err := strconv.Atoi(num)
				if err != nil || minute >= 60 {
					continue
				}
				t := metro.NewTimeOfDay(hour, minute)
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ============================================================================
// DOM HELPERS
// ============================================================================

// walk visits n and its descendants in document order. Returning false
// skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// text is the text content of n with whitespace, including non-breaking
// spaces, collapsed.
func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
