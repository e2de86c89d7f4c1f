package lalonja

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNoPagination is returned when the pagination control cannot be read.
var ErrNoPagination = errors.New("lalonja: could not determine page count")

var codeRegexp = regexp.MustCompile(`/inmueble/(\d+)/`)

// Labels read from a detail page, in column order.
var detailLabels = []string{"Baños", "Área", "Habitaciones", "Garajes", "Closets"}

// ListingRef is one listing link found on an index page.
type ListingRef struct {
	Link string
	Code string
}

// Detail holds the fields taken from a house's detail page.
type Detail struct {
	Price        string
	Bathrooms    string
	Area         string
	Rooms        string
	Garages      string
	Closets      string
	Municipality string
	Neighborhood string
}

// Complete reports whether every field was found and the price is a single
// amount rather than a range.
func (d Detail) Complete() bool {
	for _, v := range []string{d.Price, d.Bathrooms, d.Area, d.Rooms, d.Garages, d.Closets, d.Municipality, d.Neighborhood} {
		if v == "" {
			return false
		}
	}
	return !strings.Contains(d.Price, "-")
}

// TotalPages reads the page count from the pagination control. The last
// item may be a "»" arrow, in which case the item before it is used.
// An index without pagination has a single page.
func TotalPages(doc *goquery.Document) (int, error) {
	pagination := doc.Find(".pagination")
	if pagination.Length() == 0 {
		return 1, nil
	}

	last := strings.TrimSpace(pagination.Find("li:last-child a").First().Text())
	if last == "»" {
		last = strings.TrimSpace(pagination.Find("li:nth-last-child(2) a").First().Text())
	}
	n, err := strconv.Atoi(last)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: last page %q", ErrNoPagination, last)
	}
	return n, nil
}

// PageURLs lists the index pages: base itself, then base/pagina/n.
func PageURLs(base string, total int) []string {
	urls := []string{base}
	for n := 2; n <= total; n++ {
		urls = append(urls, fmt.Sprintf("%s/pagina/%d", base, n))
	}
	return urls
}

// ListingLinks returns the listing anchors of an index page resolved
// against base. Links for the "Ambos" (sale or rent) category are skipped.
func ListingLinks(doc *goquery.Document, base string) []ListingRef {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var refs []ListingRef
	doc.Find("#ruta32").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := baseURL.ResolveReference(ref).String()
		if strings.Contains(link, "Ambos") {
			return
		}
		var code string
		if m := codeRegexp.FindStringSubmatch(link); m != nil {
			code = m[1]
		}
		refs = append(refs, ListingRef{Link: link, Code: code})
	})
	return refs
}

// ParseDetail extracts a house's price, labelled features and address.
func ParseDetail(doc *goquery.Document) Detail {
	d := Detail{
		Price: strings.TrimSpace(doc.Find(".property-price").First().Text()),
	}

	texts := textNodes(doc)
	values := make(map[string]string, len(detailLabels))
	for _, label := range detailLabels {
		values[label] = labelledValue(doc, texts, label)
	}
	d.Bathrooms = values["Baños"]
	d.Area = values["Área"]
	d.Rooms = values["Habitaciones"]
	d.Garages = values["Garajes"]
	d.Closets = values["Closets"]

	address := strings.TrimSpace(doc.Find(".listing-address").First().Text())
	if address != "" {
		municipality, neighborhood, _ := strings.Cut(address, ",")
		d.Municipality = strings.TrimSpace(municipality)
		d.Neighborhood = strings.TrimSpace(neighborhood)
	}
	return d
}

// labelledValue finds the first text mentioning label and returns the text
// that follows it. Pages that carry the value in a span classed after the
// label are read from that span instead.
func labelledValue(doc *goquery.Document, texts []string, label string) string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label))
	for i, t := range texts {
		if pattern.MatchString(t) {
			if i+1 < len(texts) {
				return texts[i+1]
			}
			break
		}
	}

	var value string
	doc.Find("span[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if pattern.MatchString(class) {
			value = strings.TrimSpace(s.Text())
			return false
		}
		return true
	})
	return value
}

// textNodes returns the document's non-blank text in document order,
// leaving out script and style content.
func textNodes(doc *goquery.Document) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return out
}
