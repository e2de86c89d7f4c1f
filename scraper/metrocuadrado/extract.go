package metrocuadrado

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"medellin-listings/models"
)

// ErrNoPayload is returned when a detail page carries no listing JSON.
var ErrNoPayload = errors.New("metrocuadrado: listing payload not found")

const (
	officeMarker  = `{\"data\"`
	officeTrailer = `}}]]}],`
)

// ExtractListingLinks returns the absolute href of every anchor inside the
// cards matched by cardSelector, in page order. Project pages are skipped.
func ExtractListingLinks(page, cardSelector, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("metrocuadrado: parse listing page: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("metrocuadrado: base url: %w", err)
	}

	var links []string
	doc.Find(cardSelector).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.Contains(strings.ToLower(href), "proyecto") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links, nil
}

// ExtractApartment reads the Next.js state embedded in an apartment detail
// page (props.initialProps.pageProps.realEstate).
func ExtractApartment(page, extractionDate string) (*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("metrocuadrado: parse detail page: %w", err)
	}

	var payload map[string]any
	var decodeErr error
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		payload, decodeErr = decode(s.Text())
		return decodeErr != nil
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if payload == nil {
		return nil, ErrNoPayload
	}

	realEstate, ok := lookup(payload, "props", "initialProps", "pageProps", "realEstate")
	if !ok {
		return nil, fmt.Errorf("%w: realEstate key missing", ErrNoPayload)
	}
	return fromPayload(realEstate, extractionDate)
}

// ExtractOffice reads the escaped {"data": ...} payload office pages stream
// inside a plain script tag.
func ExtractOffice(page, extractionDate string) (*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("metrocuadrado: parse detail page: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if body := s.Text(); strings.Contains(body, officeMarker) {
			script = body
			return false
		}
		return true
	})
	if script == "" {
		return nil, ErrNoPayload
	}

	start := strings.Index(script, officeMarker)
	end := strings.LastIndex(script, officeTrailer)
	if end < start {
		return nil, fmt.Errorf("%w: unterminated office payload", ErrNoPayload)
	}
	raw := strings.ReplaceAll(script[start:end+5], `\`, "")
	if len(raw) < 3 {
		return nil, fmt.Errorf("%w: truncated office payload", ErrNoPayload)
	}

	payload, err := decode(raw[:len(raw)-3])
	if err != nil {
		return nil, err
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: data key missing", ErrNoPayload)
	}
	return fromPayload(data, extractionDate)
}

func decode(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("metrocuadrado: decode payload: %w", err)
	}
	return out, nil
}

func lookup(m map[string]any, path ...string) (map[string]any, bool) {
	cur := m
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func fromPayload(p map[string]any, extractionDate string) (*models.RawListing, error) {
	detail, ok := p["detail"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: detail block missing", ErrNoPayload)
	}
	return &models.RawListing{
		PropertyID:         text(p["propertyId"]),
		PropertyType:       text(p["propertyType"]),
		SalePrice:          text(p["salePrice"]),
		Area:               text(p["area"]),
		AreaC:              text(p["areac"]),
		Rooms:              text(p["rooms"]),
		Bathrooms:          text(p["bathrooms"]),
		Garages:            text(p["garages"]),
		City:               text(p["city"]),
		Zone:               text(p["zone"]),
		Neighborhood:       text(p["neighborhood"]),
		CommonNeighborhood: text(p["commonNeighborhood"]),
		AdminPrice:         text(detail["adminPrice"]),
		CompanyName:        text(p["companyName"]),
		PropertyState:      text(p["propertyState"]),
		Coordinates:        coordinates(p["coordinates"]),
		Link:               text(p["link"]),
		BuiltTime:          text(p["builtTime"]),
		Stratum:            text(p["stratum"]),
		ExtractionDate:     extractionDate,
	}, nil
}

// text renders a JSON value as a CSV cell. Nested values stay JSON.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// coordinates renders the portal's {lon, lat} object in the
// {'lon': X, 'lat': Y} form the listing files have always used.
func coordinates(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return text(v)
	}
	lon, lat := text(m["lon"]), text(m["lat"])
	if lon == "" || lat == "" {
		return text(v)
	}
	return fmt.Sprintf("{'lon': %s, 'lat': %s}", lon, lat)
}
