package lalonja

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medellin-listings/config"
	"medellin-listings/utils"
)

func parse(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

const detailPage = `<html><body>
<h1>Casa en venta</h1>
<div class="property-price"> $ 1.250.000.000 </div>
<ul>
 <li><strong>Baños</strong> 3</li>
 <li><strong>Área</strong> 240 m²</li>
 <li><strong>Habitaciones</strong> 4</li>
 <li><strong>Garajes</strong> 2</li>
 <li><span class="closets-value">5</span></li>
</ul>
<p class="listing-address">Envigado, Loma del Esmeraldal, sector alto</p>
<script>var label = "Closets";</script>
</body></html>`

func TestTotalPages(t *testing.T) {
	cases := []struct {
		name string
		page string
		want int
	}{
		{"numbered last item", `<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li><a>7</a></li></ul>`, 7},
		{"arrow last item", `<ul class="pagination"><li><a>1</a></li><li><a>12</a></li><li><a>»</a></li></ul>`, 12},
		{"no pagination", `<div>one page only</div>`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := TotalPages(parse(t, tc.page))
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}

	_, err := TotalPages(parse(t, `<ul class="pagination"><li><a>Siguiente</a></li></ul>`))
	assert.True(t, errors.Is(err, ErrNoPagination))
}

func TestPageURLs(t *testing.T) {
	assert.Equal(t, []string{"http://x/casas", "http://x/casas/pagina/2", "http://x/casas/pagina/3"},
		PageURLs("http://x/casas", 3))
	assert.Equal(t, []string{"http://x/casas"}, PageURLs("http://x/casas", 1))
}

func TestListingLinks(t *testing.T) {
	doc := parse(t, `<div>
<a id="ruta32" href="/inmueble/101/casa-envigado">A</a>
<a id="ruta32" href="/inmueble/102/Ambos-casa">B</a>
<a id="ruta32" href="https://other.example/inmueble/103/casa">C</a>
<a id="ruta32" href="/ficha/sin-codigo">D</a>
</div>`)

	refs := ListingLinks(doc, "https://www.lalonjapropiedadraiz.com/inmuebles/Venta/clases_Casa")
	assert.Equal(t, []ListingRef{
		{Link: "https://www.lalonjapropiedadraiz.com/inmueble/101/casa-envigado", Code: "101"},
		{Link: "https://other.example/inmueble/103/casa", Code: "103"},
		{Link: "https://www.lalonjapropiedadraiz.com/ficha/sin-codigo"},
	}, refs)
}

func TestParseDetail(t *testing.T) {
	d := ParseDetail(parse(t, detailPage))

	assert.Equal(t, Detail{
		Price:        "$ 1.250.000.000",
		Bathrooms:    "3",
		Area:         "240 m²",
		Rooms:        "4",
		Garages:      "2",
		Closets:      "5",
		Municipality: "Envigado",
		Neighborhood: "Loma del Esmeraldal, sector alto",
	}, d)
	assert.True(t, d.Complete())

	d.Price = "$ 300.000.000 - $ 350.000.000"
	assert.False(t, d.Complete(), "price ranges are rejected")
}

func TestParseDetailWithoutNeighborhood(t *testing.T) {
	d := ParseDetail(parse(t, strings.Replace(detailPage, "Envigado, Loma del Esmeraldal, sector alto", "Envigado", 1)))
	assert.Equal(t, "Envigado", d.Municipality)
	assert.Empty(t, d.Neighborhood)
	assert.False(t, d.Complete())
}

func TestScrape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/casas", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li><a>»</a></li></ul>
<a id="ruta32" href="/inmueble/101/casa">A</a>
<a id="ruta32" href="/inmueble/102/casa">B</a>`))
	})
	mux.HandleFunc("/casas/pagina/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a id="ruta32" href="/inmueble/101/casa">A again</a>
<a id="ruta32" href="/inmueble/103/casa">C</a>
<a id="ruta32" href="/inmueble/104/casa">D</a>`))
	})
	mux.HandleFunc("/inmueble/101/casa", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailPage))
	})
	mux.HandleFunc("/inmueble/102/casa", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Replace(detailPage, "$ 1.250.000.000", "$ 900.000.000 - $ 950.000.000", 1)))
	})
	mux.HandleFunc("/inmueble/103/casa", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Replace(detailPage, "1.250.000.000", "780.000.000", 1)))
	})
	// 104 is not served and answers 404.
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := &config.Config{MaxConcurrency: 2, MaxRetries: 0, PageTimeout: 5 * time.Second, UserAgent: "test"}
	s := NewWithBaseURL(srv.URL+"/casas", cfg, utils.NewDiscardLogger())
	s.pacing = 0
	s.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }

	listings, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "101", listings[0].PropertyID)
	assert.Equal(t, "$ 1.250.000.000", listings[0].SalePrice)
	assert.Equal(t, "240 m²", listings[0].Area)
	assert.Equal(t, "Envigado", listings[0].City)
	assert.Equal(t, "Casa", listings[0].PropertyType)
	assert.Equal(t, "2025-03-14", listings[0].ExtractionDate)
	assert.Empty(t, listings[0].Coordinates)

	assert.Equal(t, "103", listings[1].PropertyID)
	assert.Equal(t, srv.URL+"/inmueble/103/casa", listings[1].Link)
}

func TestScrapeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/casas" {
			w.Write([]byte(`<a id="ruta32" href="/inmueble/1/casa">1</a><a id="ruta32" href="/inmueble/2/casa">2</a>`))
			return
		}
		w.Write([]byte(detailPage))
	}))
	defer srv.Close()

	cfg := &config.Config{MaxConcurrency: 1, PageTimeout: 5 * time.Second, ListingLimit: 1}
	s := NewWithBaseURL(srv.URL+"/casas", cfg, utils.NewDiscardLogger())
	s.pacing = 0

	listings, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "1", listings[0].PropertyID)
}
