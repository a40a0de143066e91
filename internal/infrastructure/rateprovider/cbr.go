package rateprovider

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

const cbrDateLayout = "02.01.2006"

// cbrValCurs is the XML_daily.asp document
type cbrValCurs struct {
	XMLName xml.Name    `xml:"ValCurs"`
	Date    string      `xml:"Date,attr"`
	Valutes []cbrValute `xml:"Valute"`
}

type cbrValute struct {
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// CBRProvider reads the Central Bank of Russia daily publication. Rates are
// already RUB per unit; Value is quoted per Nominal units with a decimal comma.
type CBRProvider struct {
	config     *Config
	httpClient *http.Client
}

// NewCBRProvider creates a CBR provider
func NewCBRProvider(config *Config) (*CBRProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CBRProvider{config: config, httpClient: config.httpClient()}, nil
}

// Name implements settlement.RateProvider
func (p *CBRProvider) Name() string { return NameCBR }

// FetchRates implements settlement.RateProvider. On non-business days CBR
// answers with its latest publication; the snapshot carries that date.
func (p *CBRProvider) FetchRates(ctx context.Context, date time.Time) (*settlement.RateSnapshot, error) {
	u, err := url.Parse(p.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("cbr: invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("date_req", date.Format("02/01/2006"))
	u.RawQuery = q.Encode()

	body, err := get(ctx, p.httpClient, u.String(), "application/xml")
	if err != nil {
		return nil, fmt.Errorf("cbr: %w", err)
	}
	return p.parse(body, date)
}

func (p *CBRProvider) parse(body []byte, requested time.Time) (*settlement.RateSnapshot, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "windows-1251", "cp1251":
			return charmap.Windows1251.NewDecoder().Reader(input), nil
		case "utf-8", "":
			return input, nil
		}
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}

	var doc cbrValCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("cbr: %w: %v", ErrMalformedResponse, err)
	}

	published := requested
	if doc.Date != "" {
		d, err := time.Parse(cbrDateLayout, doc.Date)
		if err != nil {
			return nil, fmt.Errorf("cbr: %w: date %q", ErrMalformedResponse, doc.Date)
		}
		published = d
	}

	snapshot := settlement.NewRateSnapshot(published, NameCBR)
	for _, v := range doc.Valutes {
		code, err := valueobject.ParseCurrency(v.CharCode)
		if err != nil || code.IsBase() || !p.config.keep(code.String()) {
			continue
		}
		rate, err := cbrRate(v.Value, v.Nominal)
		if err != nil {
			return nil, fmt.Errorf("cbr: %w: %s: %v", ErrMalformedResponse, code, err)
		}
		snapshot.Rates[code] = rate
	}
	if len(snapshot.Rates) == 0 {
		return nil, fmt.Errorf("cbr: %w for %s", ErrNoRates, requested.Format(cbrDateLayout))
	}
	return snapshot, nil
}

// cbrRate returns Value / Nominal
func cbrRate(value, nominal string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(value), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("value %q", value)
	}
	n := decimal.NewFromInt(1)
	if s := strings.TrimSpace(nominal); s != "" {
		n, err = decimal.NewFromString(s)
		if err != nil || !n.IsPositive() {
			return decimal.Zero, fmt.Errorf("nominal %q", nominal)
		}
	}
	return v.Div(n), nil
}

// get performs a GET and returns the body of a 2xx response
func get(ctx context.Context, client *http.Client, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "settlement-rate-sync/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}
	return body, nil
}

var _ settlement.RateProvider = (*CBRProvider)(nil)
