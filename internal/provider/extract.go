package provider

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/container-status-poller/internal/status"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// ErrContainerNotFound is returned when the portal page reports no such container.
var ErrContainerNotFound = errors.New("container not found on portal")

// Selectors are CSS selectors for the fields of a portal result page.
// Empty selectors are skipped.
type Selectors struct {
	Status               string `mapstructure:"status"`
	Terminal             string `mapstructure:"terminal"`
	ShippingLine         string `mapstructure:"shipping_line"`
	DischargeOrderStatus string `mapstructure:"discharge_order_status"`
	DischargeOrderAt     string `mapstructure:"discharge_order_at"`
	Delivered            string `mapstructure:"delivered"`
	Ready                string `mapstructure:"ready"`
	NotFound             string `mapstructure:"not_found"`
}

// Merge fills empty fields of s from defaults.
func (s Selectors) Merge(defaults Selectors) Selectors {
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return Selectors{
		Status:               pick(s.Status, defaults.Status),
		Terminal:             pick(s.Terminal, defaults.Terminal),
		ShippingLine:         pick(s.ShippingLine, defaults.ShippingLine),
		DischargeOrderStatus: pick(s.DischargeOrderStatus, defaults.DischargeOrderStatus),
		DischargeOrderAt:     pick(s.DischargeOrderAt, defaults.DischargeOrderAt),
		Delivered:            pick(s.Delivered, defaults.Delivered),
		Ready:                pick(s.Ready, defaults.Ready),
		NotFound:             pick(s.NotFound, defaults.NotFound),
	}
}

// Extract parses a rendered result page into a ScrapeResult. The returned
// error is never wrapped in a ScrapeError; callers do that.
func Extract(html []byte, sel Selectors, name tracker.ProviderName, containerNo string, now time.Time) (tracker.ScrapeResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return tracker.ScrapeResult{}, fmt.Errorf("parse html: %w", err)
	}
	if sel.NotFound != "" && doc.Find(sel.NotFound).Length() > 0 {
		return tracker.ScrapeResult{}, ErrContainerNotFound
	}
	statusSel := doc.Find(sel.Status)
	if sel.Status == "" || statusSel.Length() == 0 {
		return tracker.ScrapeResult{}, fmt.Errorf("status element %q missing", sel.Status)
	}

	orderRaw := text(doc, sel.DischargeOrderAt)
	orderAt, ok := tracker.ParsePortalTime(orderRaw)
	if !ok {
		return tracker.ScrapeResult{}, fmt.Errorf("unparseable discharge order time %q", orderRaw)
	}

	res := tracker.ScrapeResult{
		ContainerNo:          containerNo,
		Provider:             name,
		StatusRaw:            clean(statusSel.First().Text()),
		Terminal:             text(doc, sel.Terminal),
		ShippingLine:         text(doc, sel.ShippingLine),
		DischargeOrderStatus: text(doc, sel.DischargeOrderStatus),
		DischargeOrderAt:     orderAt,
		DeliveredOut:         present(doc, sel.Delivered),
		ScrapedAt:            now.UTC(),
	}
	res.Normalized = status.Normalize(status.Signals{
		StatusRaw:            res.StatusRaw,
		DischargeOrderStatus: res.DischargeOrderStatus,
		Ready:                present(doc, sel.Ready),
		DeliveredOut:         res.DeliveredOut,
	})
	if res.Normalized == tracker.StatusDeliveredOut {
		res.DeliveredOut = true
	}
	return res, nil
}

func text(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return clean(doc.Find(selector).First().Text())
}

// present reports whether the selector matches an element with content or a
// truthy data-value attribute.
func present(doc *goquery.Document, selector string) bool {
	if selector == "" {
		return false
	}
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return false
	}
	if v, ok := node.Attr("data-value"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "ja":
			return true
		default:
			return false
		}
	}
	return clean(node.Text()) != ""
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
