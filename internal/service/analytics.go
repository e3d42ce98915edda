// internal/service/analytics.go
package service

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Tzelon/thunder-mail/internal/model"
)

// textFooterSeparator pushes the unsubscribe URL well below the text body.
const textFooterSeparator = "\t\r\n\t\r\n\t\r\n\t\r\n\t\r\n\t\r\n"

// BodyTransform mutates one rendered email in place.
type BodyTransform func(host string, email *model.OutboundEmail) error

// AnalyticsTransforms is the fixed injection order: pixel, unsubscribe
// footer, then link wrapping last. WrapLinks skips anchors that already
// point at the tracking host, so the injected elements are not themselves
// rewritten as trackable links.
var AnalyticsTransforms = []BodyTransform{
	InsertTrackingPixel,
	InsertUnsubscribeLink,
	WrapLinks,
}

// ApplyAnalytics runs the transform pipeline over one email. host is the
// org's white-label domain when configured, else the public hostname.
func ApplyAnalytics(host string, email *model.OutboundEmail, transforms []BodyTransform) error {
	for _, transform := range transforms {
		if err := transform(host, email); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrackingPixel appends an invisible 1x1 image reference tagged with
// the tracking id. HTML only; a text-only email is left untouched.
func InsertTrackingPixel(host string, email *model.OutboundEmail) error {
	if email.HTML == "" {
		return nil
	}
	email.HTML += fmt.Sprintf("\n<img src=\"%s/trackopen/%s\" style=\"display:none\">", host, email.TrackingID)
	return nil
}

// InsertUnsubscribeLink appends the unsubscribe footer to both bodies.
func InsertUnsubscribeLink(host string, email *model.OutboundEmail) error {
	unsubscribeURL := fmt.Sprintf("%s/unsubscribe/%s", host, email.TrackingID)

	if email.Text != "" {
		email.Text += textFooterSeparator + unsubscribeURL
	}
	if email.HTML != "" {
		email.HTML += "<br/><br/><br/><br/><br/>" + fmt.Sprintf("<a href=\"%s\">unsubscribe</a>", unsubscribeURL)
	}
	return nil
}

// WrapLinks replaces every anchor target in the HTML body with a
// click-through redirector URL, preserving the visible text. Anchors that
// already point at the tracking host are left alone.
func WrapLinks(host string, email *model.OutboundEmail) error {
	if email.HTML == "" {
		return nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(email.HTML), body)
	if err != nil {
		return err
	}

	for _, n := range nodes {
		rewriteAnchors(n, host, email.TrackingID)
	}

	var out strings.Builder
	for _, n := range nodes {
		if err := html.Render(&out, n); err != nil {
			return err
		}
	}
	email.HTML = out.String()
	return nil
}

func rewriteAnchors(n *html.Node, host, trackingID string) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		for i, attr := range n.Attr {
			if attr.Key != "href" || isTrackingLink(attr.Val, host) {
				continue
			}
			n.Attr[i].Val = fmt.Sprintf("%s/clickthrough/%s?url=%s", host, trackingID, url.QueryEscape(attr.Val))
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		rewriteAnchors(child, host, trackingID)
	}
}

func isTrackingLink(href, host string) bool {
	return strings.HasPrefix(href, host+"/unsubscribe/") ||
		strings.HasPrefix(href, host+"/clickthrough/") ||
		strings.HasPrefix(href, host+"/trackopen/")
}
